package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client talks to a daemon over its control socket. Every call opens a
// fresh connection.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the daemon listening on socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: connTimeout}
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	return c.call(CmdPing, nil)
}

// Status returns the daemon's status.
func (c *Client) Status() (*StatusData, error) {
	var st StatusData
	if err := c.call(CmdStatus, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Remap asks the daemon to run a mapping pass as soon as it is idle.
func (c *Client) Remap() error {
	return c.call(CmdRemap, nil)
}

// RequestStop asks the daemon to shut down gracefully.
func (c *Client) RequestStop() error {
	return c.call(CmdStop, nil)
}

// call sends command and decodes the payload of a successful response
// into out, unless out is nil.
func (c *Client) call(command string, out any) error {
	resp, err := c.roundTrip(Request{Command: command})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", command, err)
	}
	return nil
}

func (c *Client) roundTrip(req Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Command, err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.Command, err)
	}
	return &resp, nil
}

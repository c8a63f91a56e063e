// Package ipc is the control channel of a running watch daemon: a Unix
// domain socket speaking one newline-terminated JSON request and response
// per connection.
package ipc

import "encoding/json"

// Commands understood by the server.
const (
	CmdPing   = "ping"
	CmdStatus = "status"
	CmdRemap  = "remap"
	CmdStop   = "stop"
)

// Request is a JSON message sent from client to server.
type Request struct {
	Command string            `json:"command"`
	Args    map[string]string `json:"args,omitempty"`
}

// Response is a JSON message sent from server to client. Data holds the
// command's payload, e.g. a StatusData for "status".
type Response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// StatusData is returned by the "status" command.
type StatusData struct {
	Uptime       string   `json:"uptime"`
	Passes       int      `json:"passes"`
	LastError    string   `json:"last_error,omitempty"`
	DBSizeBytes  int64    `json:"db_size_bytes"`
	Rows         int64    `json:"rows"`
	Clones       int64    `json:"clones"`
	WatchedPaths []string `json:"watched_paths"`
}

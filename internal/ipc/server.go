package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"time"
)

// connTimeout bounds a whole request/response exchange.
const connTimeout = 5 * time.Second

// DaemonQuerier is what the server needs from the daemon. It is an
// interface so that the daemon package can import ipc.
type DaemonQuerier interface {
	Uptime() time.Duration
	Passes() int
	LastError() error
	Remap()
	Stop()
}

// StoreQuerier provides the database figures reported by "status".
type StoreQuerier interface {
	DBSizeBytes() (int64, error)
	CloneCount() (int64, error)
	GlobalIDCount() (int64, error)
}

// handler answers one command. after, when non-nil, runs once the response
// has been written.
type handler func(req Request) (data any, after func(), err error)

// Server is a Unix domain socket server for CLI-to-daemon communication.
type Server struct {
	daemon     DaemonQuerier
	store      StoreQuerier
	watchPaths []string
	handlers   map[string]handler

	mu       sync.Mutex
	listener net.Listener
	closing  bool
	conns    sync.WaitGroup
}

// NewServer creates a new IPC server.
func NewServer(daemon DaemonQuerier, store StoreQuerier, watchPaths []string) *Server {
	s := &Server{daemon: daemon, store: store, watchPaths: watchPaths}
	s.handlers = map[string]handler{
		CmdPing: func(Request) (any, func(), error) {
			return "pong", nil, nil
		},
		CmdStatus: func(Request) (any, func(), error) {
			return s.status(), nil, nil
		},
		CmdRemap: func(Request) (any, func(), error) {
			s.daemon.Remap()
			return "remap queued", nil, nil
		},
		CmdStop: func(Request) (any, func(), error) {
			return "shutting down", s.daemon.Stop, nil
		},
	}
	return s
}

// Listen serves socketPath until ctx is cancelled or Stop is called. A
// stale socket file left by a crashed daemon is replaced.
func (s *Server) Listen(ctx context.Context, socketPath string) error {
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.mu.Lock()
	s.listener, s.closing = ln, false
	s.mu.Unlock()
	log.Printf("ipc: listening on %s", socketPath)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosing() || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.conns.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Stop closes the listener and waits up to connTimeout for open
// connections to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.closing = true
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-time.After(connTimeout):
		return fmt.Errorf("drain timeout: connections still open after %s", connTimeout)
	}
}

// serve handles the single request of conn.
func (s *Server) serve(conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	resp, after := s.dispatch(conn)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Printf("ipc: write response: %v", err)
	}
	if after != nil {
		after()
	}
}

func (s *Server) dispatch(conn net.Conn) (Response, func()) {
	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return Response{Error: fmt.Sprintf("invalid request: %v", err)}, nil
	}
	h, ok := s.handlers[req.Command]
	if !ok {
		return Response{Error: fmt.Sprintf("unknown command: %q", req.Command)}, nil
	}

	data, after, err := h(req)
	if err != nil {
		return Response{Error: err.Error()}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Response{Error: fmt.Sprintf("encode %s: %v", req.Command, err)}, nil
	}
	return Response{OK: true, Data: raw}, after
}

func (s *Server) status() StatusData {
	data := StatusData{
		Uptime:       s.daemon.Uptime().Truncate(time.Second).String(),
		Passes:       s.daemon.Passes(),
		WatchedPaths: s.watchPaths,
	}
	if err := s.daemon.LastError(); err != nil {
		data.LastError = err.Error()
	}

	// Figures that cannot be read are left at zero.
	if v, err := s.store.DBSizeBytes(); err == nil {
		data.DBSizeBytes = v
	}
	if v, err := s.store.CloneCount(); err == nil {
		data.Rows = v
	}
	if v, err := s.store.GlobalIDCount(); err == nil {
		data.Clones = v
	}
	return data
}

// Package daemon keeps the clone database current: it maps once at start
// and again whenever the report or change-log directories change, until it
// receives SIGINT or SIGTERM or a stop request on its control socket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/highbeam/clonetrack/internal/config"
	"github.com/highbeam/clonetrack/internal/ipc"
	"github.com/highbeam/clonetrack/internal/pipeline"
	"github.com/highbeam/clonetrack/internal/store"
	"github.com/highbeam/clonetrack/internal/watcher"
)

// Daemon manages the lifecycle of a watch session.
type Daemon struct {
	cfg       *config.Config
	store     *store.Store
	watcher   *watcher.Watcher
	server    *ipc.Server
	startTime time.Time

	// OnResult, when set, receives the outcome of every mapping pass.
	OnResult func(*pipeline.Result, error)

	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
	passes  int
	lastErr error
}

// New creates a new Daemon with the given config.
func New(cfg *config.Config) *Daemon {
	return &Daemon{cfg: cfg}
}

// Run opens the store, maps once, then remaps on every settled change of
// the input directories. It blocks until parent is cancelled, a signal
// arrives or Stop is called. A failing pass is logged and the daemon keeps
// watching; the previous clones stay in place.
func (d *Daemon) Run(parent context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("daemon is already running")
	}
	d.running = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	if err := d.cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if err := d.cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	s, err := store.New(d.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	d.store = s

	ctx, cancel := d.signalContext(parent)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()
	d.startTime = time.Now()

	d.mapOnce(ctx)

	roots := []string{d.cfg.ReportDir, d.cfg.ChangeLogDir}
	w := watcher.New(
		roots,
		watcher.NewFilter(d.cfg.IgnorePatterns),
		d.cfg.Watch.Debounce,
		func(ctx context.Context, changed []watcher.Event) error {
			log.Printf("daemon: %d input changes, remapping", len(changed))
			d.mapOnce(ctx)
			return nil
		},
	)
	d.mu.Lock()
	d.watcher = w
	d.mu.Unlock()

	d.server = ipc.NewServer(d, s, roots)
	go func() {
		if err := d.server.Listen(ctx, d.cfg.SocketPath); err != nil {
			log.Printf("daemon: ipc: %v", err)
		}
	}()

	log.Printf("daemon: watching %s and %s (db %s)", d.cfg.ReportDir, d.cfg.ChangeLogDir, d.cfg.DBPath)
	if err := d.watcher.Start(ctx); err != nil {
		log.Printf("daemon: watcher: %v", err)
	}

	return d.shutdown()
}

func (d *Daemon) mapOnce(ctx context.Context) {
	res, err := pipeline.Map(ctx, d.cfg, d.store, pipeline.Options{})
	if err != nil && ctx.Err() == nil {
		log.Printf("daemon: map: %v", err)
	}

	d.mu.Lock()
	d.passes++
	d.lastErr = err
	d.mu.Unlock()

	if d.OnResult != nil {
		d.OnResult(res, err)
	}
}

// Stop triggers a graceful shutdown from outside.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

// Remap queues a mapping pass. It is merged with any pass already waiting
// and never overlaps a running one.
func (d *Daemon) Remap() {
	d.mu.Lock()
	w := d.watcher
	d.mu.Unlock()
	if w != nil {
		w.Trigger("remap")
	}
}

// LastError returns the error of the most recent pass, nil if it succeeded.
func (d *Daemon) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// shutdown performs ordered teardown: control socket, watcher, then store.
func (d *Daemon) shutdown() error {
	if d.server != nil {
		if err := d.server.Stop(); err != nil {
			log.Printf("daemon: ipc stop: %v", err)
		}
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			log.Printf("daemon: store close: %v", err)
		}
	}
	log.Printf("daemon: stopped after %d passes", d.Passes())
	return nil
}

// Running returns true if the daemon is currently running.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Passes returns the number of mapping passes attempted so far.
func (d *Daemon) Passes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.passes
}

// Uptime returns how long the daemon has been running.
func (d *Daemon) Uptime() time.Duration {
	if d.startTime.IsZero() {
		return 0
	}
	return time.Since(d.startTime)
}

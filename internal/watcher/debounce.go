package watcher

import (
	"sort"
	"sync"
	"time"
)

// Event represents a single file system change.
type Event struct {
	Path      string
	Type      string // "create", "modify", "delete", "rename"
	Timestamp time.Time
}

// Debouncer collects events until no new event has arrived for a quiet
// window, then emits the batch: the latest event per path, sorted by path.
// It is safe for concurrent use.
type Debouncer struct {
	window time.Duration
	emit   func([]Event)

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]Event
	stopped bool
}

// NewDebouncer creates a Debouncer that waits for window of silence before
// emitting everything fed since the previous emission.
func NewDebouncer(window time.Duration, emit func([]Event)) *Debouncer {
	return &Debouncer{
		window:  window,
		emit:    emit,
		pending: make(map[string]Event),
	}
}

// Feed records e and restarts the quiet window.
func (d *Debouncer) Feed(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[e.Path] = e

	if d.timer != nil {
		d.timer.Reset(d.window)
		return
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	batch := d.drain()
	d.timer = nil
	d.mu.Unlock()

	if len(batch) > 0 {
		d.emit(batch)
	}
}

// drain empties pending. The caller holds mu.
func (d *Debouncer) drain() []Event {
	if len(d.pending) == 0 {
		return nil
	}
	batch := make([]Event, 0, len(d.pending))
	for _, e := range d.pending {
		batch = append(batch, e)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	d.pending = make(map[string]Event)
	return batch
}

// Stop cancels the pending timer and immediately emits what it was holding.
// After Stop returns, subsequent Feed calls are no-ops.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	batch := d.drain()
	d.mu.Unlock()

	// Emit outside the lock to avoid potential deadlocks in callbacks.
	if len(batch) > 0 {
		d.emit(batch)
	}
}

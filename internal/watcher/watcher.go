// Package watcher reruns a job whenever the files under a set of input
// directories settle after a change.
package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunFunc is the job rerun after changes settle. changed lists the latest
// event per path since the previous run.
type RunFunc func(ctx context.Context, changed []Event) error

// Watcher monitors input directories, filters ignored paths, debounces
// bursts of changes and runs one job at a time.
type Watcher struct {
	roots  []string
	filter *Filter
	window time.Duration
	run    RunFunc

	fsw       *fsnotify.Watcher
	debouncer *Debouncer

	mu     sync.Mutex
	queued []Event
	wake   chan struct{}
}

// New creates a Watcher for roots. Every batch of changes that survives
// the filter and the window of quiet triggers run.
func New(roots []string, filter *Filter, window time.Duration, run RunFunc) *Watcher {
	if filter == nil {
		filter = NewFilter(nil)
	}
	return &Watcher{
		roots:  roots,
		filter: filter,
		window: window,
		run:    run,
		wake:   make(chan struct{}, 1),
	}
}

// Start watches the roots recursively and blocks until ctx is cancelled.
// Batches arriving while a run is in progress are merged and handled by the
// next run, so runs never overlap. Run errors are logged, not fatal.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	w.debouncer = NewDebouncer(w.window, w.enqueue)

	for _, root := range w.roots {
		if err := os.MkdirAll(root, 0755); err != nil {
			log.Printf("watcher: create %s: %v", root, err)
			continue
		}
		if err := w.addRecursive(root); err != nil {
			log.Printf("watcher: walk %s: %v", root, err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.runLoop(ctx)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher: fsnotify error: %v", err)
		}
	}
}

// Stop flushes the debouncer and closes fsnotify. Call it after Start has
// returned; changes flushed at this point are not run.
func (w *Watcher) Stop() {
	if w.debouncer != nil {
		w.debouncer.Stop()
	}
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
}

// Trigger queues a run without a file change. reason is reported as the
// path of a "trigger" event. Runs requested while one is in progress are
// merged like any other batch.
func (w *Watcher) Trigger(reason string) {
	w.enqueue([]Event{{Path: reason, Type: "trigger", Timestamp: time.Now()}})
}

func (w *Watcher) enqueue(batch []Event) {
	w.mu.Lock()
	w.queued = append(w.queued, batch...)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) runLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		}

		w.mu.Lock()
		batch := w.queued
		w.queued = nil
		w.mu.Unlock()
		if len(batch) == 0 {
			continue
		}

		if err := w.run(ctx, batch); err != nil {
			log.Printf("watcher: run after %d changes: %v", len(batch), err)
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if w.ignored(ev.Name) {
		return
	}

	// Newly created directories are watched too.
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(ev.Name)
		}
	}

	eventType := mapEventType(ev.Op)
	if eventType == "" {
		return
	}

	w.debouncer.Feed(Event{
		Path:      ev.Name,
		Type:      eventType,
		Timestamp: time.Now(),
	})
}

// ignored matches path against the filter relative to the root holding it.
func (w *Watcher) ignored(path string) bool {
	for _, root := range w.roots {
		if rel, ok := within(root, path); ok {
			return w.filter.ShouldIgnore(rel)
		}
	}
	return w.filter.ShouldIgnore(filepath.Base(path))
}

func within(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// addRecursive walks root and adds every directory that is not ignored.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		_ = w.fsw.Add(path)
		return nil
	})
}

// mapEventType converts fsnotify.Op to a string event type.
func mapEventType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Remove):
		return "delete"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Write):
		return "modify"
	default:
		return "" // e.g. Chmod only
	}
}

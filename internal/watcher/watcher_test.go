package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterDefaultPatterns(t *testing.T) {
	f := NewFilter(nil)

	cases := []struct {
		path string
		want bool
	}{
		{".git/config", true},
		{"a/.git/HEAD", true},
		{".DS_Store", true},
		{"7.swp", true},
		{"reports/12.tmp", true},
		{"12.tmp.3", true},
		{"notes~", true},
		{"12", false},
		{"reports/12", false},
		{".", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, f.ShouldIgnore(tc.path), tc.path)
	}
}

func TestFilterCustomPatterns(t *testing.T) {
	f := NewFilter([]string{"*.log", "archive/**", ".*", " ", "[bad"})

	cases := []struct {
		path string
		want bool
	}{
		{"run.log", true},
		{"x/run.log", true},
		{"archive/3", true},
		{"archive/old/3", true},
		{"other/archive", false},
		{".hidden", true},
		{"dir/.cache/1", true},
		{"4", false},
		{filepath.Join("nested", "5"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, f.ShouldIgnore(tc.path), tc.path)
	}
}

// batches records debouncer output.
type batches struct {
	mu  sync.Mutex
	got [][]Event
}

func (b *batches) emit(batch []Event) {
	b.mu.Lock()
	b.got = append(b.got, batch)
	b.mu.Unlock()
}

func (b *batches) snapshot() [][]Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]Event(nil), b.got...)
}

func TestDebouncerBurstIsOneBatch(t *testing.T) {
	var b batches
	d := NewDebouncer(50*time.Millisecond, b.emit)
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Feed(Event{Path: "/r/2", Type: "modify", Timestamp: time.Now()})
		d.Feed(Event{Path: "/r/1", Type: "create", Timestamp: time.Now()})
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(b.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := b.snapshot()[0]
	require.Len(t, got, 2)
	assert.Equal(t, "/r/1", got[0].Path)
	assert.Equal(t, "/r/2", got[1].Path)

	time.Sleep(100 * time.Millisecond)
	assert.Len(t, b.snapshot(), 1)
}

func TestDebouncerKeepsLastEventPerPath(t *testing.T) {
	var b batches
	d := NewDebouncer(30*time.Millisecond, b.emit)
	defer d.Stop()

	d.Feed(Event{Path: "/a", Type: "create"})
	d.Feed(Event{Path: "/a", Type: "modify"})

	require.Eventually(t, func() bool { return len(b.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "modify", b.snapshot()[0][0].Type)
}

func TestDebouncerStopDrains(t *testing.T) {
	var b batches
	d := NewDebouncer(5*time.Second, b.emit)

	d.Feed(Event{Path: "/x", Type: "create"})
	d.Feed(Event{Path: "/y", Type: "modify"})
	d.Stop()

	got := b.snapshot()
	require.Len(t, got, 1)
	assert.Len(t, got[0], 2)

	d.Feed(Event{Path: "/z", Type: "create"})
	d.Stop()
	assert.Len(t, b.snapshot(), 1)
}

func startWatcher(t *testing.T, roots []string, filter *Filter, run RunFunc) *Watcher {
	t.Helper()
	w := New(roots, filter, 50*time.Millisecond, run)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		w.Stop()
	})
	// fsnotify registration happens inside Start.
	time.Sleep(100 * time.Millisecond)
	return w
}

func TestWatcherRunsAfterChangesSettle(t *testing.T) {
	reports := t.TempDir()
	changes := t.TempDir()

	var mu sync.Mutex
	var seen []string
	startWatcher(t, []string{reports, changes}, nil, func(_ context.Context, batch []Event) error {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range batch {
			seen = append(seen, e.Path)
		}
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(reports, "3"), []byte("<clones/>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(changes, "3"), []byte("a:1:+\n"), 0644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return contains(seen, filepath.Join(reports, "3")) && contains(seen, filepath.Join(changes, "3"))
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherSkipsIgnoredFiles(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32
	startWatcher(t, []string{root}, NewFilter([]string{".*"}), func(context.Context, []Event) error {
		runs.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(root, ".partial"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "4.swp"), []byte("x"), 0644))
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, runs.Load())

	require.NoError(t, os.WriteFile(filepath.Join(root, "4"), []byte("x"), 0644))
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherRunsDoNotOverlap(t *testing.T) {
	root := t.TempDir()
	var active, maxActive, runs atomic.Int32
	startWatcher(t, []string{root}, nil, func(context.Context, []Event) error {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		time.Sleep(150 * time.Millisecond)
		active.Add(-1)
		runs.Add(1)
		return nil
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "f"), []byte{byte(i)}, 0644))
		time.Sleep(120 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestWatcherWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	var mu sync.Mutex
	var seen []string
	startWatcher(t, []string{root}, nil, func(_ context.Context, batch []Event) error {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range batch {
			seen = append(seen, e.Path)
		}
		return nil
	})

	sub := filepath.Join(root, "branch")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "1"), []byte("x"), 0644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return contains(seen, filepath.Join(sub, "1"))
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherTriggerRunsWithoutChanges(t *testing.T) {
	root := t.TempDir()
	var mu sync.Mutex
	var got []Event
	w := startWatcher(t, []string{root}, nil, func(_ context.Context, batch []Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, batch...)
		return nil
	})

	w.Trigger("remap")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0].Path == "remap" && got[0].Type == "trigger"
	}, 3*time.Second, 20*time.Millisecond)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

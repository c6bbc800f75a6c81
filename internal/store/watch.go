package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	watchDebounce     = 200 * time.Millisecond
	watchPollInterval = 10 * time.Second
	selfWriteWindow   = time.Second
)

// Watcher observes the database file so that a second fieldops process (say,
// the office machine and a crew laptop on a shared drive) sees the other's
// writes without any locking. Cooperative, not transactional.
type Watcher struct {
	store    *Store
	onChange func()
	logger   *slog.Logger

	mu            sync.Mutex
	lastSelfWrite time.Time
	lastMod       time.Time
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher that invokes onChange after external writes to
// the store's database file. The store itself reports nothing to watch when
// it is in-memory; Start is then a no-op.
func NewWatcher(s *Store, onChange func(), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{store: s, onChange: onChange, logger: logger}
	s.observers.subscribe(CollectionWorkOrders, w.markSelfWrite)
	s.observers.subscribe(CollectionProgress, w.markSelfWrite)
	s.observers.subscribe(CollectionSettings, w.markSelfWrite)
	return w
}

func (w *Watcher) markSelfWrite() {
	w.mu.Lock()
	w.lastSelfWrite = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) recentSelfWrite() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Since(w.lastSelfWrite) < selfWriteWindow
}

// Start watches until ctx is cancelled. Falls back to poll-only mode when
// fsnotify cannot initialize.
func (w *Watcher) Start(ctx context.Context) {
	path := w.store.Path()
	if path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("fsnotify unavailable, polling only", "error", err)
		w.pollLoop(ctx)
		return
	}
	defer watcher.Close()

	// Watch the directory: SQLite writes land in the -wal sibling, and
	// watching the file itself misses rename-style checkpoints.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		w.logger.Warn("watch failed, polling only", "dir", filepath.Dir(path), "error", err)
		w.pollLoop(ctx)
		return
	}

	base := filepath.Base(path)
	poll := time.NewTicker(watchPollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(ev.Name)
			if name != base && name != base+"-wal" {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleNotify()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		case <-poll.C:
			// Fallback tick for filesystems fsnotify misses (network mounts).
			w.pollCheck()
		}
	}
}

func (w *Watcher) pollLoop(ctx context.Context) {
	poll := time.NewTicker(watchPollInterval)
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			w.pollCheck()
		}
	}
}

// pollCheck notifies only when the file's mtime moved since the last check.
func (w *Watcher) pollCheck() {
	mod := latestModTime(w.store.Path())
	w.mu.Lock()
	changed := !w.lastMod.IsZero() && mod.After(w.lastMod)
	w.lastMod = mod
	w.mu.Unlock()
	if changed {
		w.scheduleNotify()
	}
}

func latestModTime(path string) time.Time {
	var latest time.Time
	for _, p := range []string{path, path + "-wal"} {
		if info, err := os.Stat(p); err == nil && info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest
}

// scheduleNotify coalesces event bursts into one callback and suppresses
// changes caused by this process's own writes.
func (w *Watcher) scheduleNotify() {
	if w.recentSelfWrite() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(watchDebounce, w.onChange)
}

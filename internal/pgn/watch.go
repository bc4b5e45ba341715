package pgn

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"chessprep/internal/store"
)

// ImportedFunc is notified after each watched file finishes importing,
// successfully or not.
type ImportedFunc func(path string, summary Summary, err error)

// Watcher monitors a drop directory and imports PGN files once writes have
// settled. Rapid successive writes to the same file are debounced so a file
// still being copied in is not imported half-written.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	store       *store.Store
	dir         string
	log         *zap.Logger
	onImported  ImportedFunc
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher prepares a watcher over dir. A zero debounce selects the 500ms
// default. Call Start to begin watching.
func NewWatcher(st *store.Store, dir string, debounce time.Duration, log *zap.Logger, onImported ImportedFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		watcher:     fsw,
		store:       st,
		dir:         dir,
		log:         log,
		onImported:  onImported,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start creates the drop directory if needed and begins watching it. It is
// non-blocking; the watch loop runs until Stop or context cancellation. On
// failure no loop is launched and the watcher is not marked running.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	w.running = true
	w.log.Info("watching for pgn files", zap.String("dir", w.dir))

	go w.run(ctx)
	return nil
}

// Stop halts the watch loop, waits for it to drain, and releases the
// underlying filesystem watcher. Safe to call whether or not Start
// succeeded; a stopped watcher cannot be started again.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}

	if err := w.watcher.Close(); err != nil {
		w.log.Warn("closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-ticker.C:
			w.importSettled()
		}
	}
}

func isPGNPath(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".pgn") || strings.HasSuffix(lower, ".pgn.zst")
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !isPGNPath(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.debounceMap[event.Name] = time.Now()
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(w.debounceMap, event.Name)
	}
}

// importSettled imports every file whose last write is older than the
// debounce window. Imports run outside the lock; they can be slow.
func (w *Watcher) importSettled() {
	w.mu.Lock()
	var settled []string
	now := time.Now()
	for path, last := range w.debounceMap {
		if now.Sub(last) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		summary, err := ImportFile(w.store, path, w.log, nil)
		if err != nil {
			w.log.Error("watched import failed", zap.String("path", path), zap.Error(err))
		}
		if w.onImported != nil {
			w.onImported(path, summary, err)
		}
	}
}

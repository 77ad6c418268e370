package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads stores when their files are edited outside the process.
// It watches the parent directories rather than the files themselves so
// editors that save by rename are picked up too.
type Watcher struct {
	watcher  *fsnotify.Watcher
	stores   map[string]*Store // absolute file path -> store
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher for the given stores.
func NewWatcher(stores ...*Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating registry watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		stores:   make(map[string]*Store, len(stores)),
		debounce: 250 * time.Millisecond,
		pending:  make(map[string]*time.Timer),
	}

	dirs := map[string]bool{}
	for _, s := range stores {
		abs, err := filepath.Abs(s.Path())
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolving %s: %w", s.Path(), err)
		}
		w.stores[abs] = s
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			if s, ok := w.stores[filepath.Clean(evt.Name)]; ok {
				w.schedule(evt.Name, s)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("registry watcher error", "error", err)
		}
	}
}

// schedule coalesces bursts of events for one file into a single reload.
func (w *Watcher) schedule(path string, s *Store) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if err := s.Reload(); err != nil {
			slog.Warn("registry reload skipped", "registry", s.Name(), "error", err)
			return
		}
		slog.Debug("registry reloaded", "registry", s.Name(), "entries", s.Len())
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}

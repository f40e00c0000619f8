// Package watcher auto-ingests manual files dropped into watched directories.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce absorbs the burst of write events editors and copies produce for
// a single file before it is ingested.
const debounce = 400 * time.Millisecond

// IngestFunc receives the path of a changed file that matched the extension
// filter. It is called from the watcher goroutine after the debounce window.
type IngestFunc func(path string)

// Watcher watches directories and feeds changed manual files to an ingest
// callback.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	ingest     IngestFunc
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	started bool
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher over roots. extensions filters which files are
// ingested (empty matches everything); recursive also watches
// subdirectories.
func New(roots, extensions []string, recursive bool, ingest IngestFunc, opts ...Option) *Watcher {
	w := &Watcher{
		roots:      roots,
		extensions: extensions,
		recursive:  recursive,
		ingest:     ingest,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It returns once the watch is established; events
// are handled on a background goroutine until ctx is cancelled or Stop is
// called. Missing roots are created. A stopped watcher may be started
// again.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.done = make(chan struct{})
	w.started = true
	for _, root := range w.roots {
		if err := w.watchRootLocked(root); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	done := w.done
	w.mu.Unlock()

	w.logger.Info("watching for manuals",
		zap.Strings("directories", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	go w.run(ctx, fsw, done)
	return nil
}

func (w *Watcher) watchRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	if !w.recursive {
		return w.fsw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err == nil && info.IsDir() {
			w.watchNewDirectory(ev.Name)
			return
		}
		if w.matches(ev.Name) {
			w.scheduleIngest(ev.Name)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancelIngest(ev.Name)
	}
}

func (w *Watcher) watchNewDirectory(path string) {
	if !w.recursive {
		return
	}
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	if err := fsw.Add(path); err != nil {
		w.logger.Debug("failed to watch new directory", zap.String("path", path), zap.Error(err))
		return
	}
	// Files copied in along with the directory never produce their own
	// create events, so sweep it once.
	w.syncDirectory(path)
}

func (w *Watcher) matches(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) scheduleIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.logger.Debug("ingesting changed file", zap.String("path", path))
		w.ingest(path)
	})
}

func (w *Watcher) cancelIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) syncDirectory(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if w.matches(path) {
			w.ingest(path)
		}
		return nil
	})
}

// SyncExisting ingests every matching file already present under the watched
// roots. Call it after Start so manuals that predate the watch are loaded.
func (w *Watcher) SyncExisting() {
	for _, root := range w.roots {
		w.syncDirectory(root)
	}
}

// Stop stops watching and releases resources. It is safe to call more than
// once, and the watcher can be started again afterwards.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started || w.fsw == nil {
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	close(w.done)
}

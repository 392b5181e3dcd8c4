package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed is returned when the filesystem watcher cannot start.
var ErrWatcherFailed = errors.New("registry watcher failed")

// ReloadEvent reports one reload triggered by a file change.
type ReloadEvent struct {
	Path   string
	Loaded int
	Err    error
}

// Watcher reloads a registry whenever its JSON file changes on disk.
type Watcher struct {
	reg     *Registry
	path    string
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	events  chan ReloadEvent
	stop    chan struct{}
	once    sync.Once
}

// NewWatcher creates a watcher for path. The containing directory is
// watched so atomic replace-by-rename is observed.
func NewWatcher(reg *Registry, path string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	return &Watcher{
		reg:     reg,
		path:    abs,
		logger:  logger,
		watcher: w,
		events:  make(chan ReloadEvent, 8),
		stop:    make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine until ctx is done or Stop
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("%w: watching %s: %v", ErrWatcherFailed, filepath.Dir(w.path), err)
	}
	go w.run(ctx)
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}

// Events delivers reload results. Events are dropped when nobody reads.
func (w *Watcher) Events() <-chan ReloadEvent {
	return w.events
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			w.Stop()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("registry watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	n, err := w.reg.Reload(w.path)
	if err != nil {
		w.logger.Warn("registry reload incomplete", zap.String("path", w.path), zap.Int("loaded", n), zap.Error(err))
	} else {
		w.logger.Info("registry reloaded", zap.String("path", w.path), zap.Int("loaded", n))
	}
	select {
	case w.events <- ReloadEvent{Path: w.path, Loaded: n, Err: err}:
	default:
	}
}

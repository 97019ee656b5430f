package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives the freshly loaded configuration after the watched
// file changes on disk.
type ReloadFunc func(*Config)

// Watcher reloads the configuration when its file changes. Editors often
// write config files with a rename-and-replace dance, so rename and create
// events are treated the same as writes.
type Watcher struct {
	path     string
	onReload ReloadFunc
	logger   *slog.Logger

	mu      sync.Mutex
	fw      *fsnotify.Watcher
	pending *time.Timer
}

// NewWatcher creates a watcher for the config file at path. The reload
// callback runs on the watcher goroutine.
func NewWatcher(path string, onReload ReloadFunc, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory rather than the file so atomic replaces keep
	// being observed after the inode changes.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{path: path, onReload: onReload, logger: logger, fw: fw}, nil
}

// Run processes file events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

// scheduleReload debounces bursts of events from a single save.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(100*time.Millisecond, func() {
		cfg, err := Load(w.path)
		if err != nil {
			w.logger.Warn("config reload failed, keeping previous", "path", w.path, "error", err)
			return
		}
		w.logger.Info("config reloaded", "path", w.path)
		w.onReload(cfg)
	})
}

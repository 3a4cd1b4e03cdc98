package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads the CONFIG_FILE overlay on change. Development
// only; in other environments it is a passive holder of the initial
// configuration.
type Watcher struct {
	mu        sync.RWMutex
	config    *Config
	path      string
	callbacks []func(*Config)
	logger    *zap.Logger
	fs        *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewWatcher wraps an initial configuration. When path is non-empty and
// the environment is development, changes to the file are picked up
// after a short debounce.
func NewWatcher(initial *Config, path string, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{
		config: initial,
		path:   path,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	if path == "" || !initial.IsDevelopment() {
		logger.Info("config hot reloading disabled",
			zap.String("environment", string(initial.Environment)))
		return w, nil
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fs.Add(path); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	w.fs = fs
	go w.loop()
	logger.Info("config hot reloading enabled", zap.String("path", path))
	return w, nil
}

// Current returns the active configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// OnChange registers a callback invoked with each reloaded configuration.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Stop halts watching. Safe to call when watching never started.
func (w *Watcher) Stop() {
	if w.fs == nil {
		return
	}
	close(w.stopCh)
}

func (w *Watcher) loop() {
	defer w.fs.Close()

	var debounce *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.Reload)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Reload re-applies the overlay file immediately, swapping the active
// configuration and notifying callbacks only when the result validates.
// The watch loop calls this after a debounced file event; it may also be
// called directly to force a reload.
func (w *Watcher) Reload() {
	if w.path == "" {
		return
	}
	w.mu.Lock()
	fresh := *w.config
	err := fresh.applyFile(w.path)
	if err == nil {
		err = fresh.Validate()
	}
	if err != nil {
		w.mu.Unlock()
		w.logger.Warn("config reload rejected", zap.Error(err))
		return
	}
	w.config = &fresh
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	w.logger.Info("config reloaded", zap.String("path", w.path))
	for _, fn := range callbacks {
		fn(&fresh)
	}
}

package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches the YAML config file for changes and hot-reloads it,
// the way the teacher's ConfigWatcher debounces fsnotify write/create
// events before reloading and validating.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *Config
	mu       sync.RWMutex
	onChange []func(*Config)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewWatcher loads path once and arms an fsnotify watch on it and its
// parent directory (atomic saves show up as a rename in the directory).
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		logger.Warn("failed to watch config directory", zap.Error(err))
	}

	return &Watcher{
		path:    path,
		watcher: fw,
		current: cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins the watch loop in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
	w.logger.Info("config watcher started", zap.String("path", w.path))
}

// Stop tears down the fsnotify watch.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	w.logger.Info("config watcher stopped")
}

func (w *Watcher) loop() {
	var debounce *time.Timer
	const debounceDuration = 150 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDuration, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	w.logger.Info("config file changed, reloading", zap.String("path", w.path))
	next, err := Load(w.path)
	if err != nil {
		w.logger.Error("failed to reload config, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = next
	handlers := append([]func(*Config){}, w.onChange...)
	w.mu.Unlock()

	for _, h := range handlers {
		go h(next)
	}
	w.logger.Info("config reloaded successfully")
}

// OnChange registers a callback invoked (in its own goroutine) after a
// successful reload.
func (w *Watcher) OnChange(handler func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// Current returns the currently active configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

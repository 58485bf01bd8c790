package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 500 * time.Millisecond

// ConfigWatcher reloads the YAML configuration file when it changes and
// notifies registered callbacks with the new, validated configuration.
type ConfigWatcher struct {
	loader    *Loader
	config    *Config
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// NewConfigWatcher starts watching the loader's file. Without a file there is
// nothing to watch and the watcher only serves the initial configuration.
func NewConfigWatcher(loader *Loader, initial *Config, logger *zap.Logger) (*ConfigWatcher, error) {
	w := &ConfigWatcher{
		loader:    loader,
		config:    initial,
		callbacks: make([]func(*Config), 0),
		logger:    logger,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}

	if loader.Path() == "" {
		close(w.done)
		logger.Debug("Configuration hot reloading disabled, no config file")
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory and filter by name.
	if err := fsWatcher.Add(filepath.Dir(loader.Path())); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config dir: %w", err)
	}
	w.watcher = fsWatcher

	go w.watchLoop()

	logger.Info("Configuration hot reloading enabled",
		zap.String("file", loader.Path()),
	)
	return w, nil
}

func (w *ConfigWatcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	target := filepath.Clean(w.loader.Path())
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Info("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			w.logger.Info("Stopping configuration watcher")
			return
		}
	}
}

func (w *ConfigWatcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}

	newConfig, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload, keeping previous", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.config
	w.config = newConfig
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	if changes := diffConfigs(old, newConfig); len(changes) > 0 {
		w.logger.Info("Configuration changes detected", zap.Strings("changes", changes))
	}

	for i, cb := range callbacks {
		func(idx int, cb func(*Config)) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Callback panicked",
						zap.Int("callback_index", idx),
						zap.Any("panic", r),
					)
				}
			}()
			cb(newConfig)
		}(i, cb)
	}

	w.logger.Info("Configuration reloaded successfully",
		zap.Int("callbacks_notified", len(callbacks)),
	)
}

// OnChange registers a callback to be called when configuration changes.
func (w *ConfigWatcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// GetConfig returns the current configuration.
func (w *ConfigWatcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops the watcher and waits for its loop to exit. Safe to call twice.
func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.done
}

func diffConfigs(old, new *Config) []string {
	changes := make([]string, 0)
	if old == nil {
		return changes
	}
	if old.LogLevel != new.LogLevel {
		changes = append(changes, fmt.Sprintf("log_level: %s -> %s", old.LogLevel, new.LogLevel))
	}
	if old.Graph.PollInterval != new.Graph.PollInterval {
		changes = append(changes, fmt.Sprintf("poll_interval: %s -> %s", old.Graph.PollInterval, new.Graph.PollInterval))
	}
	if old.Cache.TTL != new.Cache.TTL {
		changes = append(changes, fmt.Sprintf("cache_ttl: %s -> %s", old.Cache.TTL, new.Cache.TTL))
	}
	if old.Cache.SaveInterval != new.Cache.SaveInterval {
		changes = append(changes, fmt.Sprintf("cache_save_interval: %s -> %s", old.Cache.SaveInterval, new.Cache.SaveInterval))
	}
	if old.Events.PublishInterval != new.Events.PublishInterval {
		changes = append(changes, fmt.Sprintf("event_publish_interval: %s -> %s", old.Events.PublishInterval, new.Events.PublishInterval))
	}
	return changes
}

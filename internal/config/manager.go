package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/leonardotrapani/livescribe/internal/observable"
)

var (
	pkgLogMu  sync.RWMutex
	pkgLogger = log.Default().WithPrefix("config")
)

// SetLogger replaces the logger used by Load and Manager.
func SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	pkgLogMu.Lock()
	pkgLogger = l
	pkgLogMu.Unlock()
}

func logger() *log.Logger {
	pkgLogMu.RLock()
	defer pkgLogMu.RUnlock()
	return pkgLogger
}

// Manager holds the current configuration and reloads it when the file
// changes. Subscribers receive every configuration that passed validation.
type Manager struct {
	path    string
	mu      sync.RWMutex
	config  *Config
	watcher *fsnotify.Watcher
	updates *observable.Broadcaster[*Config]
	wg      sync.WaitGroup
}

// NewManager loads path, or the default path when empty. A missing file
// yields DefaultConfig.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	config, err := LoadFile(path)
	switch {
	case errors.Is(err, ErrConfigNotFound):
		logger().Warn("no config file, using defaults", "path", path)
		config = DefaultConfig()
	case err != nil:
		logger().Error("failed to load initial configuration", "err", err)
		return nil, err
	}

	if err := config.Validate(); err != nil {
		logger().Warn("validation warning", "err", err)
	}

	return &Manager{
		path:    path,
		config:  config,
		updates: observable.NewBroadcaster[*Config](),
	}, nil
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent external modification
	configCopy := *m.config
	return &configCopy
}

// Updates streams reloaded configurations.
func (m *Manager) Updates() (<-chan *Config, func()) {
	return m.updates.Subscribe()
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// watch the directory so editors that replace the file are seen
	configDir := filepath.Dir(m.path)
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	logger().Info("watching for changes", "path", m.path)
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
	m.updates.Close()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != configFileName {
				continue
			}

			// Only react to Write and Create events (ignore Chmod, Remove, etc.)
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				logger().Debug("file change detected", "file", event.Name)
				m.reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			logger().Warn("watcher error", "err", err)

		case <-ctx.Done():
			return
		}
	}
}

// reload keeps the previous configuration when the new file is invalid.
func (m *Manager) reload() {
	newConfig, err := LoadFile(m.path)
	if err != nil {
		logger().Warn("failed to reload config", "err", err)
		return
	}

	if err := newConfig.Validate(); err != nil {
		logger().Warn("invalid config after reload", "err", err)
		return
	}

	m.mu.Lock()
	m.config = newConfig
	m.mu.Unlock()

	logger().Info("configuration reloaded")
	configCopy := *newConfig
	m.updates.Publish(&configCopy)
}

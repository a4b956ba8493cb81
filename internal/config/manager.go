package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Manager holds the current configuration and reloads it when the
// config file changes on disk. The loaded Config value is immutable;
// a reload swaps the pointer and notifies the callback so callers can
// rebuild their services from the new value.
type Manager struct {
	mu      sync.RWMutex
	config  *Config
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewManager() (*Manager, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Manager{config: config}, nil
}

// Get returns the current configuration snapshot.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Watch reloads the configuration on file changes until ctx is done.
// onReload receives every successfully validated new configuration.
func (m *Manager) Watch(ctx context.Context, onReload func(*Config)) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace the file, which drops a
	// watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(configPath) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				m.reload(onReload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watcher error: %v", err)
			}
		}
	}()

	return nil
}

func (m *Manager) reload(onReload func(*Config)) {
	config, err := Load()
	if err != nil {
		log.Printf("config: reload failed, keeping previous configuration: %v", err)
		return
	}
	if err := config.Validate(); err != nil {
		log.Printf("config: reloaded configuration invalid, keeping previous: %v", err)
		return
	}

	m.mu.Lock()
	m.config = config
	m.mu.Unlock()

	log.Printf("config: configuration reloaded")
	if onReload != nil {
		onReload(config)
	}
}

// Wait blocks until the watch goroutine exits.
func (m *Manager) Wait() {
	m.wg.Wait()
}

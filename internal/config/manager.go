package config

import (
	"sync"
)

// OnUpdateFunc is called whenever the configuration is reloaded.
type OnUpdateFunc func(old, new *Config)

// Manager holds the current configuration and notifies subscribers when
// it changes. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	cfg      *Config
	path     string
	onUpdate []OnUpdateFunc
	watcher  *Watcher
}

// NewManager loads configuration from path and returns a Manager bound
// to it. An empty path returns a Manager over DefaultConfig with no
// file to reload from.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		return &Manager{cfg: DefaultConfig()}, nil
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, path: path}, nil
}

// Get returns the current configuration. The returned pointer must not
// be mutated; callers that need a private copy should take their own
// snapshot of the fields they use.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// OnUpdate registers fn to be called after every successful Reload.
func (m *Manager) OnUpdate(fn OnUpdateFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = append(m.onUpdate, fn)
}

// Reload re-reads the configuration file at the path the Manager was
// created with and swaps it in if parsing and validation succeed. A
// Manager with no backing path returns ErrFileNotFound.
func (m *Manager) Reload() error {
	if m.path == "" {
		return ErrFileNotFound
	}
	next, err := LoadConfig(m.path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	old := m.cfg
	m.cfg = next
	callbacks := append([]OnUpdateFunc(nil), m.onUpdate...)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(old, next)
	}
	return nil
}

// WatchForChanges starts an fsnotify watch on the Manager's backing file
// and calls Reload whenever it is written. The returned Watcher must be
// closed by the caller to stop watching. A Manager with no backing path
// returns ErrFileNotFound.
func (m *Manager) WatchForChanges() (*Watcher, error) {
	if m.path == "" {
		return nil, ErrFileNotFound
	}
	w, err := newWatcher(m.path, func() {
		_ = m.Reload()
	})
	if err != nil {
		return nil, err
	}
	m.watcher = w
	return w, nil
}

package printer

import (
	"sync"

	"github.com/go-faster/errors"
)

// Manager holds the configured printers by id, in the order they were added.
type Manager struct {
	targets []Target
	mu      sync.RWMutex
}

// NewManager parses target strings such as "counter=network://10.0.0.5:9100".
func NewManager(targets []string) (*Manager, error) {
	m := &Manager{}
	for _, raw := range targets {
		t, err := ParseTarget(raw)
		if err != nil {
			return nil, err
		}
		if err := m.Add(t); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Get returns the printer with the given id.
func (m *Manager) Get(id string) (Target, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.targets {
		if t.ID == id {
			return t, true
		}
	}
	return Target{}, false
}

// All returns the configured printers.
func (m *Manager) All() []Target {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Target, len(m.targets))
	copy(out, m.targets)
	return out
}

// Add registers a printer. Ids must be unique.
func (m *Manager) Add(t Target) error {
	if t.ID == "" {
		return errors.New("printer id is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.targets {
		if existing.ID == t.ID {
			return errors.Errorf("printer %q already configured", t.ID)
		}
	}
	m.targets = append(m.targets, t)
	return nil
}

// Remove unregisters a printer and reports whether it existed.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.targets {
		if t.ID == id {
			m.targets = append(m.targets[:i], m.targets[i+1:]...)
			return true
		}
	}
	return false
}

package store

import (
	"context"
	"sync"
)

// Memory is an in-process store. Values are lost on exit.
type Memory struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

// Update runs fn under the store lock.
func (m *Memory) Update(_ context.Context, key string, fn func(value string, ok bool) (string, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	next, err := fn(v, ok)
	if err != nil {
		return err
	}
	m.data[key] = next
	return nil
}

func (m *Memory) Close() error {
	return nil
}

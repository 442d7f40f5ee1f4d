package prefs

import (
	"maps"
	"sync"
)

// Store is the native preference store a Bridge delegates to.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns Absent, not an error, for a missing key.
	Get(key string) (Value, error)

	// Set stores v. Setting Absent removes the key.
	Set(key string, v Value) error

	Remove(key string) error

	// All returns every stored entry.
	All() (map[string]Value, error)

	// Reset removes every stored entry.
	Reset() error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]Value
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]Value)}
}

func (m *MemoryStore) Get(key string) (Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *MemoryStore) Set(key string, v Value) error {
	if v.IsAbsent() {
		return m.Remove(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = v
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) All() (map[string]Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values), nil
}

func (m *MemoryStore) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.values)
	return nil
}

package store

import (
	"sync"
)

// MemStore is a volatile StringStorer keeping everything in a map. Nothing survives a restart
type MemStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemStore returns a new empty MemStore
func NewMemStore() (ms *MemStore) {
	return &MemStore{data: make(map[string]string)}
}

// GetString returns the value for a key or an error caused by ErrNotFound
func (ms *MemStore) GetString(key string) (value string, err error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	value, ok := ms.data[key]
	if !ok {
		return "", notFound(key)
	}

	return value, nil
}

// PutString sets the value of a key
func (ms *MemStore) PutString(key string, value string) (err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.data[key] = value
	return nil
}

// DeleteString removes a key
func (ms *MemStore) DeleteString(key string) (err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.data, key)
	return nil
}

// Scan returns a copy of all entries
func (ms *MemStore) Scan() (entries map[string]string, err error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entries = make(map[string]string, len(ms.data))
	for k, v := range ms.data {
		entries[k] = v
	}

	return entries, nil
}

// Close does nothing
func (ms *MemStore) Close() (err error) {
	return nil
}

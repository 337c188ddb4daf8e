package inmemorydb

import (
	"sync"

	"github.com/alexandre-normand/chatrelay/store"
)

// InMemoryDB implements the store.StringStorer interface and keeps a copy of everything in
// memory while writing through puts and deletes to the wrapped (persistent) StringStorer
type InMemoryDB struct {
	persistentStorer store.StringStorer
	mu               sync.RWMutex
	data             map[string]string
}

// New returns a new instance of InMemoryDB wrapping the persistent StringStorer. The current
// content of the persistent storer is loaded with an initial scan
func New(storer store.StringStorer) (imdb *InMemoryDB, err error) {
	imdb = new(InMemoryDB)
	imdb.persistentStorer = storer

	imdb.data, err = imdb.persistentStorer.Scan()
	if err != nil {
		return nil, err
	}

	return imdb, nil
}

// GetString returns the value associated to a given key
func (imdb *InMemoryDB) GetString(key string) (value string, err error) {
	imdb.mu.RLock()
	defer imdb.mu.RUnlock()

	v, ok := imdb.data[key]
	if !ok {
		return "", store.NotFound(key)
	}

	return v, nil
}

// PutString persists the key/value and then keeps it in memory
func (imdb *InMemoryDB) PutString(key string, value string) (err error) {
	imdb.mu.Lock()
	defer imdb.mu.Unlock()

	if err = imdb.persistentStorer.PutString(key, value); err != nil {
		return err
	}

	imdb.data[key] = value
	return nil
}

// DeleteString deletes the entry from the persistent storer first and then from memory
func (imdb *InMemoryDB) DeleteString(key string) (err error) {
	imdb.mu.Lock()
	defer imdb.mu.Unlock()

	if err = imdb.persistentStorer.DeleteString(key); err != nil {
		return err
	}

	delete(imdb.data, key)
	return nil
}

// Scan returns a copy of the in-memory key/values without querying the persistent storer
func (imdb *InMemoryDB) Scan() (entries map[string]string, err error) {
	imdb.mu.RLock()
	defer imdb.mu.RUnlock()

	entries = make(map[string]string, len(imdb.data))
	for k, v := range imdb.data {
		entries[k] = v
	}

	return entries, nil
}

// Close closes the underlying storer
func (imdb *InMemoryDB) Close() (err error) {
	return imdb.persistentStorer.Close()
}

package store

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
)

// LevelDB holds a database name and its leveldb instance
type LevelDB struct {
	Name     string
	database *leveldb.DB
}

// NewLevelDB opens the leveldb database with the given name under storagePath. If the
// database doesn't exist, one is created
func NewLevelDB(name string, storagePath string) (ldb *LevelDB, err error) {
	// Expand '~' as the full home directory path if appropriate
	path, err := homedir.Expand(storagePath)
	if err != nil {
		return nil, err
	}

	fullPath := filepath.Join(path, name)
	db, err := leveldb.OpenFile(fullPath, nil)

	if _, ok := err.(*leveldberrors.ErrCorrupted); ok {
		return nil, errors.Wrap(err, fmt.Sprintf("leveldb corrupted. Consider deleting [%s] and restarting if you're ok with losing links", fullPath))
	} else if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to open file with path [%s]", fullPath))
	}

	return &LevelDB{name, db}, nil
}

// Close closes the LevelDB
func (ldb *LevelDB) Close() (err error) {
	return ldb.database.Close()
}

// GetString retrieves the value associated to the key
func (ldb *LevelDB) GetString(key string) (value string, err error) {
	val, err := ldb.database.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return "", notFound(key)
	} else if err != nil {
		return "", errors.Wrapf(err, "failed to get [%s]", key)
	}

	return string(val), nil
}

// PutString adds or updates the value associated to the key. Each put is a single leveldb write
// so it replaces any previous value atomically
func (ldb *LevelDB) PutString(key string, value string) (err error) {
	return ldb.database.Put([]byte(key), []byte(value), nil)
}

// DeleteString deletes the entry for the given key
func (ldb *LevelDB) DeleteString(key string) (err error) {
	return ldb.database.Delete([]byte(key), nil)
}

// Scan returns the complete set of key/values from the database
func (ldb *LevelDB) Scan() (entries map[string]string, err error) {
	entries = map[string]string{}
	iter := ldb.database.NewIterator(nil, nil)
	for iter.Next() {
		entries[string(iter.Key())] = string(iter.Value())
	}

	iter.Release()
	err = iter.Error()

	return entries, err
}

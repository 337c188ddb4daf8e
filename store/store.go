// Package store defines the storage interfaces used to persist relay state along with
// a leveldb implementation. Other implementations live in subpackages
package store

import (
	"io"

	"github.com/pkg/errors"
)

// ErrNotFound is the cause of errors returned when a key has no value
var ErrNotFound = errors.New("not found")

// StringStorer is implemented by any value that has the GetString, PutString, DeleteString and Scan methods
type StringStorer interface {
	io.Closer
	GetString(key string) (value string, err error)
	PutString(key string, value string) (err error)
	DeleteString(key string) (err error)
	Scan() (entries map[string]string, err error)
}

// IsNotFound returns true if the error is caused by a missing key
func IsNotFound(err error) bool {
	return err != nil && errors.Cause(err) == ErrNotFound
}

// notFound wraps ErrNotFound with the missing key
func notFound(key string) error {
	return errors.Wrapf(ErrNotFound, "[%s]", key)
}

// NotFound returns an error for a missing key whose cause is ErrNotFound. It's meant for
// implementations living outside of this package
func NotFound(key string) error {
	return notFound(key)
}

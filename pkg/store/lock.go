package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another writer already holds the store lock.
var ErrLocked = errors.New("record store is locked by another writer")

// WriterLock is an advisory lock on a store directory. It enforces the
// single-writer discipline the store itself does not provide.
type WriterLock struct {
	lock *flock.Flock
}

// LockDir takes the writer lock of dir without blocking.
func LockDir(dir string) (*WriterLock, error) {
	l := flock.New(filepath.Join(dir, ".writer.lock"))
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &WriterLock{lock: l}, nil
}

// Unlock releases the lock.
func (w *WriterLock) Unlock() error {
	if w == nil || w.lock == nil {
		return nil
	}
	return w.lock.Unlock()
}

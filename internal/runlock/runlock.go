// Package runlock serializes index runs across processes with a lock file.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrHeld is returned by Acquire when another process holds the lock.
var ErrHeld = errors.New("run lock held by another process")

// RunLock is an exclusive cross-process lock guarding the index store.
type RunLock struct {
	flock  *flock.Flock
	locked bool
}

// New creates a lock backed by the file at path. The file is created on the
// first Acquire.
func New(path string) *RunLock {
	return &RunLock{flock: flock.New(path)}
}

// Acquire takes the lock without blocking, returning ErrHeld if another
// process has it.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !acquired {
		return ErrHeld
	}
	l.locked = true
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *RunLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	return l.flock.Path()
}

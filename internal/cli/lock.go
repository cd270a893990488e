package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gofrs/flock"
)

// lockSuffix is appended to the output prefix to name the run lock.
const lockSuffix = ".lock"

// runLock guards an output prefix so two runs never share a temp chunk path.
type runLock struct {
	path string
	fl   *flock.Flock
}

// acquireRunLock takes a non-blocking lock on prefix+".lock".
// Returns ErrOutputLocked if another process holds it.
func acquireRunLock(prefix string) (*runLock, error) {
	path := prefix + lockSuffix
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, path)
	}
	return &runLock{path: path, fl: fl}, nil
}

// Release unlocks and removes the lock file.
func (l *runLock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", l.path, err)
	}
	return nil
}

package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const lockFileName = "state.json.lock"

// LockHeldError indicates another ghrel process holds the state lock.
// There is no staleness heuristic: a lock left behind by a crashed process
// must be removed by hand. Guessing wrong and breaking a live lock would be
// worse than asking the user to delete a file.
type LockHeldError struct {
	Path string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("another ghrel process is running (lock: %s)\nHint: wait for it to finish, or delete the lock file if it is stale", e.Path)
}

// Lock is a held exclusive lock on the state directory.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock acquires an exclusive, non-blocking lock for sync/prune.
// Uses O_CREATE|O_EXCL for atomic lock creation; if the lock file already
// exists the acquisition fails immediately with LockHeldError.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	lockPath := filepath.Join(stateDir, lockFileName)

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, &LockHeldError{Path: lockPath}
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	// Lock metadata helps a human decide whether the lock is stale.
	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{path: lockPath, file: file}, nil
}

// Release releases the lock.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}
	return nil
}

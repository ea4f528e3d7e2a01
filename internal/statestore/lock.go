package statestore

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/gofrs/flock"
)

// ProcessLock guards a single dispatcher process per repository (spec §5).
// It wraps an OS-level flock advisory lock with a liveness-checked pid
// record, so a crashed predecessor's stale lock file does not wedge the
// repository forever.
type ProcessLock struct {
	path string
	fl   *flock.Flock
}

// AcquireLock takes the repo-local process lock. If the lock file records a
// pid that is no longer alive, the stale lock is reclaimed.
func AcquireLock(paths Paths) (*ProcessLock, error) {
	if err := os.MkdirAll(paths.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("statestore: cannot create local dir: %w", err)
	}

	path := paths.LockPath()
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("statestore: cannot acquire lock: %w", err)
	}
	if !locked {
		if stale, staleErr := isStaleLock(path); staleErr == nil && stale {
			locked, err = fl.TryLock()
			if err != nil {
				return nil, fmt.Errorf("statestore: cannot acquire lock after stale reclaim: %w", err)
			}
		}
	}
	if !locked {
		return nil, fmt.Errorf("statestore: repository is locked by another dispatcher process")
	}

	rec := Lock{Pid: os.Getpid(), StartedAt: time.Now()}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("statestore: cannot marshal lock record: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("statestore: cannot write lock record: %w", err)
	}

	return &ProcessLock{path: path, fl: fl}, nil
}

// Release drops the lock. Safe to call on a nil receiver.
func (l *ProcessLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("statestore: cannot release lock: %w", err)
	}
	os.Remove(l.path)
	return nil
}

// isStaleLock reports whether the lock file at path names a pid that is no
// longer running.
func isStaleLock(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	var rec Lock
	if err := json.Unmarshal(data, &rec); err != nil {
		// Unreadable lock record: treat conservatively as not stale.
		return false, err
	}
	return !pidAlive(rec.Pid), nil
}

// pidAlive reports whether the process pid appears to be running, using
// signal 0 (no-op, permission/existence check only).
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}

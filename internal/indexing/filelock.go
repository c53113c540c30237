package indexing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrLockTimeout indicates the lock could not be acquired in time.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// FileLock is an exclusive flock(2) lock on a file.
// The kernel releases it if the process dies, so a crashed sweep never
// leaves a namespace locked.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock backed by the file at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// SweepLockPath returns the lock file guarding sweeps of one namespace.
func SweepLockPath(baseDir, kind string) string {
	return filepath.Join(baseDir, "locks", "sweep-"+kind+".lock")
}

// TryLock acquires the lock without blocking.
// It returns false when another holder has it.
func (l *FileLock) TryLock() (bool, error) {
	if l.file != nil {
		return true, nil
	}
	if err := l.open(); err != nil {
		return false, err
	}

	acquired, err := l.flock()
	if err != nil || !acquired {
		l.release()
		return false, err
	}
	return true, nil
}

// Lock blocks until the lock is acquired, the timeout expires or ctx is done.
func (l *FileLock) Lock(ctx context.Context, timeout time.Duration) error {
	if l.file != nil {
		return nil
	}
	if err := l.open(); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	backoff := 10 * time.Millisecond
	for {
		acquired, err := l.flock()
		if err != nil {
			l.release()
			return err
		}
		if acquired {
			return nil
		}

		select {
		case <-ctx.Done():
			l.release()
			return ctx.Err()
		case <-timer.C:
			l.release()
			return ErrLockTimeout
		case <-time.After(backoff):
			backoff = min(backoff*2, 500*time.Millisecond)
		}
	}
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

// IsLocked reports whether this instance holds the lock.
func (l *FileLock) IsLocked() bool {
	return l.file != nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

func (l *FileLock) open() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	l.file = file
	return nil
}

func (l *FileLock) flock() (bool, error) {
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, syscall.EWOULDBLOCK) {
		return false, nil
	}
	return false, fmt.Errorf("flock failed: %w", err)
}

func (l *FileLock) release() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

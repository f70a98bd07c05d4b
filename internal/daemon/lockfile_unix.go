//go:build unix

package daemon

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func (l *LockFile) platformLock(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EWOULDBLOCK):
		return ErrLockHeld
	default:
		return fmt.Errorf("flock %s: %w", l.path, err)
	}
}

func (l *LockFile) platformUnlock(f *os.File) {
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

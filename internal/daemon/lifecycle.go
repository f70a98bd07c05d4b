package daemon

import (
	"fmt"
	"net"
	"time"
)

// Lifecycle bundles the files that mark a running instance: the store lock,
// the PID file and the control socket.
type Lifecycle struct {
	lockFile   *LockFile
	pidFile    *PIDFile
	socketPath string
}

func NewLifecycle(lockPath, pidPath, socketPath string) *Lifecycle {
	return &Lifecycle{
		lockFile:   NewLockFile(lockPath),
		pidFile:    NewPIDFile(pidPath),
		socketPath: socketPath,
	}
}

func (lc *Lifecycle) AcquireInstanceLock() error {
	if err := lc.lockFile.Acquire(); err != nil {
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	return nil
}

func (lc *Lifecycle) RegisterRunningDaemon() error {
	return lc.pidFile.Write()
}

// IsSocketResponsive reports whether something accepts connections on the
// control socket.
func (lc *Lifecycle) IsSocketResponsive() bool {
	conn, err := net.DialTimeout("unix", lc.socketPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (lc *Lifecycle) Cleanup() {
	if err := lc.pidFile.Remove(); err != nil {
		log.Warn("failed to remove pid file", "path", lc.pidFile.Path(), "error", err)
	}
	if err := lc.lockFile.Release(); err != nil {
		log.Warn("failed to release lock", "path", lc.lockFile.Path(), "error", err)
	}
}

func (lc *Lifecycle) LockFile() *LockFile {
	return lc.lockFile
}

func (lc *Lifecycle) PIDFile() *PIDFile {
	return lc.pidFile
}

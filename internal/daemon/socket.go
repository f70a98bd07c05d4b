package daemon

import (
	"net"
	"os"
	"path/filepath"
)

// ListenUnix replaces any stale socket at path and listens on it with
// owner-only permissions.
func ListenUnix(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	if err := os.Chmod(path, 0700); err != nil {
		listener.Close()
		return nil, err
	}
	return listener, nil
}

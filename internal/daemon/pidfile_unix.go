//go:build unix

package daemon

import "golang.org/x/sys/unix"

// Signal 0 checks that the process exists without delivering anything.
func processExists(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

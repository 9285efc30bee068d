//go:build linux

package procs

import "golang.org/x/sys/unix"

// priority reports the ps-style PRI value (20 + nice). The raw getpriority
// syscall on Linux returns 20 - nice.
func priority(pid int32) (int32, error) {
	raw, err := unix.Getpriority(unix.PRIO_PROCESS, int(pid))
	if err != nil {
		return 0, classify(err)
	}
	return int32(40 - raw), nil
}

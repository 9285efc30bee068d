//go:build !windows

package procs

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isNoSuchProcess(err error) bool {
	return errors.Is(err, unix.ESRCH)
}

func isPermissionDenied(err error) bool {
	return errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES)
}

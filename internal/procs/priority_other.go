//go:build !linux

package procs

func priority(pid int32) (int32, error) {
	return 0, ErrUnavailable
}

//go:build windows

package procs

func isNoSuchProcess(err error) bool {
	return false
}

func isPermissionDenied(err error) bool {
	return false
}

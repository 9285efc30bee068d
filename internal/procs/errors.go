package procs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
	ErrUnavailable  = errors.New("unavailable")
	ErrTimeout      = errors.New("timed out")
	ErrAdapter      = errors.New("adapter failure")

	ErrGracefulTimeout error = timeoutError("process did not terminate gracefully, try force kill")
	ErrForcedTimeout   error = timeoutError("process could not be terminated even with forced kill")
)

// timeoutError keeps its own message while still matching ErrTimeout.
type timeoutError string

func (e timeoutError) Error() string { return string(e) }

func (e timeoutError) Is(target error) bool { return target == ErrTimeout }

// classify maps an adapter error onto the package taxonomy. Errors that are
// neither a missing process nor a permission problem are returned as is.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAccessDenied):
		return err
	case errors.Is(err, process.ErrorProcessNotRunning),
		errors.Is(err, os.ErrProcessDone),
		errors.Is(err, fs.ErrNotExist),
		isNoSuchProcess(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission), isPermissionDenied(err):
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return err
}

// Reason renders err as the short message sent to viewers.
func Reason(action string, err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case errors.Is(err, ErrAccessDenied):
		return ErrAccessDenied.Error()
	case errors.Is(err, ErrTimeout):
		return err.Error()
	}
	return fmt.Sprintf("%s failed: %v", action, err)
}

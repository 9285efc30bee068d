package procs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

const DefaultOpenFilesLimit = 10

// Resolver gathers the extended attribute set of one process.
type Resolver struct {
	source         Source
	snapshots      *Snapshotter
	openFilesLimit int
}

// NewResolver returns a Resolver. snapshots may be nil; when set, CPU usage
// is taken from the latest snapshot so it matches the process list.
func NewResolver(source Source, snapshots *Snapshotter, openFilesLimit int) *Resolver {
	if openFilesLimit <= 0 {
		openFilesLimit = DefaultOpenFilesLimit
	}
	return &Resolver{
		source:         source,
		snapshots:      snapshots,
		openFilesLimit: openFilesLimit,
	}
}

// Details returns ErrNotFound when pid is not a live process and
// ErrAccessDenied when its summary attributes cannot be read. Every other
// attribute is reported as unavailable on its own failure.
func (r *Resolver) Details(pid int32) (*Detail, error) {
	h, err := r.source.Open(pid)
	if err != nil {
		return nil, classify(err)
	}

	sum, err := summarize(h)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied) {
			return nil, err
		}
		return nil, fmt.Errorf("read process %d: %w", pid, err)
	}

	sum.CPUPercent = 0
	if r.snapshots != nil {
		if last, ok := r.snapshots.Last(pid); ok {
			sum.CPUPercent = last.CPUPercent
		}
	}
	if sum.CPUPercent == 0 {
		if cpu, err := h.CPUPercent(); err == nil {
			sum.CPUPercent = cpu
		}
	}

	d := &Detail{
		Summary:   sum,
		ParentPID: fieldOf(h.Ppid()),
		Nice:      fieldOf(h.Nice()),
		Priority:  fieldOf(h.Priority()),
		Terminal:  fieldOf(h.Terminal()),
		Exe:       fieldOf(h.Exe()),
		Cwd:       fieldOf(h.Cwd()),
		Cmdline:   joinCmdline(h.CmdlineSlice()),
	}

	if io, err := h.IOCounters(); err == nil && io != nil {
		d.IORead = Available(io.ReadBytes)
		d.IOWrite = Available(io.WriteBytes)
	}
	if times, err := h.Times(); err == nil && times != nil {
		d.CPUTimes = Available(CPUTimes{User: times.User, System: times.System})
	}
	if conns, err := h.Connections(); err == nil {
		d.Connections = Available(len(conns))
	}
	if files, err := h.OpenFiles(); err == nil {
		d.OpenFiles = Available(capOpenFiles(files, r.openFilesLimit))
	}

	return d, nil
}

func capOpenFiles(files []process.OpenFilesStat, limit int) OpenFiles {
	n := len(files)
	if n > limit {
		n = limit
	}
	out := OpenFiles{Paths: make([]string, 0, n)}
	for _, f := range files[:n] {
		out.Paths = append(out.Paths, f.Path)
	}
	out.More = len(files) - n
	return out
}

func joinCmdline(args []string, err error) string {
	if err != nil {
		return NotAvailable
	}
	cmdline := strings.TrimSpace(strings.Join(args, " "))
	if cmdline == "" {
		return NotAvailable
	}
	return cmdline
}

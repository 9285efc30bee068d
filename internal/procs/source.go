package procs

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Source enumerates processes and opens handles on them. It is the OS
// boundary of this package.
type Source interface {
	Pids() ([]int32, error)
	// Open fails when pid does not name a live process.
	Open(pid int32) (Handle, error)
}

// Handle is one process as seen through the OS adapter. The method set
// follows gopsutil's *process.Process.
type Handle interface {
	PID() int32
	Name() (string, error)
	Status() ([]string, error)
	Username() (string, error)
	// Percent measures CPU use since the previous call on the same handle.
	Percent(interval time.Duration) (float64, error)
	// CPUPercent is the average CPU use over the process lifetime.
	CPUPercent() (float64, error)
	MemoryPercent() (float32, error)
	MemoryInfo() (*process.MemoryInfoStat, error)
	NumThreads() (int32, error)
	CreateTime() (int64, error)
	Ppid() (int32, error)
	Nice() (int32, error)
	Priority() (int32, error)
	Terminal() (string, error)
	Exe() (string, error)
	Cwd() (string, error)
	IOCounters() (*process.IOCountersStat, error)
	Times() (*cpu.TimesStat, error)
	Connections() ([]net.ConnectionStat, error)
	OpenFiles() ([]process.OpenFilesStat, error)
	CmdlineSlice() ([]string, error)
	IsRunning() (bool, error)
	Terminate() error
	Kill() error
	Suspend() error
	Resume() error
}

// SystemSource reads the live process table through gopsutil.
type SystemSource struct{}

func (SystemSource) Pids() ([]int32, error) {
	return process.Pids()
}

func (SystemSource) Open(pid int32) (Handle, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, classify(err)
	}
	return systemProcess{p}, nil
}

type systemProcess struct {
	*process.Process
}

func (p systemProcess) PID() int32 {
	return p.Pid
}

func (p systemProcess) Priority() (int32, error) {
	return priority(p.Pid)
}

package procs

import (
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// MockProcess is one entry of a MockSource table. The Deny and Ignore
// fields script the failures a real OS produces.
type MockProcess struct {
	PID        int32
	Name       string
	Status     string
	User       string
	CPU        float64
	Memory     float32
	RSS        uint64
	Threads    int32
	Created    time.Time
	PPID       int32
	Nice       int32
	Terminal   string
	Exe        string
	Cwd        string
	Cmdline    []string
	Files      []string
	Conns      int
	ReadBytes  uint64
	WriteBytes uint64
	UserTime   float64
	SysTime    float64

	// DenyAll makes every attribute read fail with a permission error.
	DenyAll bool
	// Deny fails single attributes: "username", "ppid", "nice", "priority",
	// "terminal", "exe", "cwd", "io", "times", "connections", "files",
	// "cmdline", "signal".
	Deny map[string]bool
	// VanishOnOpen removes the process right after Open, before any
	// attribute can be read.
	VanishOnOpen bool
	// IgnoreTerm keeps the process alive after SIGTERM.
	IgnoreTerm bool
	// IgnoreKill keeps the process alive even after SIGKILL.
	IgnoreKill bool
	// ExitAsZombie leaves the process as a zombie instead of removing it.
	ExitAsZombie bool
}

// MockSource is an in-memory process table used by -mock mode and tests.
type MockSource struct {
	// Jitter randomizes reported CPU usage a little on every read.
	Jitter bool
	// PidsErr, when set, fails enumeration.
	PidsErr error

	mu    sync.Mutex
	procs map[int32]*MockProcess
}

func NewMockSource(procs ...MockProcess) *MockSource {
	m := &MockSource{procs: make(map[int32]*MockProcess)}
	for _, p := range procs {
		m.Add(p)
	}
	return m
}

// DemoSource returns a MockSource with a plausible desktop workload.
func DemoSource() *MockSource {
	m := NewMockSource()
	m.Jitter = true
	users := []string{"root", "jules", "systemd"}
	cmds := []string{"chrome", "code", "go", "kworker", "bash", "postgres", "nginx"}
	statuses := []string{"running", "sleep", "sleep", "sleep", "idle"}
	boot := time.Now().Add(-6 * time.Hour)
	m.Add(MockProcess{PID: 1, Name: "systemd", Status: "sleep", User: "root", Created: boot, Threads: 1, DenyAll: true})
	for i := 0; i < 50; i++ {
		name := cmds[rand.Intn(len(cmds))]
		m.Add(MockProcess{
			PID:       int32(1000 + i),
			Name:      name,
			Status:    statuses[rand.Intn(len(statuses))],
			User:      users[rand.Intn(len(users))],
			CPU:       rand.Float64() * 5,
			Memory:    rand.Float32() * 2,
			RSS:       uint64(rand.Int63n(512 * bytesPerMB)),
			Threads:   int32(1 + rand.Intn(32)),
			Created:   boot.Add(time.Duration(i) * time.Minute),
			PPID:      1,
			Exe:       "/usr/bin/" + name,
			Cwd:       "/",
			Cmdline:   []string{"/usr/bin/" + name, fmt.Sprintf("--worker=%d", i)},
			Files:     []string{"/dev/null", "/var/log/" + name + ".log"},
			Conns:     rand.Intn(4),
			ReadBytes: uint64(rand.Int63n(1 << 30)),
		})
	}
	return m
}

func (m *MockSource) Add(p MockProcess) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.procs[p.PID] = &cp
}

func (m *MockSource) Remove(pid int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.procs, pid)
}

// Get returns a copy of the current entry for pid.
func (m *MockSource) Get(pid int32) (MockProcess, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.procs[pid]
	if !ok {
		return MockProcess{}, false
	}
	return *p, true
}

func (m *MockSource) Pids() ([]int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PidsErr != nil {
		return nil, m.PidsErr
	}
	pids := make([]int32, 0, len(m.procs))
	for pid := range m.procs {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids, nil
}

func (m *MockSource) Open(pid int32) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.procs[pid]
	if !ok {
		return nil, classify(process.ErrorProcessNotRunning)
	}
	if p.VanishOnOpen {
		delete(m.procs, pid)
	}
	return &mockHandle{src: m, pid: pid, created: p.Created}, nil
}

type mockHandle struct {
	src     *MockSource
	pid     int32
	created time.Time
}

// read returns a snapshot of the entry, failing the way procfs does when
// the process is gone or attr is denied.
func (h *mockHandle) read(attr string) (MockProcess, error) {
	h.src.mu.Lock()
	defer h.src.mu.Unlock()
	p, ok := h.src.procs[h.pid]
	if !ok {
		return MockProcess{}, &fs.PathError{Op: "open", Path: fmt.Sprintf("/proc/%d/%s", h.pid, attr), Err: fs.ErrNotExist}
	}
	if p.DenyAll || p.Deny[attr] {
		return MockProcess{}, &fs.PathError{Op: "open", Path: fmt.Sprintf("/proc/%d/%s", h.pid, attr), Err: fs.ErrPermission}
	}
	return *p, nil
}

func (h *mockHandle) PID() int32 { return h.pid }

func (h *mockHandle) Name() (string, error) {
	p, err := h.read("name")
	return p.Name, err
}

func (h *mockHandle) Status() ([]string, error) {
	p, err := h.read("status")
	if err != nil {
		return nil, err
	}
	return []string{p.Status}, nil
}

func (h *mockHandle) Username() (string, error) {
	p, err := h.read("username")
	return p.User, err
}

func (h *mockHandle) Percent(time.Duration) (float64, error) {
	p, err := h.read("cpu")
	if err != nil {
		return 0, err
	}
	if h.src.Jitter {
		return p.CPU * (0.5 + rand.Float64()), nil
	}
	return p.CPU, nil
}

func (h *mockHandle) CPUPercent() (float64, error) {
	p, err := h.read("cpu")
	return p.CPU, err
}

func (h *mockHandle) MemoryPercent() (float32, error) {
	p, err := h.read("memory")
	return p.Memory, err
}

func (h *mockHandle) MemoryInfo() (*process.MemoryInfoStat, error) {
	p, err := h.read("memory")
	if err != nil {
		return nil, err
	}
	return &process.MemoryInfoStat{RSS: p.RSS}, nil
}

func (h *mockHandle) NumThreads() (int32, error) {
	p, err := h.read("threads")
	return p.Threads, err
}

func (h *mockHandle) CreateTime() (int64, error) {
	p, err := h.read("created")
	return p.Created.UnixMilli(), err
}

func (h *mockHandle) Ppid() (int32, error) {
	p, err := h.read("ppid")
	return p.PPID, err
}

func (h *mockHandle) Nice() (int32, error) {
	p, err := h.read("nice")
	return p.Nice, err
}

func (h *mockHandle) Priority() (int32, error) {
	p, err := h.read("priority")
	return 20 + p.Nice, err
}

func (h *mockHandle) Terminal() (string, error) {
	p, err := h.read("terminal")
	return p.Terminal, err
}

func (h *mockHandle) Exe() (string, error) {
	p, err := h.read("exe")
	return p.Exe, err
}

func (h *mockHandle) Cwd() (string, error) {
	p, err := h.read("cwd")
	return p.Cwd, err
}

func (h *mockHandle) IOCounters() (*process.IOCountersStat, error) {
	p, err := h.read("io")
	if err != nil {
		return nil, err
	}
	return &process.IOCountersStat{ReadBytes: p.ReadBytes, WriteBytes: p.WriteBytes}, nil
}

func (h *mockHandle) Times() (*cpu.TimesStat, error) {
	p, err := h.read("times")
	if err != nil {
		return nil, err
	}
	return &cpu.TimesStat{CPU: "cpu", User: p.UserTime, System: p.SysTime}, nil
}

func (h *mockHandle) Connections() ([]net.ConnectionStat, error) {
	p, err := h.read("connections")
	if err != nil {
		return nil, err
	}
	return make([]net.ConnectionStat, p.Conns), nil
}

func (h *mockHandle) OpenFiles() ([]process.OpenFilesStat, error) {
	p, err := h.read("files")
	if err != nil {
		return nil, err
	}
	files := make([]process.OpenFilesStat, len(p.Files))
	for i, path := range p.Files {
		files[i] = process.OpenFilesStat{Path: path, Fd: uint64(i + 3)}
	}
	return files, nil
}

func (h *mockHandle) CmdlineSlice() ([]string, error) {
	p, err := h.read("cmdline")
	return p.Cmdline, err
}

// IsRunning reports false once pid has been reused by a process with a
// different creation time, like gopsutil does.
func (h *mockHandle) IsRunning() (bool, error) {
	h.src.mu.Lock()
	defer h.src.mu.Unlock()
	p, ok := h.src.procs[h.pid]
	if !ok {
		return false, nil
	}
	return p.Created.Equal(h.created), nil
}

func (h *mockHandle) Terminate() error {
	return h.signal(func(p *MockProcess) bool { return !p.IgnoreTerm })
}

func (h *mockHandle) Kill() error {
	return h.signal(func(p *MockProcess) bool { return !p.IgnoreKill })
}

func (h *mockHandle) Suspend() error {
	return h.signal(func(p *MockProcess) bool {
		p.Status = "stop"
		return false
	})
}

func (h *mockHandle) Resume() error {
	return h.signal(func(p *MockProcess) bool {
		p.Status = "running"
		return false
	})
}

// signal delivers a signal whose effect is apply; apply reports whether the
// process exits.
func (h *mockHandle) signal(apply func(p *MockProcess) bool) error {
	h.src.mu.Lock()
	defer h.src.mu.Unlock()
	p, ok := h.src.procs[h.pid]
	if !ok {
		return os.ErrProcessDone
	}
	if p.Status == "zombie" {
		return nil
	}
	if p.DenyAll || p.Deny["signal"] {
		return &os.SyscallError{Syscall: "kill", Err: fs.ErrPermission}
	}
	if apply(p) {
		if p.ExitAsZombie {
			p.Status = "zombie"
		} else {
			delete(h.src.procs, h.pid)
		}
	}
	return nil
}

package procs

import (
	"fmt"
	"sort"
	"sync"
)

// Snapshotter enumerates the process table into Summaries. Handles are kept
// between calls so CPU usage is measured across consecutive snapshots; a
// handle is dropped as soon as its pid is missing from a pass or now names
// a different process.
type Snapshotter struct {
	source Source

	mu    sync.Mutex
	cache map[int32]Handle
	last  map[int32]Summary
}

func NewSnapshotter(source Source) *Snapshotter {
	return &Snapshotter{
		source: source,
		cache:  make(map[int32]Handle),
		last:   make(map[int32]Summary),
	}
}

// List returns every readable process, busiest first. Processes that vanish
// or deny access during the pass are left out; only a failure to enumerate
// pids at all is returned as an error.
func (s *Snapshotter) List() ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pids, err := s.source.Pids()
	if err != nil {
		return nil, fmt.Errorf("%w: list pids: %v", ErrAdapter, err)
	}

	// New cache for next iteration to clean up old processes
	newCache := make(map[int32]Handle, len(pids))
	newLast := make(map[int32]Summary, len(pids))
	list := make([]Summary, 0, len(pids))

	for _, pid := range pids {
		h, ok := s.cache[pid]
		if ok {
			// gopsutil caches name and creation time per handle, so a
			// reused pid needs a fresh one.
			if running, err := h.IsRunning(); err != nil || !running {
				ok = false
			}
		}
		if !ok {
			h, err = s.source.Open(pid)
			if err != nil {
				continue
			}
		}

		sum, err := summarize(h)
		if err != nil {
			continue
		}
		newCache[pid] = h
		newLast[pid] = sum
		list = append(list, sum)
	}

	s.cache = newCache
	s.last = newLast
	SortByCPU(list)
	return list, nil
}

// Last returns pid's row from the most recent List.
func (s *Snapshotter) Last(pid int32) (Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.last[pid]
	return sum, ok
}

// SortByCPU orders by CPU usage descending, then pid ascending.
func SortByCPU(list []Summary) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CPUPercent != list[j].CPUPercent {
			return list[i].CPUPercent > list[j].CPUPercent
		}
		return list[i].PID < list[j].PID
	})
}

// summarize reads the summary attribute set. Name, status and creation time
// are required; the remaining numbers fall back to zero.
func summarize(h Handle) (Summary, error) {
	name, err := h.Name()
	if err != nil {
		return Summary{}, classify(err)
	}
	status, err := h.Status()
	if err != nil {
		return Summary{}, classify(err)
	}
	created, err := h.CreateTime()
	if err != nil {
		return Summary{}, classify(err)
	}

	sum := Summary{
		PID:        h.PID(),
		Name:       name,
		Status:     parseStatusList(status),
		CreateTime: formatCreateTime(created),
	}
	if cpu, err := h.Percent(0); err == nil {
		sum.CPUPercent = cpu
	}
	if memP, err := h.MemoryPercent(); err == nil {
		sum.MemoryPercent = float64(memP)
	}
	if memInfo, err := h.MemoryInfo(); err == nil && memInfo != nil {
		sum.MemoryMB = float64(memInfo.RSS) / bytesPerMB
	}
	if threads, err := h.NumThreads(); err == nil {
		sum.Threads = threads
	}
	if user, err := h.Username(); err == nil {
		sum.Username = user
	}
	return sum, nil
}

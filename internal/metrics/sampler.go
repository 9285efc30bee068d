package metrics

import (
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// counterState is the baseline one counter group is differenced against.
type counterState struct {
	counters IOCounters
	at       time.Time
	valid    bool
	inRate   float64
	outRate  float64
}

// Sampler turns cumulative disk and network counters into MB/s rates. It
// owns the previous-sample state; calls are serialized so the broadcast loop
// and a connecting viewer can share one Sampler.
type Sampler struct {
	provider Provider
	now      func() time.Time
	withGPU  bool

	mu      sync.Mutex
	disk    counterState
	net     counterState
	lastCPU float64
	lastMem MemoryStats

	// A broken adapter fails every cycle; only some failures are logged.
	logCPU rate.Sometimes
	logMem rate.Sometimes
}

type SamplerOption func(*Sampler)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) SamplerOption {
	return func(s *Sampler) { s.now = now }
}

// WithGPU includes the provider's GPU block in every sample.
func WithGPU(enabled bool) SamplerOption {
	return func(s *Sampler) { s.withGPU = enabled }
}

func NewSampler(provider Provider, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		provider: provider,
		now:      time.Now,
		logCPU:   rate.Sometimes{First: 3, Interval: time.Minute},
		logMem:   rate.Sometimes{First: 3, Interval: time.Minute},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prime records the initial counter baseline so the first Sample reports
// real rates instead of zeros.
func (s *Sampler) Prime() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if c, err := s.provider.DiskIO(); err == nil {
		s.disk = counterState{counters: c, at: now, valid: true}
	}
	if c, err := s.provider.NetIO(); err == nil {
		s.net = counterState{counters: c, at: now, valid: true}
	}
	// Starts gopsutil's CPU baseline as well.
	if cpu, err := s.provider.CPUPercent(); err == nil {
		s.lastCPU = cpu
	}
}

// Sample reads the adapter once and derives rates against the previous call.
// It never fails: a group the adapter cannot read repeats its last good
// value for this cycle.
func (s *Sampler) Sample() SystemMetricsSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sample := SystemMetricsSample{Timestamp: now}

	if cpu, err := s.provider.CPUPercent(); err == nil {
		s.lastCPU = cpu
	} else {
		s.logCPU.Do(func() { log.Printf("cpu percent unavailable, reusing last value: %v", err) })
	}
	sample.CPUPercent = s.lastCPU

	if vm, err := s.provider.Memory(); err == nil {
		s.lastMem = vm
	} else {
		s.logMem.Do(func() { log.Printf("memory stats unavailable, reusing last value: %v", err) })
	}
	sample.MemoryPercent = s.lastMem.UsedPercent
	sample.MemoryTotalGB = float64(s.lastMem.Total) / bytesPerGB
	sample.MemoryUsedGB = float64(s.lastMem.Used) / bytesPerGB

	c, err := s.provider.DiskIO()
	s.disk.advance(c, err, now)
	sample.DiskReadMBps = s.disk.inRate
	sample.DiskWriteMBps = s.disk.outRate

	c, err = s.provider.NetIO()
	s.net.advance(c, err, now)
	sample.NetRecvMBps = s.net.inRate
	sample.NetSentMBps = s.net.outRate

	if s.withGPU {
		if gpu, err := s.provider.GPU(); err == nil {
			sample.GPU = gpu
		}
	}

	return sample
}

// advance moves the baseline to cur and recomputes rates. On a read error
// the baseline and previous rates are left untouched, so the next good
// reading is divided by the real time elapsed since the last good one.
func (st *counterState) advance(cur IOCounters, err error, now time.Time) {
	if err != nil {
		return
	}
	if st.valid {
		elapsed := now.Sub(st.at).Seconds()
		st.inRate = Rate(st.counters.In, cur.In, elapsed)
		st.outRate = Rate(st.counters.Out, cur.Out, elapsed)
	}
	st.counters = cur
	st.at = now
	st.valid = true
}

// Rate converts the growth of a cumulative byte counter over elapsed
// seconds into MB/s. A counter that went backwards (reset or wraparound)
// and a non-positive elapsed time both yield 0.
func Rate(prev, cur uint64, elapsed float64) float64 {
	if elapsed <= 0 || cur < prev {
		return 0
	}
	return float64(cur-prev) / bytesPerMB / elapsed
}

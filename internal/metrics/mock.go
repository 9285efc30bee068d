package metrics

import (
	"math/rand"
	"sync"
)

// MockProvider simulates a busy 32GB host with steadily growing I/O
// counters and an RTX-class GPU.
type MockProvider struct {
	mu   sync.Mutex
	disk IOCounters
	net  IOCounters
}

func (m *MockProvider) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disk = IOCounters{In: 1 << 30, Out: 1 << 29}
	m.net = IOCounters{In: 1 << 28, Out: 1 << 27}
	return nil
}

func (m *MockProvider) CPUPercent() (float64, error) {
	return 20 + rand.Float64()*10, nil
}

func (m *MockProvider) Memory() (MemoryStats, error) {
	total := uint64(32 * bytesPerGB)
	used := uint64(12*bytesPerGB) + uint64(rand.Int63n(bytesPerGB))
	return MemoryStats{
		Total:       total,
		Used:        used,
		UsedPercent: float64(used) / float64(total) * 100,
	}, nil
}

func (m *MockProvider) DiskIO() (IOCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disk.In += uint64(rand.Int63n(8 * bytesPerMB))
	m.disk.Out += uint64(rand.Int63n(4 * bytesPerMB))
	return m.disk, nil
}

func (m *MockProvider) NetIO() (IOCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.net.In += uint64(rand.Int63n(2 * bytesPerMB))
	m.net.Out += uint64(rand.Int63n(bytesPerMB))
	return m.net, nil
}

func (m *MockProvider) GPU() (*GPUStats, error) {
	return &GPUStats{
		Name:        "NVIDIA GeForce RTX 4090",
		Utilization: uint32(50 + rand.Intn(30)),
		MemoryUsed:  8 * 1024,
		MemoryTotal: 24 * 1024,
		Temperature: uint32(60 + rand.Intn(10)),
	}, nil
}

func (m *MockProvider) Shutdown() {}

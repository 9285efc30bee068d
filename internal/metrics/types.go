package metrics

import (
	"time"
)

const (
	bytesPerMB = 1024 * 1024
	bytesPerGB = 1024 * 1024 * 1024
)

// SystemMetricsSample is one system_metrics push: instantaneous CPU and
// memory figures plus I/O rates derived from the previous sample.
type SystemMetricsSample struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryTotalGB float64   `json:"memory_total_gb"`
	MemoryUsedGB  float64   `json:"memory_used_gb"`
	DiskReadMBps  float64   `json:"disk_read_mbps"`
	DiskWriteMBps float64   `json:"disk_write_mbps"`
	NetSentMBps   float64   `json:"net_sent_mbps"`
	NetRecvMBps   float64   `json:"net_recv_mbps"`
	GPU           *GPUStats `json:"gpu,omitempty"`
}

// MemoryStats holds memory related metrics.
type MemoryStats struct {
	Total       uint64
	Used        uint64
	UsedPercent float64
}

// IOCounters is a pair of cumulative byte counters: read/write for disks,
// sent/received for network interfaces.
type IOCounters struct {
	In  uint64 // Disk: bytes read. Net: bytes received.
	Out uint64 // Disk: bytes written. Net: bytes sent.
}

// GPUStats holds NVIDIA GPU metrics for the first device.
type GPUStats struct {
	Name        string  `json:"name"`
	Utilization uint32  `json:"utilization_percent"`
	MemoryUsed  float64 `json:"memory_used_mb"`
	MemoryTotal float64 `json:"memory_total_mb"`
	Temperature uint32  `json:"temperature_c"`
}

// Provider is the OS boundary for host-wide metrics. Every method returns
// the adapter's current view or an error; none of them keep rate state.
type Provider interface {
	Init() error
	CPUPercent() (float64, error)
	Memory() (MemoryStats, error)
	DiskIO() (IOCounters, error)
	NetIO() (IOCounters, error)
	// GPU returns nil, nil when no device is present.
	GPU() (*GPUStats, error)
	Shutdown()
}

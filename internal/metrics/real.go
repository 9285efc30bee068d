package metrics

import (
	"errors"
	"fmt"
	"log"

	"github.com/mindprince/gonvml"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

var errNoCounters = errors.New("no counters reported")

// RealProvider reads host metrics through gopsutil and, when NVML loads,
// the first NVIDIA GPU.
type RealProvider struct {
	DisableGPU bool

	hasGPU bool
}

func (r *RealProvider) Init() error {
	if r.DisableGPU {
		return nil
	}
	if err := gonvml.Initialize(); err != nil {
		log.Printf("NVML initialization failed (GPU metrics unavailable): %v", err)
		r.hasGPU = false
	} else {
		r.hasGPU = true
	}
	return nil
}

// CPUPercent returns global utilization since the previous call; gopsutil
// keeps the idle/total baseline internally.
func (r *RealProvider) CPUPercent() (float64, error) {
	percent, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(percent) == 0 {
		return 0, errNoCounters
	}
	return percent[0], nil
}

func (r *RealProvider) Memory() (MemoryStats, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemoryStats{}, err
	}
	return MemoryStats{
		Total:       vm.Total,
		Used:        vm.Used,
		UsedPercent: vm.UsedPercent,
	}, nil
}

func (r *RealProvider) DiskIO() (IOCounters, error) {
	ioCounters, err := disk.IOCounters()
	if err != nil {
		return IOCounters{}, err
	}
	if len(ioCounters) == 0 {
		return IOCounters{}, errNoCounters
	}
	var c IOCounters
	for _, v := range ioCounters {
		c.In += v.ReadBytes
		c.Out += v.WriteBytes
	}
	return c, nil
}

func (r *RealProvider) NetIO() (IOCounters, error) {
	netCounters, err := net.IOCounters(false)
	if err != nil {
		return IOCounters{}, err
	}
	if len(netCounters) == 0 {
		return IOCounters{}, errNoCounters
	}
	return IOCounters{
		In:  netCounters[0].BytesRecv,
		Out: netCounters[0].BytesSent,
	}, nil
}

func (r *RealProvider) GPU() (*GPUStats, error) {
	if !r.hasGPU {
		return nil, nil
	}

	count, err := gonvml.DeviceCount()
	if err != nil {
		return nil, fmt.Errorf("nvml device count: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	dev, err := gonvml.DeviceHandleByIndex(0)
	if err != nil {
		return nil, fmt.Errorf("nvml device 0: %w", err)
	}

	stats := &GPUStats{}
	stats.Name, _ = dev.Name()
	if util, _, err := dev.UtilizationRates(); err == nil {
		stats.Utilization = uint32(util)
	}
	if total, used, err := dev.MemoryInfo(); err == nil {
		stats.MemoryTotal = float64(total) / bytesPerMB
		stats.MemoryUsed = float64(used) / bytesPerMB
	}
	if temp, err := dev.Temperature(); err == nil {
		stats.Temperature = uint32(temp)
	}
	return stats, nil
}

func (r *RealProvider) Shutdown() {
	if r.hasGPU {
		gonvml.Shutdown()
	}
}

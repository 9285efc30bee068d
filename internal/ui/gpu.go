package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/google/omniwatch/internal/metrics"
)

// GPUModel shows the first NVML device, when the sampler reports one.
type GPUModel struct {
	width   int
	height  int
	stats   *metrics.GPUStats
	history []float64
}

func NewGPUModel() GPUModel {
	return GPUModel{}
}

// SetStats records the GPU block of a sample; nil means no device.
func (m *GPUModel) SetStats(stats *metrics.GPUStats) {
	m.stats = stats
	if stats != nil {
		m.history = pushHistory(m.history, float64(stats.Utilization), historyLimit)
	}
}

func (m *GPUModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m GPUModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	style := PanelStyle.Width(m.width).Height(m.height)

	if m.stats == nil {
		content := lipgloss.Place(m.width-2, m.height-2, lipgloss.Center, lipgloss.Center,
			MetricLabelStyle.Render("GPU Unavailable\n(Run with -mock to see demo)"))
		return style.Render(content)
	}

	g := m.stats
	barWidth := m.width - 4
	if barWidth < 10 {
		barWidth = 10
	}

	util := renderBar(float64(g.Utilization), 100, barWidth, fmt.Sprintf("Util %d%%", g.Utilization))
	vram := renderBar(g.MemoryUsed, g.MemoryTotal, barWidth,
		fmt.Sprintf("VRAM %.0f/%.0f MB", g.MemoryUsed, g.MemoryTotal))
	temp := renderBar(float64(g.Temperature), 100, barWidth, fmt.Sprintf("Temp %d°C", g.Temperature))

	// Title, three bars, blank, history title.
	graphHeight := m.height - 8
	if graphHeight < 1 {
		graphHeight = 1
	}

	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render("GPU: "+g.Name),
		util,
		vram,
		temp,
		"",
		TitleStyle.Render("Utilization History"),
		renderHistory(m.history, barWidth, graphHeight),
	))
}

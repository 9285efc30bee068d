package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/google/omniwatch/internal/metrics"
)

const historyLimit = 240

// SystemModel is the host panel: CPU with its recent history, memory, and
// the disk and network rates of the latest sample.
type SystemModel struct {
	width   int
	height  int
	sample  metrics.SystemMetricsSample
	seen    bool
	history []float64
}

func NewSystemModel() SystemModel {
	return SystemModel{}
}

func (m *SystemModel) SetSample(s metrics.SystemMetricsSample) {
	m.sample = s
	m.seen = true
	m.history = pushHistory(m.history, s.CPUPercent, historyLimit)
}

func (m *SystemModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m SystemModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	style := PanelStyle.Width(m.width).Height(m.height)
	if !m.seen {
		return style.Render(MetricLabelStyle.Render("Waiting for first sample..."))
	}

	s := m.sample
	barWidth := m.width - 4

	cpu := renderBar(s.CPUPercent, 100, barWidth, fmt.Sprintf("CPU %5.1f%%", s.CPUPercent))
	mem := renderBar(s.MemoryPercent, 100, barWidth,
		fmt.Sprintf("Mem %.1f/%.1f GB", s.MemoryUsedGB, s.MemoryTotalGB))

	io := lipgloss.JoinVertical(lipgloss.Left,
		rateLine("Disk R", s.DiskReadMBps),
		rateLine("Disk W", s.DiskWriteMBps),
		rateLine("Net ↓ ", s.NetRecvMBps),
		rateLine("Net ↑ ", s.NetSentMBps),
	)

	// Title, two bars, blank, history title, blank, io title, four rates.
	graphHeight := m.height - 11
	if graphHeight < 1 {
		graphHeight = 1
	}

	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render("System"),
		cpu,
		mem,
		"",
		TitleStyle.Render("CPU History"),
		renderHistory(m.history, barWidth, graphHeight),
		"",
		TitleStyle.Render("I/O"),
		io,
	))
}

func rateLine(label string, mbps float64) string {
	return MetricLabelStyle.Render(label+" ") + MetricValueStyle.Render(formatRate(mbps))
}

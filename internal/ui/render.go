package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const bytesPerMB = 1024 * 1024

// renderBar draws "label ████░░░░" filling width. Values above max are
// drawn full; anything above 80% of max uses the alert color.
func renderBar(value, max float64, width int, label string) string {
	if max <= 0 {
		max = 100
	}
	if width < 10 {
		return label
	}
	barWidth := width - lipgloss.Width(label) - 1
	if barWidth < 0 {
		barWidth = 0
	}

	ratio := value / max
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	filled := int(ratio * float64(barWidth))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	style := BarStyle
	if ratio > 0.8 {
		style = AlertBarStyle
	}
	return fmt.Sprintf("%s %s", label, style.Render(bar))
}

// renderHistory draws a block graph of percentages (0-100), newest on the
// right, using at most width columns and exactly height rows.
func renderHistory(values []float64, width, height int) string {
	if len(values) == 0 {
		return MetricLabelStyle.Render("Waiting for data...")
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	grid := make([][]rune, height)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", len(values)))
	}
	for x, v := range values {
		h := int(v / 100 * float64(height))
		if h > height {
			h = height
		}
		for y := 0; y < h; y++ {
			grid[height-1-y][x] = '█'
		}
	}

	rows := make([]string, height)
	for y, row := range grid {
		rows[y] = BarStyle.Render(string(row))
	}
	return strings.Join(rows, "\n")
}

// pushHistory appends v, keeping at most limit values.
func pushHistory(history []float64, v float64, limit int) []float64 {
	history = append(history, v)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatRate renders a MB/s figure with a unit that fits its size.
func formatRate(mbps float64) string {
	if mbps <= 0 {
		return "0 B/s"
	}
	return formatBytes(uint64(mbps*bytesPerMB)) + "/s"
}

package ui

import "github.com/charmbracelet/lipgloss"

// Palette
const (
	ColorInk    = "#1B1D2A" // Background, footer text
	ColorFrost  = "#C0CAF5" // Primary text
	ColorSlate  = "#565F89" // Borders, labels
	ColorTeal   = "#73DACA" // Bars, values
	ColorAmber  = "#E0AF68" // Highlights
	ColorCoral  = "#F7768E" // Alerts, failed actions
	ColorViolet = "#7D56F4" // Selection
)

var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorSlate)).
			Padding(0, 1)

	AlertPanelStyle = PanelStyle.
			BorderForeground(lipgloss.Color(ColorCoral))

	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorFrost)).
			Bold(true)

	MetricLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorSlate))

	MetricValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorTeal))

	HighlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorAmber))

	AlertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorCoral)).
			Bold(true)

	BarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorTeal))

	AlertBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorCoral))

	FooterStyle = lipgloss.NewStyle().
			Background(lipgloss.Color(ColorSlate)).
			Foreground(lipgloss.Color(ColorInk)).
			Padding(0, 1)
)

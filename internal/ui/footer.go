package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const hotkeys = "q quit | / filter | s sort | k term | K kill | p stop | r cont | a auto"

type FooterModel struct {
	width       int
	autoRefresh bool
	status      string
	failed      bool
	now         func() time.Time
}

func NewFooterModel() FooterModel {
	return FooterModel{autoRefresh: true, now: time.Now}
}

func (m *FooterModel) SetSize(w int) {
	m.width = w
}

func (m *FooterModel) SetAutoRefresh(enabled bool) {
	m.autoRefresh = enabled
}

// SetStatus shows the outcome of the last action until the next one.
func (m *FooterModel) SetStatus(status string, failed bool) {
	m.status = status
	m.failed = failed
}

func (m FooterModel) View() string {
	if m.width == 0 {
		return ""
	}

	auto := "auto on"
	if !m.autoRefresh {
		auto = "auto off"
	}
	left := fmt.Sprintf("omniwatch | %s | %s", m.now().Format("15:04:05"), auto)
	if m.status != "" {
		status := m.status
		if m.failed {
			status = AlertStyle.Render(status)
		}
		left += " | " + status
	}

	spacer := m.width - lipgloss.Width(left) - lipgloss.Width(hotkeys) - 2
	if spacer < 1 {
		spacer = 1
	}
	return FooterStyle.Width(m.width).Render(left + lipgloss.NewStyle().Width(spacer).Render("") + hotkeys)
}

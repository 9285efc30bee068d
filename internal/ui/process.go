package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/google/omniwatch/internal/procs"
)

type SortBy int

const (
	SortCPU SortBy = iota
	SortMem
	SortPID
)

func (s SortBy) String() string {
	switch s {
	case SortMem:
		return "MEM"
	case SortPID:
		return "PID"
	}
	return "CPU"
}

type ProcessModel struct {
	table     table.Model
	width     int
	height    int
	list      []procs.Summary
	shown     []procs.Summary
	sortBy    SortBy
	filter    string
	filtering bool
	textInput textinput.Model
	// Alert highlights the panel after a failed action.
	Alert bool
}

func NewProcessModel() ProcessModel {
	columns := []table.Column{
		{Title: "PID", Width: 7},
		{Title: "User", Width: 10},
		{Title: "S", Width: 9},
		{Title: "CPU%", Width: 6},
		{Title: "Mem%", Width: 6},
		{Title: "RSS", Width: 9},
		{Title: "Command", Width: 20},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color(ColorSlate)).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(ColorFrost)).
		Background(lipgloss.Color(ColorViolet)).
		Bold(false)
	t.SetStyles(s)

	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Prompt = "/"
	ti.CharLimit = 30
	ti.Width = 20

	return ProcessModel{
		table:     t,
		sortBy:    SortCPU,
		textInput: ti,
	}
}

// Filtering reports whether keystrokes currently go to the filter input.
func (m ProcessModel) Filtering() bool {
	return m.filtering
}

func (m ProcessModel) Update(msg tea.Msg) (ProcessModel, tea.Cmd) {
	var cmd tea.Cmd

	if m.filtering {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "enter", "esc":
				m.filtering = false
				m.textInput.Blur()
				m.table.Focus()
				return m, nil
			}
		}
		m.textInput, cmd = m.textInput.Update(msg)
		m.filter = m.textInput.Value()
		m.refresh()
		return m, cmd
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "/":
			m.filtering = true
			m.textInput.Focus()
			m.table.Blur()
			return m, textinput.Blink
		case "s":
			m.sortBy = (m.sortBy + 1) % 3
			m.refresh()
			return m, nil
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// SetList replaces the table contents, keeping the selected pid selected
// while it is still listed.
func (m *ProcessModel) SetList(list []procs.Summary) {
	m.list = list
	m.refresh()
}

// Selected returns the process under the cursor.
func (m ProcessModel) Selected() (procs.Summary, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.shown) {
		return procs.Summary{}, false
	}
	return m.shown[c], true
}

func (m *ProcessModel) refresh() {
	selected, hadSelection := m.Selected()

	m.shown = filterProcesses(m.list, m.filter)
	sortProcesses(m.shown, m.sortBy)

	rows := make([]table.Row, len(m.shown))
	cursor := 0
	for i, p := range m.shown {
		if hadSelection && p.PID == selected.PID {
			cursor = i
		}
		rows[i] = table.Row{
			strconv.Itoa(int(p.PID)),
			p.Username,
			string(p.Status),
			fmt.Sprintf("%.1f", p.CPUPercent),
			fmt.Sprintf("%.1f", p.MemoryPercent),
			formatBytes(uint64(p.MemoryMB * bytesPerMB)),
			p.Name,
		}
	}
	m.table.SetRows(rows)
	if len(rows) > 0 {
		m.table.SetCursor(cursor)
	}
}

func filterProcesses(list []procs.Summary, filter string) []procs.Summary {
	if filter == "" {
		return append([]procs.Summary(nil), list...)
	}
	needle := strings.ToLower(filter)
	var out []procs.Summary
	for _, p := range list {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Username), needle) ||
			strconv.Itoa(int(p.PID)) == needle {
			out = append(out, p)
		}
	}
	return out
}

func sortProcesses(list []procs.Summary, by SortBy) {
	switch by {
	case SortMem:
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].MemoryPercent != list[j].MemoryPercent {
				return list[i].MemoryPercent > list[j].MemoryPercent
			}
			return list[i].PID < list[j].PID
		})
	case SortPID:
		sort.SliceStable(list, func(i, j int) bool { return list[i].PID < list[j].PID })
	default:
		procs.SortByCPU(list)
	}
}

func (m *ProcessModel) SetSize(w, h int) {
	m.width = w
	m.height = h

	// Title line and borders.
	tableHeight := h - 4
	if tableHeight < 1 {
		tableHeight = 1
	}
	m.table.SetHeight(tableHeight)

	cols := m.table.Columns()
	used := 0
	for _, c := range cols[:len(cols)-1] {
		used += c.Width + 2 // cell padding
	}
	remaining := w - used - 6
	if remaining < 10 {
		remaining = 10
	}
	cols[len(cols)-1].Width = remaining
	m.table.SetColumns(cols)
}

func (m ProcessModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	style := PanelStyle
	if m.Alert {
		style = AlertPanelStyle
	}
	style = style.Width(m.width).Height(m.height)

	title := fmt.Sprintf("Processes (%d)", len(m.shown))
	if m.filtering {
		title = m.textInput.View()
	} else if m.filter != "" {
		title = fmt.Sprintf("Filter: %s (%d/%d)", m.filter, len(m.shown), len(m.list))
	}

	sortStr := fmt.Sprintf("[%s]", m.sortBy)
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(sortStr) - 4
	if gap < 1 {
		gap = 1
	}
	header := TitleStyle.Render(title) + strings.Repeat(" ", gap) + MetricLabelStyle.Render(sortStr)

	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.table.View(),
	))
}

package ui

import (
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/google/omniwatch/internal/broadcast"
	"github.com/google/omniwatch/internal/metrics"
	"github.com/google/omniwatch/internal/procs"
)

// Controller is satisfied by *procs.Controller.
type Controller interface {
	Terminate(pid int32, force bool) procs.ActionResult
	Suspend(pid int32) procs.ActionResult
	Resume(pid int32) procs.ActionResult
}

// Refresher is satisfied by *broadcast.Broadcaster.
type Refresher interface {
	SetAutoRefresh(enabled bool)
	AutoRefresh() bool
	PublishProcessList() error
}

type TickMsg time.Time

// hubMsg is one message received on the viewer's subscription.
type hubMsg broadcast.Message

type hubClosedMsg struct{}

type actionDoneMsg struct {
	verb   string
	result procs.ActionResult
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// waitForMessage blocks on the subscription for the next pushed message.
func waitForMessage(sub *broadcast.Subscription) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-sub.C()
		if !ok {
			return hubClosedMsg{}
		}
		return hubMsg(msg)
	}
}

// RootModel is a terminal viewer fed by a Hub subscription, like any
// browser viewer, with actions going straight to the Controller.
type RootModel struct {
	sub        *broadcast.Subscription
	controller Controller
	refresher  Refresher

	system  SystemModel
	process ProcessModel
	gpu     GPUModel
	footer  FooterModel

	width, height int
	col1Pct       float64 // System column
	col2Pct       float64 // Process column; GPU takes the rest
}

func NewRootModel(sub *broadcast.Subscription, controller Controller, refresher Refresher) RootModel {
	footer := NewFooterModel()
	footer.SetAutoRefresh(refresher.AutoRefresh())
	return RootModel{
		sub:        sub,
		controller: controller,
		refresher:  refresher,
		system:     NewSystemModel(),
		process:    NewProcessModel(),
		gpu:        NewGPUModel(),
		footer:     footer,
		col1Pct:    0.30,
		col2Pct:    0.45,
	}
}

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(waitForMessage(m.sub), tick())
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.process.Filtering() {
			m.process, cmd = m.process.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "[":
			m.col1Pct = clampPct(m.col1Pct-0.05, 0.1, 0.9-m.col2Pct)
			m.resizeModules()
		case "]":
			m.col1Pct = clampPct(m.col1Pct+0.05, 0.1, 0.9-m.col2Pct)
			m.resizeModules()
		case "{":
			m.col2Pct = clampPct(m.col2Pct-0.05, 0.1, 0.9-m.col1Pct)
			m.resizeModules()
		case "}":
			m.col2Pct = clampPct(m.col2Pct+0.05, 0.1, 0.9-m.col1Pct)
			m.resizeModules()
		case "k":
			return m, m.act("terminated", func(pid int32) procs.ActionResult {
				return m.controller.Terminate(pid, false)
			})
		case "K":
			return m, m.act("killed", func(pid int32) procs.ActionResult {
				return m.controller.Terminate(pid, true)
			})
		case "p":
			return m, m.act("suspended", m.controller.Suspend)
		case "r":
			return m, m.act("resumed", m.controller.Resume)
		case "a":
			enabled := !m.refresher.AutoRefresh()
			m.refresher.SetAutoRefresh(enabled)
			m.footer.SetAutoRefresh(enabled)
		default:
			m.process, cmd = m.process.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeModules()

	case hubMsg:
		switch data := msg.Data.(type) {
		case metrics.SystemMetricsSample:
			m.system.SetSample(data)
			m.gpu.SetStats(data.GPU)
		case []procs.Summary:
			m.process.SetList(data)
		}
		return m, waitForMessage(m.sub)

	case hubClosedMsg:
		return m, tea.Quit

	case actionDoneMsg:
		res := msg.result
		if res.Success {
			m.footer.SetStatus(fmt.Sprintf("%s %d %s", msg.verb, res.PID, res.Name), false)
		} else {
			m.footer.SetStatus(fmt.Sprintf("pid %d: %s", res.PID, res.Error), true)
		}
		m.process.Alert = !res.Success

	case TickMsg:
		return m, tick()

	case tea.MouseMsg:
		m.process, cmd = m.process.Update(msg)
		return m, cmd
	}

	return m, nil
}

// act runs an action on the selected process off the event loop; a
// terminate can take up to the kill timeout. A successful action is
// followed by a fresh process list for every viewer.
func (m RootModel) act(verb string, run func(pid int32) procs.ActionResult) tea.Cmd {
	p, ok := m.process.Selected()
	if !ok {
		return nil
	}
	refresher := m.refresher
	return func() tea.Msg {
		res := run(p.PID)
		if res.Success {
			if err := refresher.PublishProcessList(); err != nil {
				log.Printf("Process list after %s pid %d unavailable: %v", verb, p.PID, err)
			}
		}
		return actionDoneMsg{verb: verb, result: res}
	}
}

func clampPct(v, low, high float64) float64 {
	if v > high {
		v = high
	}
	if v < low {
		v = low
	}
	return v
}

func (m *RootModel) resizeModules() {
	if m.width == 0 || m.height == 0 {
		return
	}

	w1 := int(float64(m.width) * m.col1Pct)
	w2 := int(float64(m.width) * m.col2Pct)
	w3 := m.width - w1 - w2

	// Footer takes the last row.
	h := m.height - 1
	if h < 1 {
		h = 1
	}

	m.system.SetSize(w1, h)
	m.process.SetSize(w2, h)
	m.gpu.SetSize(w3, h)
	m.footer.SetSize(m.width)
}

func (m RootModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	cols := lipgloss.JoinHorizontal(lipgloss.Top,
		m.system.View(),
		m.process.View(),
		m.gpu.View(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, cols, m.footer.View())
}

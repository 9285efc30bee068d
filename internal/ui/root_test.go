package ui

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/google/omniwatch/internal/broadcast"
	"github.com/google/omniwatch/internal/metrics"
	"github.com/google/omniwatch/internal/procs"
)

type call struct {
	action string
	pid    int32
	force  bool
}

type fakeController struct {
	calls []call
	fail  bool
}

func (f *fakeController) result(pid int32) procs.ActionResult {
	if f.fail {
		return procs.ActionResult{PID: pid, Error: "access denied"}
	}
	return procs.ActionResult{Success: true, PID: pid, Name: "worker"}
}

func (f *fakeController) Terminate(pid int32, force bool) procs.ActionResult {
	f.calls = append(f.calls, call{"terminate", pid, force})
	return f.result(pid)
}

func (f *fakeController) Suspend(pid int32) procs.ActionResult {
	f.calls = append(f.calls, call{"suspend", pid, false})
	return f.result(pid)
}

func (f *fakeController) Resume(pid int32) procs.ActionResult {
	f.calls = append(f.calls, call{"resume", pid, false})
	return f.result(pid)
}

type fakeRefresher struct {
	auto       bool
	published  int
	publishErr error
}

func (f *fakeRefresher) SetAutoRefresh(enabled bool) { f.auto = enabled }
func (f *fakeRefresher) AutoRefresh() bool           { return f.auto }
func (f *fakeRefresher) PublishProcessList() error {
	f.published++
	return f.publishErr
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T) (RootModel, *fakeController, *fakeRefresher) {
	t.Helper()
	hub := broadcast.NewHub(4)
	ctl := &fakeController{}
	ref := &fakeRefresher{auto: true}
	m := NewRootModel(hub.Subscribe(), ctl, ref)
	m = update(t, m, tea.WindowSizeMsg{Width: 160, Height: 40})
	m = update(t, m, hubMsg{Event: broadcast.EventProcessList, Data: []procs.Summary{
		{PID: 10, Name: "idle", CPUPercent: 0.1, MemoryPercent: 9},
		{PID: 20, Name: "worker", Username: "jules", CPUPercent: 55, MemoryPercent: 1},
		{PID: 30, Name: "db", CPUPercent: 3, MemoryPercent: 20},
	}})
	return m, ctl, ref
}

func update(t *testing.T, m RootModel, msg tea.Msg) RootModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(RootModel)
}

func TestRootModelProcessList(t *testing.T) {
	m, _, _ := newTestModel(t)

	p, ok := m.process.Selected()
	if !ok || p.PID != 20 {
		t.Fatalf("expected busiest process 20 selected, got %v %v", p.PID, ok)
	}

	m = update(t, m, keyPress("s"))
	if p, _ := m.process.Selected(); p.PID != 20 {
		t.Errorf("selection should follow pid 20 across re-sort, got %d", p.PID)
	}
	if m.process.shown[0].PID != 30 {
		t.Errorf("memory sort should put pid 30 first, got %d", m.process.shown[0].PID)
	}

	if !strings.Contains(m.View(), "worker") {
		t.Error("view should list the worker process")
	}
}

func TestRootModelSystemSample(t *testing.T) {
	m, _, _ := newTestModel(t)
	next, cmd := m.Update(hubMsg{Event: broadcast.EventSystemMetrics, Data: metrics.SystemMetricsSample{
		CPUPercent:    42,
		MemoryTotalGB: 32,
		MemoryUsedGB:  8,
		GPU:           &metrics.GPUStats{Name: "Test GPU", Utilization: 70},
	}})
	m = next.(RootModel)
	if cmd == nil {
		t.Fatal("expected the model to wait for the next hub message")
	}
	if m.gpu.stats == nil || m.gpu.stats.Name != "Test GPU" {
		t.Errorf("gpu panel did not receive stats: %+v", m.gpu.stats)
	}
	if len(m.system.history) != 1 || m.system.history[0] != 42 {
		t.Errorf("cpu history = %v, want [42]", m.system.history)
	}
}

func TestRootModelActions(t *testing.T) {
	tests := []struct {
		key  string
		want call
		verb string
	}{
		{"k", call{"terminate", 20, false}, "terminated"},
		{"K", call{"terminate", 20, true}, "killed"},
		{"p", call{"suspend", 20, false}, "suspended"},
		{"r", call{"resume", 20, false}, "resumed"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m, ctl, ref := newTestModel(t)
			next, cmd := m.Update(keyPress(tt.key))
			m = next.(RootModel)
			if cmd == nil {
				t.Fatal("expected an action command")
			}
			done := cmd()
			if len(ctl.calls) != 1 || ctl.calls[0] != tt.want {
				t.Fatalf("controller calls = %v, want %v", ctl.calls, tt.want)
			}
			if ref.published != 1 {
				t.Errorf("expected one published list after success, got %d", ref.published)
			}
			m = update(t, m, done)
			if !strings.HasPrefix(m.footer.status, tt.verb+" 20") {
				t.Errorf("footer status = %q", m.footer.status)
			}
			if m.process.Alert {
				t.Error("successful action should not raise the alert")
			}
		})
	}
}

func TestRootModelFailedAction(t *testing.T) {
	m, ctl, ref := newTestModel(t)
	ctl.fail = true

	_, cmd := m.Update(keyPress("k"))
	m = update(t, m, cmd())
	if ref.published != 0 {
		t.Error("failed action must not publish a list")
	}
	if !m.process.Alert || !m.footer.failed {
		t.Error("failed action should be flagged")
	}
	if !strings.Contains(m.footer.status, "access denied") {
		t.Errorf("footer status = %q", m.footer.status)
	}
}

func TestRootModelLogsListFailureAfterAction(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	m, _, ref := newTestModel(t)
	ref.publishErr = errors.New("pids unreadable")

	_, cmd := m.Update(keyPress("p"))
	m = update(t, m, cmd())
	if !strings.HasPrefix(m.footer.status, "suspended 20") {
		t.Errorf("footer status = %q", m.footer.status)
	}
	if !strings.Contains(buf.String(), "pids unreadable") {
		t.Errorf("list failure not logged: %q", buf.String())
	}
}

func TestRootModelFilterSwallowsHotkeys(t *testing.T) {
	m, ctl, _ := newTestModel(t)

	m = update(t, m, keyPress("/"))
	if !m.process.Filtering() {
		t.Fatal("expected filter mode")
	}
	for _, k := range []string{"w", "o", "k"} {
		m = update(t, m, keyPress(k))
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(ctl.calls) != 0 {
		t.Fatalf("typing in the filter triggered actions: %v", ctl.calls)
	}
	if m.process.filter != "wok" {
		t.Errorf("filter = %q, want wok", m.process.filter)
	}
	if len(m.process.shown) != 0 {
		t.Errorf("no process matches wok, got %d", len(m.process.shown))
	}
}

func TestRootModelToggleAutoRefresh(t *testing.T) {
	m, _, ref := newTestModel(t)

	m = update(t, m, keyPress("a"))
	if ref.auto || m.footer.autoRefresh {
		t.Error("auto refresh should be off")
	}
	m = update(t, m, keyPress("a"))
	if !ref.auto || !m.footer.autoRefresh {
		t.Error("auto refresh should be back on")
	}
}

func TestRootModelQuitsWhenHubCloses(t *testing.T) {
	hub := broadcast.NewHub(1)
	sub := hub.Subscribe()
	m := NewRootModel(sub, &fakeController{}, &fakeRefresher{})
	hub.Unsubscribe(sub)

	msg := waitForMessage(sub)()
	if _, ok := msg.(hubClosedMsg); !ok {
		t.Fatalf("expected hubClosedMsg, got %T", msg)
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

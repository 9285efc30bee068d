package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/poll"

	"github.com/google/omniwatch/internal/broadcast"
	"github.com/google/omniwatch/internal/metrics"
	"github.com/google/omniwatch/internal/procs"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type fixture struct {
	ts          *httptest.Server
	source      *procs.MockSource
	hub         *broadcast.Hub
	broadcaster *broadcast.Broadcaster
}

func newFixture(t *testing.T, broadcastActions bool) *fixture {
	t.Helper()
	boot := time.Now().Add(-time.Hour)
	source := procs.NewMockSource(
		procs.MockProcess{PID: 1, Name: "init", Status: "sleep", Created: boot, DenyAll: true},
		procs.MockProcess{PID: 42, Name: "worker", Status: "running", User: "jules", CPU: 12.5, Created: boot, Cmdline: []string{"worker", "-v"}},
		procs.MockProcess{PID: 43, Name: "sleeper", Status: "sleep", User: "jules", CPU: 0.5, Created: boot},
	)

	provider := &metrics.MockProvider{}
	assert.NilError(t, provider.Init())
	sampler := metrics.NewSampler(provider)
	sampler.Prime()

	hub := broadcast.NewHub(32)
	snapshots := procs.NewSnapshotter(source)
	b := broadcast.NewBroadcaster(hub, sampler, snapshots)

	srv := New(Deps{
		Hub:              hub,
		Refresher:        b,
		Sampler:          sampler,
		Lister:           snapshots,
		Resolver:         procs.NewResolver(source, snapshots, procs.DefaultOpenFilesLimit),
		Controller:       procs.NewController(source, 200*time.Millisecond),
		BroadcastActions: broadcastActions,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{ts: ts, source: source, hub: hub, broadcaster: b}
}

// dial connects a viewer and consumes the connect-time catch-up.
func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	ws, err := websocket.Dial(url, "", f.ts.URL)
	assert.NilError(t, err)
	t.Cleanup(func() { ws.Close() })

	assert.Equal(t, receive(t, ws).Event, broadcast.EventSystemMetrics)
	assert.Equal(t, receive(t, ws).Event, broadcast.EventProcessList)
	return ws
}

func receive(t *testing.T, ws *websocket.Conn) envelope {
	t.Helper()
	assert.NilError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env envelope
	assert.NilError(t, websocket.JSON.Receive(ws, &env))
	return env
}

func send(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	assert.NilError(t, websocket.JSON.Send(ws, broadcast.Message{Event: event, Data: data}))
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	assert.NilError(t, json.Unmarshal(raw, &v))
	return v
}

func TestConnectCatchUp(t *testing.T) {
	f := newFixture(t, true)
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	ws, err := websocket.Dial(url, "", f.ts.URL)
	assert.NilError(t, err)
	defer ws.Close()

	first := receive(t, ws)
	assert.Equal(t, first.Event, broadcast.EventSystemMetrics)
	sample := decode[map[string]any](t, first.Data)
	assert.Check(t, cmp.Contains(sample, "cpu_percent"))
	assert.Check(t, cmp.Contains(sample, "net_recv_mbps"))

	second := receive(t, ws)
	assert.Equal(t, second.Event, broadcast.EventProcessList)
	list := decode[[]procs.Summary](t, second.Data)
	// pid 1 denies every read and is left out.
	assert.Equal(t, len(list), 2)
	assert.Equal(t, list[0].PID, int32(42))
	assert.Equal(t, list[1].PID, int32(43))
}

func TestRequestProcessList(t *testing.T) {
	f := newFixture(t, true)
	ws := f.dial(t)

	send(t, ws, EventRequestProcessList, nil)
	env := receive(t, ws)
	assert.Equal(t, env.Event, broadcast.EventProcessList)
	assert.Equal(t, len(decode[[]procs.Summary](t, env.Data)), 2)
}

func TestProcessDetails(t *testing.T) {
	f := newFixture(t, true)
	ws := f.dial(t)

	send(t, ws, EventGetProcessDetails, map[string]any{"pid": 42})
	env := receive(t, ws)
	assert.Equal(t, env.Event, broadcast.EventProcessDetails)
	d := decode[procs.Detail](t, env.Data)
	assert.Equal(t, d.PID, int32(42))
	assert.Equal(t, d.Name, "worker")
	assert.Equal(t, d.Cmdline, "worker -v")
	assert.Equal(t, d.CPUPercent, 12.5)

	tests := []struct {
		pid  int32
		want string
	}{
		{pid: 99999, want: `{"error":"not found"}`},
		{pid: 1, want: `{"error":"access denied"}`},
	}
	for _, tt := range tests {
		send(t, ws, EventGetProcessDetails, map[string]any{"pid": tt.pid})
		env := receive(t, ws)
		assert.Equal(t, env.Event, broadcast.EventProcessDetails)
		assert.Equal(t, string(env.Data), tt.want)
	}
}

func TestKillProcessBroadcastsList(t *testing.T) {
	f := newFixture(t, true)
	requester := f.dial(t)
	other := f.dial(t)

	send(t, requester, EventKillProcess, map[string]any{"pid": 43, "force": false})
	env := receive(t, requester)
	assert.Equal(t, env.Event, broadcast.EventProcessKilled)
	res := decode[procs.ActionResult](t, env.Data)
	assert.DeepEqual(t, res, procs.ActionResult{Success: true, PID: 43, Name: "sleeper"})

	for _, ws := range []*websocket.Conn{requester, other} {
		env := receive(t, ws)
		assert.Equal(t, env.Event, broadcast.EventProcessList)
		list := decode[[]procs.Summary](t, env.Data)
		assert.Equal(t, len(list), 1)
		assert.Equal(t, list[0].PID, int32(42))
	}

	send(t, requester, EventKillProcess, map[string]any{"pid": 43})
	env = receive(t, requester)
	res = decode[procs.ActionResult](t, env.Data)
	assert.Equal(t, res.Success, false)
	assert.Equal(t, res.Error, "not found")
}

func TestDisconnectReleasesSubscription(t *testing.T) {
	f := newFixture(t, true)
	leaving := f.dial(t)
	staying := f.dial(t)
	assert.Equal(t, f.hub.Len(), 2)

	assert.NilError(t, leaving.Close())
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if n := f.hub.Len(); n != 1 {
			return poll.Continue("%d subscribers left", n)
		}
		return poll.Success()
	}, poll.WithTimeout(5*time.Second), poll.WithDelay(10*time.Millisecond))

	assert.NilError(t, f.broadcaster.PublishProcessList())
	env := receive(t, staying)
	assert.Equal(t, env.Event, broadcast.EventProcessList)
	assert.Equal(t, len(decode[[]procs.Summary](t, env.Data)), 2)
}

func TestActionListToRequesterOnly(t *testing.T) {
	f := newFixture(t, false)
	requester := f.dial(t)
	other := f.dial(t)

	send(t, requester, EventSuspendProcess, map[string]any{"pid": 42})
	env := receive(t, requester)
	assert.Equal(t, env.Event, broadcast.EventProcessSuspended)
	assert.Equal(t, decode[procs.ActionResult](t, env.Data).Success, true)

	env = receive(t, requester)
	assert.Equal(t, env.Event, broadcast.EventProcessList)
	p, _ := f.source.Get(42)
	assert.Equal(t, p.Status, "stop")

	// other only hears the answer to its own request.
	send(t, other, EventResumeProcess, map[string]any{"pid": 42})
	env = receive(t, other)
	assert.Equal(t, env.Event, broadcast.EventProcessResumed)
	assert.Equal(t, decode[procs.ActionResult](t, env.Data).Success, true)
}

func TestSetAutoRefresh(t *testing.T) {
	f := newFixture(t, true)
	ws := f.dial(t)

	send(t, ws, EventSetAutoRefresh, map[string]any{"enabled": false})
	env := receive(t, ws)
	assert.Equal(t, env.Event, broadcast.EventAutoRefresh)
	assert.Equal(t, string(env.Data), `{"enabled":false}`)
	assert.Equal(t, f.broadcaster.AutoRefresh(), false)

	send(t, ws, EventSetAutoRefresh, map[string]any{"enabled": true})
	receive(t, ws)
	assert.Equal(t, f.broadcaster.AutoRefresh(), true)
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t, true)
	ws := f.dial(t)

	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{name: "not json", frame: `hello`, want: `{"error":"malformed request"}`},
		{name: "bad pid", frame: `{"event":"kill_process","data":{"pid":"x"}}`, want: `{"error":"malformed request data"}`},
		{name: "missing pid", frame: `{"event":"suspend_process","data":{}}`, want: `{"error":"missing pid"}`},
		{name: "unknown", frame: `{"event":"reboot"}`, want: `{"error":"unknown event \"reboot\""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NilError(t, websocket.Message.Send(ws, tt.frame))
			env := receive(t, ws)
			assert.Equal(t, env.Event, broadcast.EventError)
			assert.Equal(t, string(env.Data), tt.want)
		})
	}
}

func TestHTTPRoutes(t *testing.T) {
	f := newFixture(t, true)

	resp, err := http.Get(f.ts.URL + "/health")
	assert.NilError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Equal(t, string(body), "OK")

	resp, err = http.Get(f.ts.URL + "/")
	assert.NilError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Check(t, cmp.Contains(string(body), "/ws"))
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"golang.org/x/net/websocket"

	"github.com/google/omniwatch/internal/broadcast"
	"github.com/google/omniwatch/internal/procs"
)

// Client -> server events.
const (
	EventRequestProcessList = "request_process_list"
	EventGetProcessDetails  = "get_process_details"
	EventKillProcess        = "kill_process"
	EventSuspendProcess     = "suspend_process"
	EventResumeProcess      = "resume_process"
	EventSetAutoRefresh     = "set_auto_refresh"
)

type request struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type requestData struct {
	PID     *int32 `json:"pid"`
	Force   bool   `json:"force"`
	Enabled *bool  `json:"enabled"`
}

// AutoRefreshPayload acknowledges set_auto_refresh with the flag's new value.
type AutoRefreshPayload struct {
	Enabled bool `json:"enabled"`
}

// serveConn owns one viewer: its subscription, a writer draining the
// subscription into the socket, and the request loop on this goroutine.
func (s *Server) serveConn(ws *websocket.Conn) {
	s.track(ws)
	defer s.untrack(ws)

	sub := s.Hub.Subscribe()
	remote := ws.Request().RemoteAddr
	log.Printf("Viewer %s connected from %s", sub.ID, remote)

	done := make(chan struct{})
	go func() {
		defer close(done)
		writeLoop(ws, sub)
	}()
	defer func() {
		s.Hub.Unsubscribe(sub)
		<-done
		log.Printf("Viewer %s disconnected (%d messages dropped)", sub.ID, sub.Dropped())
	}()

	sub.Send(broadcast.Message{Event: broadcast.EventSystemMetrics, Data: s.Sampler.Sample()})
	s.sendProcessList(sub)

	s.readLoop(ws, sub)
}

func writeLoop(ws *websocket.Conn, sub *broadcast.Subscription) {
	for msg := range sub.C() {
		if err := websocket.JSON.Send(ws, msg); err != nil {
			// Unblocks the reader so the subscription is released.
			ws.Close()
			for range sub.C() {
			}
			return
		}
	}
}

func (s *Server) readLoop(ws *websocket.Conn, sub *broadcast.Subscription) {
	for {
		var req request
		err := websocket.JSON.Receive(ws, &req)
		if err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				sendError(sub, "malformed request")
				continue
			}
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				sendError(sub, "request too large")
				continue
			}
			if !errors.Is(err, io.EOF) {
				log.Printf("Viewer %s read failed: %v", sub.ID, err)
			}
			return
		}
		s.dispatch(sub, req)
	}
}

func (s *Server) dispatch(sub *broadcast.Subscription, req request) {
	var data requestData
	if len(req.Data) > 0 && string(req.Data) != "null" {
		if err := json.Unmarshal(req.Data, &data); err != nil {
			sendError(sub, "malformed request data")
			return
		}
	}

	switch req.Event {
	case EventRequestProcessList:
		s.sendProcessList(sub)

	case EventGetProcessDetails:
		if data.PID == nil {
			sendError(sub, "missing pid")
			return
		}
		d, err := s.Resolver.Details(*data.PID)
		if err != nil {
			sub.Send(broadcast.Message{
				Event: broadcast.EventProcessDetails,
				Data:  broadcast.ErrorPayload{Error: procs.Reason("details", err)},
			})
			return
		}
		sub.Send(broadcast.Message{Event: broadcast.EventProcessDetails, Data: d})

	case EventKillProcess:
		if data.PID == nil {
			sendError(sub, "missing pid")
			return
		}
		res := s.Controller.Terminate(*data.PID, data.Force)
		log.Printf("Viewer %s terminate pid %d (force=%v): success=%v %s", sub.ID, *data.PID, data.Force, res.Success, res.Error)
		s.answerAction(sub, broadcast.EventProcessKilled, res)

	case EventSuspendProcess:
		if data.PID == nil {
			sendError(sub, "missing pid")
			return
		}
		res := s.Controller.Suspend(*data.PID)
		log.Printf("Viewer %s suspend pid %d: success=%v %s", sub.ID, *data.PID, res.Success, res.Error)
		s.answerAction(sub, broadcast.EventProcessSuspended, res)

	case EventResumeProcess:
		if data.PID == nil {
			sendError(sub, "missing pid")
			return
		}
		res := s.Controller.Resume(*data.PID)
		log.Printf("Viewer %s resume pid %d: success=%v %s", sub.ID, *data.PID, res.Success, res.Error)
		s.answerAction(sub, broadcast.EventProcessResumed, res)

	case EventSetAutoRefresh:
		if data.Enabled == nil {
			sendError(sub, "missing enabled")
			return
		}
		s.Refresher.SetAutoRefresh(*data.Enabled)
		sub.Send(broadcast.Message{
			Event: broadcast.EventAutoRefresh,
			Data:  AutoRefreshPayload{Enabled: s.Refresher.AutoRefresh()},
		})

	default:
		sendError(sub, fmt.Sprintf("unknown event %q", req.Event))
	}
}

// answerAction replies to the requester and, on success, pushes a fresh
// process list so the change shows up without waiting for the next cycle.
func (s *Server) answerAction(sub *broadcast.Subscription, event string, res procs.ActionResult) {
	sub.Send(broadcast.Message{Event: event, Data: res})
	if !res.Success {
		return
	}
	if !s.BroadcastActions {
		s.sendProcessList(sub)
		return
	}
	if err := s.Refresher.PublishProcessList(); err != nil {
		log.Printf("Process list after %s unavailable: %v", event, err)
	}
}

func (s *Server) sendProcessList(sub *broadcast.Subscription) {
	list, err := s.Lister.List()
	if err != nil {
		log.Printf("Process list for viewer %s unavailable: %v", sub.ID, err)
		sendError(sub, "process list unavailable")
		return
	}
	sub.Send(broadcast.Message{Event: broadcast.EventProcessList, Data: list})
}

func sendError(sub *broadcast.Subscription, reason string) {
	sub.Send(broadcast.Message{Event: broadcast.EventError, Data: broadcast.ErrorPayload{Error: reason}})
}

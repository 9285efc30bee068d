// Package server exposes the live feeds and process control to browser
// viewers over a websocket channel.
package server

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/google/omniwatch/internal/broadcast"
	"github.com/google/omniwatch/internal/procs"
)

//go:embed static
var staticFiles embed.FS

const shutdownGrace = 5 * time.Second

// Controller is satisfied by *procs.Controller.
type Controller interface {
	Terminate(pid int32, force bool) procs.ActionResult
	Suspend(pid int32) procs.ActionResult
	Resume(pid int32) procs.ActionResult
}

// DetailResolver is satisfied by *procs.Resolver.
type DetailResolver interface {
	Details(pid int32) (*procs.Detail, error)
}

// Refresher is satisfied by *broadcast.Broadcaster.
type Refresher interface {
	SetAutoRefresh(enabled bool)
	AutoRefresh() bool
	PublishProcessList() error
}

// Deps wires the gateway to the rest of the monitor.
type Deps struct {
	Hub        *broadcast.Hub
	Refresher  Refresher
	Sampler    broadcast.MetricsSource
	Lister     broadcast.ProcessLister
	Resolver   DetailResolver
	Controller Controller
	// BroadcastActions sends the list that follows a successful control
	// action to every viewer instead of only the requester.
	BroadcastActions bool
}

type Server struct {
	Deps

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func New(deps Deps) *Server {
	return &Server{
		Deps:  deps,
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Handler serves the page on /, the viewer channel on /ws and a liveness
// probe on /health.
func (s *Server) Handler() http.Handler {
	page, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(page)))
	mux.Handle("/ws", websocket.Server{
		Handler: s.serveConn,
		// Viewers are local tools; any origin may connect.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then closes every viewer
// connection and shuts the listener down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.closeAll)

	errc := make(chan error, 1)
	go func() {
		log.Printf("Serving viewers on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) track(ws *websocket.Conn) {
	s.mu.Lock()
	s.conns[ws] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(ws *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, ws)
	s.mu.Unlock()
}

// closeAll drops every open viewer connection; hijacked connections are not
// closed by http.Server.Shutdown.
func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ws := range s.conns {
		ws.Close()
	}
}

// Package web provides the HTTP status server and hwmon-style sensor
// attributes for the mcu-sensor daemon.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/sweeney/mcu-sensor/internal/sensor"
	"github.com/sweeney/mcu-sensor/internal/status"
)

// Querier answers sensor queries. *sensor.Store satisfies it.
type Querier interface {
	Query(ch sensor.Channel) uint32
}

// Server serves the status page and sensor attributes over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	sensors    Querier
}

// New creates a Server that reads daemon state from tracker and live values
// from sensors.
func New(addr string, tracker *status.Tracker, sensors Querier) *Server {
	s := &Server{tracker: tracker, sensors: sensors}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("GET /hwmon/{attr}", s.handleHwmon)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

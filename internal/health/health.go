// Package health provides the liveness and readiness endpoints.
//
// /healthz answers 200 while the process is up. /readyz answers 200 only
// after the registries are loaded and the transports are listening, and
// reports which optional components (conversation backend, speech engine,
// history) are available.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	addr   string
	ready  atomic.Bool
	server *http.Server

	mu         sync.RWMutex
	components map[string]bool
}

// New creates a health server bound to 127.0.0.1 on port.
func New(port int) *Server {
	return &Server{
		addr:       net.JoinHostPort("127.0.0.1", fmt.Sprint(port)),
		components: make(map[string]bool),
	}
}

// SetReady marks the backend as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Ready reports the current readiness.
func (s *Server) Ready() bool { return s.ready.Load() }

// SetComponent records whether an optional component is available.
func (s *Server) SetComponent(name string, available bool) {
	s.mu.Lock()
	s.components[name] = available
	s.mu.Unlock()
}

// Components returns a copy of the component availability map.
func (s *Server) Components() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.components)
}

type readyBody struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components,omitempty"`
}

// Handler returns the health routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, readyBody{Status: "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, readyBody{Status: "not_ready"})
			return
		}
		writeJSON(w, http.StatusOK, readyBody{Status: "ok", Components: s.Components()})
	})
	return mux
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Status represents the health state of the scan daemon
type Status struct {
	Status        string `json:"status"` // "healthy", "degraded", "unhealthy"
	UptimeSeconds int64  `json:"uptime_seconds"`
	SessionState  string `json:"session_state"`
	Scanning      bool   `json:"scanning"`
	MQTTConnected bool   `json:"mqtt_connected"`
	Error         string `json:"error,omitempty"`
}

// Provider supplies the data served by the status endpoints.
type Provider interface {
	HealthCheck() Status
	// Stats returns named sections, e.g. "session", "router", "emitter".
	Stats() map[string]any
}

// Server is the HTTP status server
type Server struct {
	provider Provider
	started  time.Time
	logger   *slog.Logger

	srv *http.Server
	ln  net.Listener
}

// New creates a server for addr (e.g. ":8080"). It does not listen.
func New(addr string, p Provider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		provider: p,
		started:  time.Now(),
		logger:   logger,
	}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router returns the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.liveness).Methods("GET")
	r.HandleFunc("/readiness", s.readiness).Methods("GET")
	r.HandleFunc("/stats", s.stats).Methods("GET")
	r.HandleFunc("/stats/{section}", s.statsSection).Methods("GET")
	return r
}

// Start listens and serves in a goroutine. Bind errors are returned.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("health server listen failed: %w", err)
	}
	s.ln = ln

	s.logger.Info("health: starting status server",
		"addr", ln.Addr().String(),
		"endpoints", []string{"/health", "/readiness", "/stats"},
	)

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health: status server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.ln == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// liveness returns 200 while the process is alive
func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": int64(time.Since(s.started).Seconds()),
	})
}

// readiness returns 503 only when unhealthy; degraded is still ready
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	health := s.provider.HealthCheck()
	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.provider.Stats())
}

func (s *Server) statsSection(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["section"]
	section, ok := s.provider.Stats()[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown stats section %q", name), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

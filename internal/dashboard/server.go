// Package dashboard serves the live temperature/humidity view: a JSON API
// over the poller's buffers plus a small self-contained chart page.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/rs/cors"

	"github.com/tosques/haus-telemetry/internal/poll"
)

// Server exposes the dashboard HTTP endpoints.
type Server struct {
	httpServer *http.Server
	poller     *poll.Poller
	logger     *slog.Logger
}

// NewServer creates the dashboard server. The JSON API is CORS-enabled so
// the chart page can also be hosted elsewhere during development.
func NewServer(addr string, poller *poll.Poller, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		poller: poller,
		logger: logger,
	}

	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /api/series/{name}", s.handleSeries)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer.Handler = cors.Default().Handler(mux)
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("dashboard server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type pointJSON struct {
	UnixNano int64   `json:"t"`
	Value    float64 `json:"v"`
}

type seriesResponse struct {
	Series string      `json:"series"`
	Points []pointJSON `json:"points"`
	Cursor int64       `json:"cursor"`
	Error  string      `json:"error,omitempty"`
}

// handleSeries returns the buffered points for one series, optionally
// restricted to those newer than the ?after= cursor (unix nanoseconds).
// The response cursor is the newest returned timestamp, to be passed back
// as ?after= on the next poll.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !slices.Contains(s.poller.Series(), name) {
		http.Error(w, "unknown series", http.StatusNotFound)
		return
	}

	var after time.Time
	if v := r.URL.Query().Get("after"); v != "" {
		ns, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid after cursor", http.StatusBadRequest)
			return
		}
		after = time.Unix(0, ns)
	}

	points := s.poller.Snapshot(name, after)

	resp := seriesResponse{
		Series: name,
		Points: make([]pointJSON, len(points)),
	}
	if !after.IsZero() {
		resp.Cursor = after.UnixNano()
	}
	for i, m := range points {
		resp.Points[i] = pointJSON{UnixNano: m.Timestamp.UnixNano(), Value: m.Value}
	}
	if len(points) > 0 {
		resp.Cursor = points[len(points)-1].Timestamp.UnixNano()
	}
	if err := s.poller.LastError(name); err != nil {
		resp.Error = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexPage)) //nolint:errcheck
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/couchcryptid/threat-signal-etl/internal/engine"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultThreatLimit = 50
	maxThreatLimit     = 500
)

// ThreatFeed exposes the engine's retained ranked threats.
type ThreatFeed interface {
	History() []domain.RankedThreat
}

// Server exposes health, readiness, metrics, and the threat API.
type Server struct {
	httpServer *http.Server
	feed       ThreatFeed
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /api/threats, and /api/stats routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, feed ThreatFeed, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		feed:   feed,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/threats", s.handleThreats)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
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

type threatsResponse struct {
	Count   int                   `json:"count"`
	Threats []domain.RankedThreat `json:"threats"`
}

// handleThreats lists retained threats, most recent batch first and rank order
// within a batch. Query parameters: limit (1..500, default 50) and min_risk.
func (s *Server) handleThreats(w http.ResponseWriter, r *http.Request) {
	limit := defaultThreatLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxThreatLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	var minRisk domain.RiskLevel
	if v := r.URL.Query().Get("min_risk"); v != "" {
		lvl, err := domain.ParseRiskLevel(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		minRisk = lvl
	}

	threats := newestFirst(s.feed.History())
	if minRisk != "" {
		threats = slices.DeleteFunc(threats, func(t domain.RankedThreat) bool {
			return t.Classification.RiskLevel.Weight() < minRisk.Weight()
		})
	}
	if len(threats) > limit {
		threats = threats[:limit]
	}

	writeJSON(w, http.StatusOK, threatsResponse{Count: len(threats), Threats: threats})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, engine.Summarize(s.feed.History()))
}

// newestFirst orders by observation time descending. The sort is stable, so
// each batch keeps its rank order.
func newestFirst(history []domain.RankedThreat) []domain.RankedThreat {
	out := slices.Clone(history)
	if out == nil {
		out = []domain.RankedThreat{}
	}
	slices.SortStableFunc(out, func(a, b domain.RankedThreat) int {
		return b.ObservedAt.Compare(a.ObservedAt)
	})
	return out
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort API response
}

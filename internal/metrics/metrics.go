// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes process-wide Prometheus counters for the research
// engine. Per-run numbers live in types.AgentMetrics; these counters
// aggregate across runs for operational dashboards.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_search_requests_total",
			Help: "Search provider calls by outcome",
		},
		[]string{"status"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "insight_search_duration_seconds",
			Help:    "Duration of uncached search provider calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "insight_cache_hits_total",
			Help: "Query cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "insight_cache_misses_total",
			Help: "Query cache misses",
		},
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_llm_requests_total",
			Help: "LLM calls by phase and outcome",
		},
		[]string{"phase", "status"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_runs_total",
			Help: "Orchestration runs by terminal state",
		},
		[]string{"state"},
	)
)

// Outcome labels used with the counters above.
const (
	StatusOK      = "ok"
	StatusTimeout = "timeout"
	StatusError   = "error"
)

// Server wraps the HTTP listener that exposes /metrics.
type Server struct {
	srv *http.Server
}

// Start serves /metrics on the given port in the background. Listener
// failures are reported through log; the caller keeps running without a
// metrics endpoint.
func Start(port int, log zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

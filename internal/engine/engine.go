// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine orchestrates one research run: plan the query set, fan the
// searches out concurrently, aggregate the merged results into insights,
// and produce the final summary. Every phase after input validation
// degrades on failure instead of aborting, so a run always completes with
// best-effort data.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/insight-engine/internal/aggregate"
	"github.com/pdiddy/insight-engine/internal/cache"
	"github.com/pdiddy/insight-engine/internal/faults"
	"github.com/pdiddy/insight-engine/internal/llm"
	"github.com/pdiddy/insight-engine/internal/metrics"
	"github.com/pdiddy/insight-engine/internal/planner"
	"github.com/pdiddy/insight-engine/internal/ratelimit"
	"github.com/pdiddy/insight-engine/internal/search"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// Phase names the stages of a run. Progression is linear; the error phase
// is reachable only from start, on input validation failure.
type Phase string

const (
	PhaseStart       Phase = "start"
	PhasePlanning    Phase = "planning"
	PhaseSearching   Phase = "searching"
	PhaseAggregating Phase = "aggregating"
	PhaseSummarizing Phase = "summarizing"
	PhaseComplete    Phase = "complete"
	PhaseError       Phase = "error"
)

// Searcher is the slice of the search client the engine depends on.
type Searcher interface {
	SearchWithRetry(ctx context.Context, query types.SearchQuery, maxAttempts int) (search.Response, error)
}

// Engine drives research runs. The cache and rate limiter it owns are
// shared across all concurrent queries of a run and across runs.
type Engine struct {
	planner    *planner.Planner
	searcher   Searcher
	summarizer llm.Backend
	cache      cache.Cache
	limiter    *ratelimit.Limiter
	cfg        types.EngineConfig
	log        zerolog.Logger
}

// New assembles an engine from cfg: the search provider (construction fails
// without a real API key), the cache backend, the shared limiter, and the
// optional LLM backend for planning and summarizing.
func New(cfg types.EngineConfig, log zerolog.Logger) (*Engine, error) {
	cfg = cfg.WithDefaults()

	provider, err := search.NewSerperProvider(cfg.Search)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.Window)

	var backend llm.Backend
	if b := llm.NewOpenAI(cfg.AI); b != nil {
		backend = b
	} else {
		log.Warn().Msg("no llm api key configured, planning and summarizing use deterministic fallbacks")
	}

	return &Engine{
		planner:    planner.New(backend, cfg.Region, cfg.Search.ResultCount, log),
		searcher:   search.NewClient(provider, c, limiter, cfg.Search, log),
		summarizer: backend,
		cache:      c,
		limiter:    limiter,
		cfg:        cfg,
		log:        log,
	}, nil
}

// Close releases the engine's shared resources.
func (e *Engine) Close() error {
	e.limiter.Stop()
	return e.cache.Close()
}

// Run executes one research run for theme. The only failure it returns is
// input validation; every later error is absorbed into the summary's
// metrics and degrades the corresponding phase.
func (e *Engine) Run(ctx context.Context, theme string) (*types.ResearchSummary, error) {
	start := time.Now()

	theme = strings.TrimSpace(theme)
	if theme == "" {
		metrics.RunsTotal.WithLabelValues(string(PhaseError)).Inc()
		return nil, &faults.ValidationError{Field: "theme", Reason: "required"}
	}

	runID := uuid.NewString()
	log := e.log.With().Str("run_id", runID).Str("theme", theme).Logger()
	m := types.AgentMetrics{Errors: []types.ErrorRecord{}}

	var mu sync.Mutex
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		m.Errors = append(m.Errors, types.ErrorRecord{
			Timestamp: time.Now(),
			Kind:      faults.Kind(err),
			Message:   err.Error(),
			Retryable: faults.Retryable(err),
		})
	}

	// Planning. The planner falls back internally, so this edge always
	// succeeds; a forced fallback is recorded as a degradation.
	log.Info().Str("phase", string(PhasePlanning)).Msg("planning query set")
	querySet, tokens, err := e.planner.Plan(ctx, theme)
	m.TokensUsed += tokens
	if err != nil {
		record(err)
	}

	// Searching. All queries fan out concurrently; each failure is caught
	// independently and replaced by an empty result set so one bad query
	// never cancels its siblings.
	log.Info().Str("phase", string(PhaseSearching)).Int("queries", len(querySet.All())).Msg("fanning out searches")
	responses := e.fanOut(ctx, querySet.All(), record)

	cached := 0
	var merged []types.SearchResult
	for _, resp := range responses {
		if resp.Cached {
			cached++
		}
		merged = append(merged, resp.Results...)
	}
	m.APICallsCount = len(responses)
	if len(responses) > 0 {
		m.CacheHitRatePct = float64(cached) / float64(len(responses)) * 100
	}

	// Aggregating. Pure computation over available data; cannot fail.
	log.Info().Str("phase", string(PhaseAggregating)).Int("results", len(merged)).Msg("aggregating results")
	deduped := aggregate.RemoveDuplicates(merged)
	insights := aggregate.ExtractInsights(deduped)
	domestic, global := aggregate.CategorizeByRegion(deduped, aggregate.RulesFor(e.cfg.Region.DomesticGeo))
	applicability := aggregate.AnalyzeApplicability(global)

	// Summarizing. An LLM failure degrades to the deterministic narrative.
	log.Info().Str("phase", string(PhaseSummarizing)).Int("insights", len(insights)).Msg("summarizing")
	narrative, tokens, err := e.summarize(ctx, theme, insights, applicability)
	m.TokensUsed += tokens
	if err != nil {
		record(err)
	}

	m.ExecutionTimeMs = time.Since(start).Milliseconds()
	metrics.RunsTotal.WithLabelValues(string(PhaseComplete)).Inc()
	log.Info().
		Str("phase", string(PhaseComplete)).
		Int64("execution_ms", m.ExecutionTimeMs).
		Float64("cache_hit_rate_pct", m.CacheHitRatePct).
		Int("errors", len(m.Errors)).
		Msg("run complete")

	return &types.ResearchSummary{
		RunID:           runID,
		Theme:           theme,
		Narrative:       narrative,
		Insights:        insights,
		Applicability:   applicability,
		SourcesDomestic: sourceLinks(domestic, 10),
		SourcesGlobal:   sourceLinks(global, 10),
		Metrics:         m,
		CreatedAt:       time.Now(),
	}, nil
}

// fanOut runs every query concurrently, bounded by MaxConcurrent, and
// collects responses into per-query slots. Slot order follows the planned
// query order (domestic before global), so the merged output is stable no
// matter how the network calls complete. A failed query leaves an empty
// slot and a recorded error.
func (e *Engine) fanOut(ctx context.Context, queries []types.SearchQuery, record func(error)) []search.Response {
	responses := make([]search.Response, len(queries))

	var g errgroup.Group
	g.SetLimit(e.cfg.MaxConcurrent)
	for i, q := range queries {
		g.Go(func() error {
			resp, err := e.searcher.SearchWithRetry(ctx, q, e.cfg.Search.MaxAttempts)
			if err != nil {
				e.log.Warn().Err(err).Str("query", q.Text).Msg("query degraded to empty results")
				record(err)
				responses[i] = search.Response{Results: []types.SearchResult{}}
				return nil
			}
			responses[i] = resp
			return nil
		})
	}
	g.Wait()
	return responses
}

// summarize requests the LLM narrative and falls back to a deterministic
// synthesis of the insight fields on any failure.
func (e *Engine) summarize(ctx context.Context, theme string, insights []types.Insight, a types.Applicability) (string, int, error) {
	if e.summarizer == nil {
		return fallbackNarrative(theme, insights, a), 0, nil
	}

	resp, err := e.summarizer.Complete(ctx, "summarizing", summaryPrompt(theme, insights, a))
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("summarizing", metrics.StatusError).Inc()
		return fallbackNarrative(theme, insights, a), 0, err
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		err := &faults.LLMError{Phase: "summarizing", Err: errEmptyNarrative}
		metrics.LLMRequestsTotal.WithLabelValues("summarizing", metrics.StatusError).Inc()
		return fallbackNarrative(theme, insights, a), resp.TokensUsed, err
	}

	metrics.LLMRequestsTotal.WithLabelValues("summarizing", metrics.StatusOK).Inc()
	return text, resp.TokensUsed, nil
}

func sourceLinks(results []types.SearchResult, limit int) []string {
	links := make([]string, 0, limit)
	for _, r := range results {
		if len(links) >= limit {
			break
		}
		links = append(links, r.Link)
	}
	return links
}

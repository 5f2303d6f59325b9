// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search issues single queries against the external search provider,
// layering the shared cache, the shared rate limiter, and bounded retry
// around the raw provider call.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/insight-engine/internal/cache"
	"github.com/pdiddy/insight-engine/internal/faults"
	"github.com/pdiddy/insight-engine/internal/metrics"
	"github.com/pdiddy/insight-engine/internal/ratelimit"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// Provider issues one raw query against a search API. Implementations map
// provider failures onto the faults taxonomy.
type Provider interface {
	Name() string
	Search(ctx context.Context, query types.SearchQuery) ([]types.SearchResult, error)
}

// Response is the outcome of one Search call.
type Response struct {
	Results    []types.SearchResult
	Cached     bool
	SearchTime time.Duration
}

// Client is the caching, rate-limited search client shared by all
// concurrently running queries of a run.
type Client struct {
	provider Provider
	cache    cache.Cache
	limiter  *ratelimit.Limiter
	cfg      types.SearchConfig
	log      zerolog.Logger
}

// NewClient assembles a search client over the given provider, cache, and
// limiter. Cache and limiter are shared resources owned by the caller.
func NewClient(provider Provider, c cache.Cache, l *ratelimit.Limiter, cfg types.SearchConfig, log zerolog.Logger) *Client {
	return &Client{
		provider: provider,
		cache:    c,
		limiter:  l,
		cfg:      cfg,
		log:      log.With().Str("provider", provider.Name()).Logger(),
	}
}

// Search resolves one query: cache lookup, then a rate-limited provider
// call with a bounded timeout. A cache hit returns immediately without
// touching the limiter. A timed-out call degrades to an empty result set
// rather than an error so a batch never blocks on one slow query.
func (c *Client) Search(ctx context.Context, query types.SearchQuery) (Response, error) {
	key := cache.Key(query, "search")
	if results, ok := c.cache.Get(key); ok {
		metrics.CacheHitsTotal.Inc()
		c.log.Debug().Str("query", query.Text).Msg("cache hit")
		return Response{Results: results, Cached: true}, nil
	}
	metrics.CacheMissesTotal.Inc()

	if err := c.limiter.Acquire(ctx); err != nil {
		return Response{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	results, err := c.provider.Search(callCtx, query)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.SearchRequestsTotal.WithLabelValues(metrics.StatusTimeout).Inc()
			c.log.Warn().Str("query", query.Text).Dur("elapsed", elapsed).Msg("search timed out, degrading to empty results")
			return Response{Results: []types.SearchResult{}, SearchTime: elapsed}, nil
		}
		metrics.SearchRequestsTotal.WithLabelValues(metrics.StatusError).Inc()
		return Response{}, fmt.Errorf("searching %q: %w", query.Text, err)
	}

	metrics.SearchRequestsTotal.WithLabelValues(metrics.StatusOK).Inc()
	metrics.SearchDuration.Observe(elapsed.Seconds())
	c.cache.Put(key, results)
	return Response{Results: results, Cached: false, SearchTime: elapsed}, nil
}

// SearchWithRetry wraps Search with exponential backoff for retryable
// failures only. Non-retryable faults (schema, auth, plain 4xx) fail
// immediately without consuming attempts. After maxAttempts retryable
// failures the last error is returned.
func (c *Client) SearchWithRetry(ctx context.Context, query types.SearchQuery, maxAttempts int) (Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = c.cfg.MaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			c.log.Debug().Str("query", query.Text).Dur("delay", delay).Int("attempt", attempt+1).Msg("retrying search")
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.Search(ctx, query)
		if err == nil {
			return resp, nil
		}
		if !faults.Retryable(err) {
			return Response{}, err
		}
		lastErr = err
	}
	return Response{}, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

// backoff returns base * 2^attempt, capped at the configured maximum.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.RetryBaseDelay << uint(attempt)
	if delay > c.cfg.RetryMaxDelay || delay <= 0 {
		return c.cfg.RetryMaxDelay
	}
	return delay
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the insight-engine
// research pipeline: planned queries, raw search results, derived insights,
// and the research summary handed to downstream consumers.
package types

import "time"

// Region distinguishes the two halves of a planned query set.
type Region string

const (
	RegionDomestic Region = "domestic"
	RegionGlobal   Region = "global"
)

// SearchQuery holds the parameters of one planned search. Queries are
// immutable once planned.
type SearchQuery struct {
	// Text is the search phrase sent to the provider.
	Text string `json:"text" yaml:"text"`

	// Region marks the query as domestic or global.
	Region Region `json:"region" yaml:"region"`

	// GeoCode is the provider country code (e.g. "jp", "us").
	GeoCode string `json:"geo_code" yaml:"geo_code"`

	// LangCode is the provider language code (e.g. "ja", "en").
	LangCode string `json:"lang_code" yaml:"lang_code"`

	// ResultCount is the number of results requested from the provider.
	ResultCount int `json:"result_count" yaml:"result_count"`
}

// QuerySet is the output of planning: five domestic and three global queries.
type QuerySet struct {
	Domestic []SearchQuery `json:"domestic" yaml:"domestic"`
	Global   []SearchQuery `json:"global" yaml:"global"`
}

// All returns the queries in merged order, domestic first.
func (qs QuerySet) All() []SearchQuery {
	out := make([]SearchQuery, 0, len(qs.Domestic)+len(qs.Global))
	out = append(out, qs.Domestic...)
	out = append(out, qs.Global...)
	return out
}

// SearchResult is one normalized hit from the search provider. The link is
// the canonical identity used for deduplication.
type SearchResult struct {
	// Title is the result title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// Link is the canonical URL of the result.
	Link string `json:"link" yaml:"link"`

	// Snippet is the provider's text excerpt.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Position is the 1-based rank within its query's result page.
	// Zero means the provider did not report a position.
	Position int `json:"position,omitempty" yaml:"position,omitempty"`

	// PublishedDate is the publication date for news results, if known.
	PublishedDate time.Time `json:"published_date,omitempty" yaml:"published_date,omitempty"`
}

// InsightType categorizes a derived insight.
type InsightType string

const (
	InsightMarket     InsightType = "market"
	InsightCompetitor InsightType = "competitor"
	InsightTrend      InsightType = "trend"
	InsightRegulation InsightType = "regulation"
	InsightNeed       InsightType = "need"
	InsightInnovation InsightType = "innovation"
)

// Insight is a categorized, scored finding derived from one search result.
// Insights live only inside the ResearchSummary they belong to.
type Insight struct {
	// Type is the insight category.
	Type InsightType `json:"type" yaml:"type"`

	// Content is the insight text, taken from the result title and snippet.
	Content string `json:"content" yaml:"content"`

	// SourceLink is the canonical link of the originating result.
	SourceLink string `json:"source_link" yaml:"source_link"`

	// RelevanceScore is a value in [0, 1].
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
}

// Applicability summarizes how global findings translate to the domestic
// market: required adaptations, expected challenges, opportunities, and one
// synthesized reasoning sentence.
type Applicability struct {
	Adaptations   []string `json:"adaptations" yaml:"adaptations"`
	Challenges    []string `json:"challenges" yaml:"challenges"`
	Opportunities []string `json:"opportunities" yaml:"opportunities"`
	Reasoning     string   `json:"reasoning" yaml:"reasoning"`
}

// ErrorKind labels an ErrorRecord with the fault taxonomy bucket it came from.
type ErrorKind string

const (
	ErrKindValidation ErrorKind = "validation"
	ErrKindSchema     ErrorKind = "schema"
	ErrKindTransient  ErrorKind = "transient"
	ErrKindAuth       ErrorKind = "auth"
	ErrKindLLM        ErrorKind = "llm"
)

// ErrorRecord is one entry in the append-only error log of a run. Records
// are never mutated after insertion.
type ErrorRecord struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Kind      ErrorKind `json:"kind" yaml:"kind"`
	Message   string    `json:"message" yaml:"message"`
	Retryable bool      `json:"retryable" yaml:"retryable"`
}

// AgentMetrics accumulates observations over one orchestration run. One
// instance exists per run, owned by the orchestrator, and is finalized when
// the run completes.
type AgentMetrics struct {
	// ExecutionTimeMs is the wall-clock duration of the run.
	ExecutionTimeMs int64 `json:"execution_time_ms" yaml:"execution_time_ms"`

	// TokensUsed sums LLM token usage across the planning and summarizing calls.
	TokensUsed int `json:"tokens_used" yaml:"tokens_used"`

	// APICallsCount is the number of search invocations issued, cached or not.
	APICallsCount int `json:"api_calls_count" yaml:"api_calls_count"`

	// CacheHitRatePct is cached searches over total searches, pooled across
	// domestic and global queries, times 100.
	CacheHitRatePct float64 `json:"cache_hit_rate_pct" yaml:"cache_hit_rate_pct"`

	// Errors is the append-only log of degradations during the run.
	Errors []ErrorRecord `json:"errors" yaml:"errors"`
}

// ResearchSummary is the sole output surfaced to downstream agents: the
// narrative, derived insights, source lists, and run metrics.
type ResearchSummary struct {
	// RunID uniquely identifies the orchestration run.
	RunID string `json:"run_id" yaml:"run_id"`

	// Theme is the validated input theme.
	Theme string `json:"theme" yaml:"theme"`

	// Narrative is the LLM summary, or the deterministic fallback narrative
	// when the LLM was unavailable.
	Narrative string `json:"narrative" yaml:"narrative"`

	// Insights are the ranked, categorized findings (at most 20).
	Insights []Insight `json:"insights" yaml:"insights"`

	// Applicability is the cross-market analysis of global findings.
	Applicability Applicability `json:"applicability" yaml:"applicability"`

	// SourcesDomestic and SourcesGlobal list source links by region,
	// capped at ten each.
	SourcesDomestic []string `json:"sources_domestic" yaml:"sources_domestic"`
	SourcesGlobal   []string `json:"sources_global" yaml:"sources_global"`

	// Metrics holds the finalized run metrics.
	Metrics AgentMetrics `json:"metrics" yaml:"metrics"`

	// CreatedAt is the completion timestamp of the run.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

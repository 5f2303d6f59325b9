// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that call external APIs.
type HTTPConfig struct {
	// Timeout is the per-request timeout. A timed-out search degrades to an
	// empty result set rather than an error.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "insight-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CacheBackend selects the query cache implementation.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheSQLite CacheBackend = "sqlite"
)

// CacheConfig holds settings for the query result cache.
type CacheConfig struct {
	// Backend selects the cache implementation: memory or sqlite.
	Backend CacheBackend `json:"backend" yaml:"backend"`

	// TTL is how long a stored entry stays valid (default 1h).
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// Capacity bounds the number of entries; the oldest-inserted entry is
	// evicted on overflow (default 1000).
	Capacity int `json:"capacity" yaml:"capacity"`

	// Path is the SQLite database file, used when Backend is sqlite
	// (default "cache/insight-cache.db").
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// RateLimitConfig holds settings for the shared outbound-call limiter.
type RateLimitConfig struct {
	// Capacity is the number of tokens issued per window (default 10).
	Capacity int `json:"capacity" yaml:"capacity"`

	// Window is the fixed refill interval (default 1s).
	Window time.Duration `json:"window" yaml:"window"`
}

// SearchConfig holds settings for the search client.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the search provider. Required; client
	// construction fails when it is absent or a placeholder.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// ResultCount is the number of results requested per query (default 10).
	ResultCount int `json:"result_count" yaml:"result_count"`

	// MaxAttempts bounds attempts for retryable failures (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// RetryBaseDelay is the base for exponential backoff (default 500ms).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`

	// RetryMaxDelay caps the backoff delay (default 8s).
	RetryMaxDelay time.Duration `json:"retry_max_delay" yaml:"retry_max_delay"`
}

// AIConfig holds shared settings for components that call the LLM API.
type AIConfig struct {
	// Model is the LLM model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the LLM API. Optional: when empty the
	// planner and summarizer fall back to their deterministic paths.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Timeout bounds each LLM call (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// RegionConfig holds the geo and language codes used when planning queries
// and classifying results.
type RegionConfig struct {
	// DomesticGeo is the domestic country code (default "jp").
	DomesticGeo string `json:"domestic_geo" yaml:"domestic_geo"`

	// DomesticLang is the domestic language code (default "ja").
	DomesticLang string `json:"domestic_lang" yaml:"domestic_lang"`

	// GlobalGeo is the country code for global queries (default "us").
	GlobalGeo string `json:"global_geo" yaml:"global_geo"`

	// GlobalLang is the language code for global queries (default "en").
	GlobalLang string `json:"global_lang" yaml:"global_lang"`
}

// EngineConfig groups all component configurations for one orchestrator.
type EngineConfig struct {
	Search    SearchConfig    `json:"search" yaml:"search"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	AI        AIConfig        `json:"ai" yaml:"ai"`
	Region    RegionConfig    `json:"region" yaml:"region"`

	// MaxConcurrent bounds the search fan-out width (default 8).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`
}

// Defaults applied to zero-value settings at construction time.
const (
	DefaultTimeout        = 10 * time.Second
	DefaultCacheTTL       = time.Hour
	DefaultCacheCapacity  = 1000
	DefaultCachePath      = "cache/insight-cache.db"
	DefaultRateCapacity   = 10
	DefaultRateWindow     = time.Second
	DefaultResultCount    = 10
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 8 * time.Second
	DefaultAITimeout      = 60 * time.Second
	DefaultMaxConcurrent  = 8
)

// WithDefaults returns a copy of cfg with zero-value settings replaced by
// the package defaults.
func (c EngineConfig) WithDefaults() EngineConfig {
	if c.Search.Timeout <= 0 {
		c.Search.Timeout = DefaultTimeout
	}
	if c.Search.UserAgent == "" {
		c.Search.UserAgent = "insight-engine/0.1"
	}
	if c.Search.ResultCount <= 0 {
		c.Search.ResultCount = DefaultResultCount
	}
	if c.Search.MaxAttempts <= 0 {
		c.Search.MaxAttempts = DefaultMaxAttempts
	}
	if c.Search.RetryBaseDelay <= 0 {
		c.Search.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.Search.RetryMaxDelay <= 0 {
		c.Search.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = DefaultCacheCapacity
	}
	if c.Cache.Path == "" {
		c.Cache.Path = DefaultCachePath
	}
	if c.RateLimit.Capacity <= 0 {
		c.RateLimit.Capacity = DefaultRateCapacity
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = DefaultRateWindow
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = DefaultAITimeout
	}
	if c.Region.DomesticGeo == "" {
		c.Region.DomesticGeo = "jp"
	}
	if c.Region.DomesticLang == "" {
		c.Region.DomesticLang = "ja"
	}
	if c.Region.GlobalGeo == "" {
		c.Region.GlobalGeo = "us"
	}
	if c.Region.GlobalLang == "" {
		c.Region.GlobalLang = "en"
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	return c
}

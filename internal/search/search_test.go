// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/insight-engine/internal/cache"
	"github.com/pdiddy/insight-engine/internal/faults"
	"github.com/pdiddy/insight-engine/internal/ratelimit"
	"github.com/pdiddy/insight-engine/pkg/types"
)

const sampleSerperJSON = `{
  "organic": [
    {"title": "AI Real Estate Market Report", "link": "https://example.com/report", "snippet": "The market reached $12 billion.", "position": 1},
    {"title": "PropTech Startups to Watch", "link": "https://example.com/startups", "snippet": "Emerging companies.", "position": 2}
  ],
  "news": [
    {"title": "New Zoning Rules", "link": "https://example.com/news", "snippet": "Regulation update.", "date": "2026-08-01"}
  ]
}`

func testSearchCfg() types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   2 * time.Second,
			UserAgent: "test/0.1",
		},
		APIKey:         "test-key",
		ResultCount:    10,
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  4 * time.Millisecond,
	}
}

func testQuery(text string) types.SearchQuery {
	return types.SearchQuery{Text: text, Region: types.RegionDomestic, GeoCode: "jp", LangCode: "ja", ResultCount: 10}
}

// newTestClient points the provider at a handler and wires a fresh cache
// and a generous limiter.
func newTestClient(t *testing.T, handler http.HandlerFunc, cfg types.SearchConfig) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := serperAPIBase
	serperAPIBase = ts.URL
	t.Cleanup(func() { serperAPIBase = old })

	provider, err := NewSerperProvider(cfg)
	if err != nil {
		t.Fatalf("NewSerperProvider: %v", err)
	}
	provider.Client = ts.Client()

	limiter := ratelimit.New(100, time.Hour)
	t.Cleanup(limiter.Stop)

	c := cache.NewMemory(types.CacheConfig{TTL: time.Hour, Capacity: 100})
	return NewClient(provider, c, limiter, cfg, zerolog.Nop())
}

// --- provider construction ---

func TestNewSerperProviderRejectsPlaceholderKey(t *testing.T) {
	for _, key := range []string{"", "  ", "changeme", "YOUR-API-KEY"} {
		cfg := testSearchCfg()
		cfg.APIKey = key
		_, err := NewSerperProvider(cfg)
		var ve *faults.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("key %q: expected ValidationError, got %v", key, err)
		}
	}
}

// --- wire contract ---

func TestSearchNormalizesResponse(t *testing.T) {
	var gotReq serperRequest
	var gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		json.NewDecoder(r.Body).Decode(&gotReq)
		fmt.Fprint(w, sampleSerperJSON)
	}, testSearchCfg())

	resp, err := client.Search(context.Background(), testQuery("ai real estate"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Cached {
		t.Error("first call should not be cached")
	}
	if gotKey != "test-key" {
		t.Errorf("X-API-KEY = %q", gotKey)
	}
	if gotReq.Q != "ai real estate" || gotReq.GL != "jp" || gotReq.HL != "ja" || gotReq.Num != 10 {
		t.Errorf("request = %+v", gotReq)
	}

	if len(resp.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3 (2 organic + 1 news)", len(resp.Results))
	}
	if resp.Results[0].Link != "https://example.com/report" || resp.Results[0].Position != 1 {
		t.Errorf("organic result = %+v", resp.Results[0])
	}
	news := resp.Results[2]
	if news.PublishedDate.IsZero() {
		t.Error("news date should be parsed")
	}
}

func TestSearchCacheDeterminism(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, sampleSerperJSON)
	}, testSearchCfg())

	q := testQuery("cached query")
	first, err := client.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("first Search: %v", err)
	}
	second, err := client.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("second Search: %v", err)
	}

	if first.Cached || !second.Cached {
		t.Errorf("Cached flags = %v, %v; want false, true", first.Cached, second.Cached)
	}
	if second.SearchTime != 0 {
		t.Errorf("cached SearchTime = %v, want 0", second.SearchTime)
	}
	if len(first.Results) != len(second.Results) {
		t.Fatalf("result counts differ: %d vs %d", len(first.Results), len(second.Results))
	}
	for i := range first.Results {
		if first.Results[i] != second.Results[i] {
			t.Errorf("result %d differs between fresh and cached call", i)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
}

func TestSearchTimeoutDegradesToEmpty(t *testing.T) {
	cfg := testSearchCfg()
	cfg.Timeout = 30 * time.Millisecond
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, cfg)

	resp, err := client.Search(context.Background(), testQuery("slow"))
	if err != nil {
		t.Fatalf("timeout should not be an error, got: %v", err)
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("Results = %v, want empty non-nil slice", resp.Results)
	}
	if resp.Cached {
		t.Error("timed-out call must not report cached")
	}
}

func TestSearchSchemaMismatch(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>gateway</html>"},
		{"missing organic", `{"news": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.body)
			}, testSearchCfg())

			_, err := client.Search(context.Background(), testQuery("schema"))
			var se *faults.SchemaError
			if !errors.As(err, &se) {
				t.Errorf("expected SchemaError, got %v", err)
			}
			if faults.Retryable(err) {
				t.Error("schema faults must not be retryable")
			}
		})
	}
}

func TestSearchStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}, testSearchCfg())

			_, err := client.Search(context.Background(), testQuery("status"))
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := faults.Retryable(err); got != tt.retryable {
				t.Errorf("Retryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

// --- retry ---

func TestSearchWithRetryEventualSuccess(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, sampleSerperJSON)
	}, testSearchCfg())

	resp, err := client.SearchWithRetry(context.Background(), testQuery("flaky"), 3)
	if err != nil {
		t.Fatalf("SearchWithRetry: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Errorf("len(Results) = %d, want 3", len(resp.Results))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("provider calls = %d, want 3", got)
	}
}

func TestSearchWithRetryExhaustsBudget(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, testSearchCfg())

	_, err := client.SearchWithRetry(context.Background(), testQuery("down"), 3)
	if err == nil {
		t.Fatal("expected an error after exhausting attempts")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("error = %v, should mention attempt budget", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("provider calls = %d, want 3", got)
	}
}

func TestSearchWithRetrySkipsNonRetryable(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}, testSearchCfg())

	_, err := client.SearchWithRetry(context.Background(), testQuery("denied"), 3)
	var ae *faults.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("provider calls = %d, want 1 (no retry budget consumed)", got)
	}
}

func TestBackoffCapped(t *testing.T) {
	cfg := testSearchCfg()
	cfg.RetryBaseDelay = 100 * time.Millisecond
	cfg.RetryMaxDelay = 300 * time.Millisecond
	c := &Client{cfg: cfg}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 300 * time.Millisecond},
		{10, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := c.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

// --- date parsing ---

func TestParseNewsDate(t *testing.T) {
	tests := []struct {
		input    string
		wantZero bool
	}{
		{"2026-08-01", false},
		{"Aug 1, 2026", false},
		{"2026-08-01T09:30:00Z", false},
		{"2 days ago", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseNewsDate(tt.input)
			if got.IsZero() != tt.wantZero {
				t.Errorf("parseNewsDate(%q) = %v, wantZero=%v", tt.input, got, tt.wantZero)
			}
		})
	}
}

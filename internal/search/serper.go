// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/insight-engine/internal/faults"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// serperAPIBase is the search provider endpoint. Declared as a var so tests
// can substitute an httptest server.
var serperAPIBase = "https://google.serper.dev/search"

const providerName = "serper"

// placeholderKeys are rejected at construction so a templated config file
// cannot silently produce authenticated-looking requests.
var placeholderKeys = map[string]bool{
	"":             true,
	"changeme":     true,
	"your-api-key": true,
	"xxx":          true,
}

// SerperProvider issues one raw query against the Serper-style search API.
type SerperProvider struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

// NewSerperProvider validates the API key and builds the provider. The key
// is required; an absent or placeholder key fails construction.
func NewSerperProvider(cfg types.SearchConfig) (*SerperProvider, error) {
	key := strings.TrimSpace(strings.ToLower(cfg.APIKey))
	if placeholderKeys[key] {
		return nil, &faults.ValidationError{Field: "search.api_key", Reason: "required, set a real provider key"}
	}
	return &SerperProvider{
		Client:    &http.Client{},
		APIKey:    strings.TrimSpace(cfg.APIKey),
		UserAgent: cfg.UserAgent,
	}, nil
}

// Name returns the provider identifier.
func (p *SerperProvider) Name() string { return providerName }

// serper wire format.
type serperRequest struct {
	Q    string `json:"q"`
	GL   string `json:"gl,omitempty"`
	HL   string `json:"hl,omitempty"`
	Num  int    `json:"num,omitempty"`
	Type string `json:"type,omitempty"`
}

type serperResponse struct {
	Organic []serperOrganic `json:"organic"`
	News    []serperNews    `json:"news"`
}

type serperOrganic struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

type serperNews struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
}

// Search POSTs the query and normalizes the response into SearchResults.
// Status mapping: 401/403 is an auth fault, 429 and 5xx are transient,
// any other non-2xx is treated as a schema fault because the remote
// contract no longer matches expectations.
func (p *SerperProvider) Search(ctx context.Context, query types.SearchQuery) ([]types.SearchResult, error) {
	body, err := json.Marshal(serperRequest{
		Q:    query.Text,
		GL:   query.GeoCode,
		HL:   query.LangCode,
		Num:  query.ResultCount,
		Type: "search",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperAPIBase, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", p.APIKey)
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, &faults.TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &faults.AuthError{Provider: providerName, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &faults.TransientError{Status: resp.StatusCode, Err: fmt.Errorf("%s returned HTTP %d", providerName, resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &faults.SchemaError{Provider: providerName, Reason: fmt.Sprintf("unexpected HTTP %d", resp.StatusCode)}
	}

	var sr serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, &faults.SchemaError{Provider: providerName, Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if sr.Organic == nil {
		return nil, &faults.SchemaError{Provider: providerName, Reason: "missing organic results array"}
	}

	results := make([]types.SearchResult, 0, len(sr.Organic)+len(sr.News))
	for i, o := range sr.Organic {
		if o.Link == "" {
			continue
		}
		pos := o.Position
		if pos == 0 {
			pos = i + 1
		}
		results = append(results, types.SearchResult{
			Title:    o.Title,
			Link:     o.Link,
			Snippet:  o.Snippet,
			Position: pos,
		})
	}
	for _, n := range sr.News {
		if n.Link == "" {
			continue
		}
		results = append(results, types.SearchResult{
			Title:         n.Title,
			Link:          n.Link,
			Snippet:       n.Snippet,
			PublishedDate: parseNewsDate(n.Date),
		})
	}
	return results, nil
}

// newsDateFormats covers the absolute date shapes the provider emits.
// Relative dates ("2 days ago") are left as zero times; the scoring
// freshness bonus simply does not apply to them.
var newsDateFormats = []string{
	time.RFC3339,
	"2006-01-02",
	"Jan 2, 2006",
}

func parseNewsDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range newsDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

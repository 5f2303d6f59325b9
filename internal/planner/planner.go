// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package planner turns a business theme into the query set the
// orchestrator fans out: five domestic and three global searches. The LLM
// proposes the queries; any planning failure falls back to a deterministic
// template set so the pipeline can always proceed.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/insight-engine/internal/faults"
	"github.com/pdiddy/insight-engine/internal/llm"
	"github.com/pdiddy/insight-engine/pkg/types"
)

const (
	// NumDomestic and NumGlobal are the fixed query counts of a plan.
	NumDomestic = 5
	NumGlobal   = 3
)

// Planner builds query sets for a theme.
type Planner struct {
	backend     llm.Backend
	region      types.RegionConfig
	resultCount int
	log         zerolog.Logger
}

// New creates a planner. backend may be nil, in which case every plan uses
// the template fallback.
func New(backend llm.Backend, region types.RegionConfig, resultCount int, log zerolog.Logger) *Planner {
	if resultCount <= 0 {
		resultCount = types.DefaultResultCount
	}
	return &Planner{backend: backend, region: region, resultCount: resultCount, log: log}
}

// planResponse is the JSON shape requested from the LLM.
type planResponse struct {
	Domestic []string `json:"domestic"`
	Global   []string `json:"global"`
}

// Plan produces the query set for theme. It returns the tokens consumed by
// the LLM call and the error that forced the template fallback, if any; the
// returned QuerySet is valid either way, so planning as a phase never fails.
func (p *Planner) Plan(ctx context.Context, theme string) (types.QuerySet, int, error) {
	if p.backend == nil {
		return p.fallback(theme), 0, nil
	}

	resp, err := p.backend.Complete(ctx, "planning", planPrompt(theme))
	if err != nil {
		p.log.Warn().Err(err).Msg("query planning failed, using template queries")
		return p.fallback(theme), 0, err
	}

	var parsed planResponse
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		err = &faults.LLMError{Phase: "planning", Err: err}
		p.log.Warn().Err(err).Msg("query plan unparseable, using template queries")
		return p.fallback(theme), resp.TokensUsed, err
	}

	if err := validatePlan(parsed); err != nil {
		err = &faults.LLMError{Phase: "planning", Err: err}
		p.log.Warn().Err(err).Msg("query plan invalid, using template queries")
		return p.fallback(theme), resp.TokensUsed, err
	}

	return p.build(parsed.Domestic, parsed.Global), resp.TokensUsed, nil
}

// validatePlan checks counts and shape: exactly five domestic and three
// global non-blank queries.
func validatePlan(plan planResponse) error {
	if len(plan.Domestic) != NumDomestic {
		return fmt.Errorf("expected %d domestic queries, got %d", NumDomestic, len(plan.Domestic))
	}
	if len(plan.Global) != NumGlobal {
		return fmt.Errorf("expected %d global queries, got %d", NumGlobal, len(plan.Global))
	}
	for _, q := range append(append([]string{}, plan.Domestic...), plan.Global...) {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("plan contains a blank query")
		}
	}
	return nil
}

// domesticTemplates and globalTemplates mechanically derive queries from
// the theme when the LLM cannot.
var domesticTemplates = []string{
	"%s market size",
	"%s competitors",
	"%s industry trends",
	"%s customer needs",
	"%s regulations",
}

var globalTemplates = []string{
	"%s global market",
	"%s leading startups",
	"%s innovation trends",
}

func (p *Planner) fallback(theme string) types.QuerySet {
	domestic := make([]string, 0, NumDomestic)
	for _, tmpl := range domesticTemplates {
		domestic = append(domestic, fmt.Sprintf(tmpl, theme))
	}
	global := make([]string, 0, NumGlobal)
	for _, tmpl := range globalTemplates {
		global = append(global, fmt.Sprintf(tmpl, theme))
	}
	return p.build(domestic, global)
}

func (p *Planner) build(domestic, global []string) types.QuerySet {
	qs := types.QuerySet{
		Domestic: make([]types.SearchQuery, 0, len(domestic)),
		Global:   make([]types.SearchQuery, 0, len(global)),
	}
	for _, text := range domestic {
		qs.Domestic = append(qs.Domestic, types.SearchQuery{
			Text:        strings.TrimSpace(text),
			Region:      types.RegionDomestic,
			GeoCode:     p.region.DomesticGeo,
			LangCode:    p.region.DomesticLang,
			ResultCount: p.resultCount,
		})
	}
	for _, text := range global {
		qs.Global = append(qs.Global, types.SearchQuery{
			Text:        strings.TrimSpace(text),
			Region:      types.RegionGlobal,
			GeoCode:     p.region.GlobalGeo,
			LangCode:    p.region.GlobalLang,
			ResultCount: p.resultCount,
		})
	}
	return qs
}

func planPrompt(theme string) string {
	return fmt.Sprintf(`You are planning market research for the business theme %q.
Propose search queries as JSON with exactly this shape:
{"domestic": ["q1", "q2", "q3", "q4", "q5"], "global": ["q1", "q2", "q3"]}

Domestic queries target the home market (market size, competitors, trends,
customer needs, regulations). Global queries target international markets
and innovations. Respond with JSON only.`, theme)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate turns a merged batch of raw search results into ranked,
// deduplicated, categorized insights. Every function here is pure
// computation over already-fetched data and cannot fail.
package aggregate

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// maxInsights bounds the ranked insight list handed downstream.
const maxInsights = 20

// nowFunc is the clock used for freshness bonuses. Tests substitute it.
var nowFunc = time.Now

// RemoveDuplicates drops results whose canonical link was already seen.
// The first occurrence wins and input order is preserved, which makes the
// operation idempotent.
func RemoveDuplicates(results []types.SearchResult) []types.SearchResult {
	seen := make(map[string]bool, len(results))
	deduped := make([]types.SearchResult, 0, len(results))
	for _, r := range results {
		if seen[r.Link] {
			continue
		}
		seen[r.Link] = true
		deduped = append(deduped, r)
	}
	return deduped
}

// categoryKeywords maps each insight category to the tokens that signal it.
// Matching is case-insensitive substring membership over title and snippet;
// a result may land in zero, one, or several categories.
var categoryKeywords = []struct {
	category types.InsightType
	keywords []string
}{
	{types.InsightMarket, []string{"market size", "market share", "market value", "revenue", "billion", "million", "cagr", "growth rate"}},
	{types.InsightCompetitor, []string{"competitor", "competition", "leading companies", "top companies", "players", "vendors", "alternatives", "vs "}},
	{types.InsightTrend, []string{"trend", "emerging", "future of", "outlook", "forecast", "next generation", "shift"}},
	{types.InsightRegulation, []string{"regulation", "regulatory", "law", "legislation", "compliance", "policy", "license", "government"}},
	{types.InsightNeed, []string{"need", "demand", "pain point", "problem", "challenge", "complaint", "struggle", "frustration"}},
	{types.InsightInnovation, []string{"innovation", "innovative", "breakthrough", "startup", "new technology", "launch", "patent", "disrupt"}},
}

// magnitudePattern matches numeric magnitude tokens such as "$12 billion",
// "3.5 million", or "40%", which mark concrete market sizing.
var magnitudePattern = regexp.MustCompile(`\$?\d+(?:[.,]\d+)?\s*(?:billion|million|trillion|%|bn|m\b)`)

// ExtractInsights classifies each result against the category keyword sets
// and scores it. Results that match no category produce no insight. The
// output is sorted by descending relevance and truncated to the top 20.
func ExtractInsights(results []types.SearchResult) []types.Insight {
	now := nowFunc()
	var insights []types.Insight

	for _, r := range results {
		text := strings.ToLower(r.Title + " " + r.Snippet)
		for _, cat := range categoryKeywords {
			if !matchesAny(text, cat.keywords) {
				continue
			}
			insights = append(insights, types.Insight{
				Type:           cat.category,
				Content:        insightContent(r),
				SourceLink:     r.Link,
				RelevanceScore: Score(r, cat.category, now),
			})
		}
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].RelevanceScore > insights[j].RelevanceScore
	})
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

// Score computes the relevance of a result for one category:
// a 0.5 base, a position bonus of (10 - min(position, 10)) * 0.05, a
// freshness bonus (+0.2 under 30 days, +0.1 under 90), and a category
// bonus (+0.1 for market results carrying a numeric magnitude token).
// The result is clamped to [0, 1]. Results without a reported position or
// date earn no corresponding bonus.
func Score(r types.SearchResult, category types.InsightType, now time.Time) float64 {
	score := 0.5

	if r.Position > 0 {
		pos := r.Position
		if pos > 10 {
			pos = 10
		}
		score += float64(10-pos) * 0.05
	}

	if !r.PublishedDate.IsZero() {
		age := now.Sub(r.PublishedDate)
		switch {
		case age < 30*24*time.Hour:
			score += 0.2
		case age < 90*24*time.Hour:
			score += 0.1
		}
	}

	if category == types.InsightMarket {
		if magnitudePattern.MatchString(strings.ToLower(r.Title + " " + r.Snippet)) {
			score += 0.1
		}
	}

	if score > 1.0 {
		return 1.0
	}
	if score < 0.0 {
		return 0.0
	}
	return score
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// insightContent joins title and snippet, bounded so one verbose snippet
// cannot dominate the summary.
func insightContent(r types.SearchResult) string {
	content := strings.TrimSpace(r.Title)
	if s := strings.TrimSpace(r.Snippet); s != "" {
		content += ": " + s
	}
	if r := []rune(content); len(r) > 280 {
		content = string(r[:277]) + "..."
	}
	return content
}

// RegionRules drive the domestic/global split: a result is domestic when
// its host carries a domestic domain suffix or its text contains
// domestic-script characters. The heuristic is approximate and need not
// match the query's intended region.
type RegionRules struct {
	DomainSuffixes []string
	Scripts        []*unicode.RangeTable
}

// RulesFor returns the built-in rules for a domestic geo code. Unknown
// codes fall back to a bare country-code domain suffix with no script test.
func RulesFor(geo string) RegionRules {
	switch strings.ToLower(geo) {
	case "jp":
		return RegionRules{
			DomainSuffixes: []string{".jp"},
			Scripts:        []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana, unicode.Han},
		}
	case "kr":
		return RegionRules{
			DomainSuffixes: []string{".kr"},
			Scripts:        []*unicode.RangeTable{unicode.Hangul},
		}
	default:
		return RegionRules{DomainSuffixes: []string{"." + strings.ToLower(geo)}}
	}
}

// CategorizeByRegion splits results into domestic and global lists,
// preserving input order within each.
func CategorizeByRegion(results []types.SearchResult, rules RegionRules) (domestic, global []types.SearchResult) {
	for _, r := range results {
		if isDomestic(r, rules) {
			domestic = append(domestic, r)
		} else {
			global = append(global, r)
		}
	}
	return domestic, global
}

func isDomestic(r types.SearchResult, rules RegionRules) bool {
	if u, err := url.Parse(r.Link); err == nil {
		host := strings.ToLower(u.Hostname())
		for _, suffix := range rules.DomainSuffixes {
			if strings.HasSuffix(host, suffix) {
				return true
			}
		}
	}
	if len(rules.Scripts) == 0 {
		return false
	}
	for _, ch := range r.Title + r.Snippet {
		for _, script := range rules.Scripts {
			if unicode.Is(script, ch) {
				return true
			}
		}
	}
	return false
}

// maxApplicabilityItems caps each accumulated list.
const maxApplicabilityItems = 5

// trigger pairs a lowercase keyword with the canonical list entry it adds.
// Triggers are ordered slices so accumulation is deterministic.
type trigger struct {
	keyword string
	entry   string
}

var adaptationTriggers = []trigger{
	{"localiz", "Localize the product and interface for the domestic language"},
	{"regulat", "Align the offering with domestic regulations"},
	{"cultur", "Adapt positioning to domestic business culture"},
	{"partner", "Build domestic distribution partnerships"},
	{"pricing", "Rework pricing for domestic purchasing power"},
	{"integrat", "Integrate with domestic platforms and data sources"},
}

var challengeTriggers = []trigger{
	{"competit", "Established players already serve adjacent needs"},
	{"barrier", "High entry barriers in the domestic market"},
	{"privacy", "Data privacy constraints limit available signals"},
	{"shortage", "Scarce specialist talent for the domain"},
	{"adoption", "Slow adoption cycles among domestic buyers"},
	{"cost", "Cost structures differ from the originating market"},
}

var opportunityTriggers = []trigger{
	{"growth", "Ride the documented market growth"},
	{"untapped", "Serve segments still untapped domestically"},
	{"demand", "Meet rising demand ahead of competitors"},
	{"efficien", "Sell efficiency gains already proven abroad"},
	{"expand", "Follow proven international expansion paths"},
	{"invest", "Leverage active investor interest in the space"},
}

// AnalyzeApplicability scans global results for adaptation, challenge, and
// opportunity signals, accumulating deduplicated lists capped at five
// entries each, and synthesizes one reasoning sentence whose wording
// depends on which of the adaptation and challenge lists are non-empty.
func AnalyzeApplicability(globalResults []types.SearchResult) types.Applicability {
	var a types.Applicability
	for _, r := range globalResults {
		text := strings.ToLower(r.Title + " " + r.Snippet)
		a.Adaptations = accumulate(a.Adaptations, text, adaptationTriggers)
		a.Challenges = accumulate(a.Challenges, text, challengeTriggers)
		a.Opportunities = accumulate(a.Opportunities, text, opportunityTriggers)
	}
	a.Reasoning = applicabilityReasoning(len(a.Adaptations), len(a.Challenges))
	return a
}

func accumulate(list []string, text string, triggers []trigger) []string {
	for _, tr := range triggers {
		if len(list) >= maxApplicabilityItems {
			return list
		}
		if !strings.Contains(text, tr.keyword) {
			continue
		}
		if !containsString(list, tr.entry) {
			list = append(list, tr.entry)
		}
	}
	return list
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// applicabilityReasoning picks one of four deterministic templates.
func applicabilityReasoning(adaptations, challenges int) string {
	switch {
	case adaptations > 0 && challenges > 0:
		return fmt.Sprintf("Global precedents apply domestically after %d adaptations, though %d challenges need mitigation first.", adaptations, challenges)
	case adaptations > 0:
		return fmt.Sprintf("Global precedents transfer domestically after %d adaptations, with no major challenges identified.", adaptations)
	case challenges > 0:
		return fmt.Sprintf("Global precedents could transfer directly, but %d challenges need mitigation first.", challenges)
	default:
		return "Global findings transfer directly; no notable adaptations or challenges were identified."
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/insight-engine/pkg/types"
)

var errEmptyNarrative = errors.New("model returned an empty narrative")

// summaryPrompt asks for a short prose narrative over the extracted
// insights. Plain text is requested explicitly because the planner path
// already handles the JSON-shaped responses.
func summaryPrompt(theme string, insights []types.Insight, a types.Applicability) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a concise market research narrative (2-3 paragraphs, plain text, no markdown) for the theme %q.\n\n", theme)
	b.WriteString("Key insights:\n")
	for i, ins := range insights {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s\n", ins.Type, ins.Content)
	}
	if len(a.Opportunities) > 0 {
		b.WriteString("\nOpportunities for the domestic market:\n")
		for _, o := range a.Opportunities {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	if len(a.Challenges) > 0 {
		b.WriteString("\nChallenges:\n")
		for _, c := range a.Challenges {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	b.WriteString("\nGround every statement in the insights above. Do not invent figures.")
	return b.String()
}

// fallbackNarrative assembles a readable summary from the insight fields
// alone. It backs the no-LLM and LLM-failure paths, so it must produce
// the same text for the same inputs.
func fallbackNarrative(theme string, insights []types.Insight, a types.Applicability) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Research summary for %q.", theme))

	if market := firstOfType(insights, types.InsightMarket); market != "" {
		parts = append(parts, "Market signal: "+sentence(market))
	}
	if comps := contentOfType(insights, types.InsightCompetitor, 3); len(comps) > 0 {
		parts = append(parts, "Competitive landscape: "+sentence(strings.Join(comps, "; ")))
	}
	if trend := firstOfType(insights, types.InsightTrend); trend != "" {
		parts = append(parts, "Leading trend: "+sentence(trend))
	}
	if a.Reasoning != "" {
		parts = append(parts, a.Reasoning)
	}
	if len(parts) == 1 {
		parts = append(parts, "No categorized insights were found. Consider broadening the theme or retrying once search quotas reset.")
	}
	return strings.Join(parts, " ")
}

func firstOfType(insights []types.Insight, t types.InsightType) string {
	for _, ins := range insights {
		if ins.Type == t {
			return ins.Content
		}
	}
	return ""
}

func contentOfType(insights []types.Insight, t types.InsightType, max int) []string {
	var out []string
	for _, ins := range insights {
		if ins.Type != t {
			continue
		}
		out = append(out, ins.Content)
		if len(out) == max {
			break
		}
	}
	return out
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		s += "."
	}
	return s
}

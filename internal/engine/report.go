// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// WriteSummaryFile saves a completed run to a YAML file. A saved summary
// can be reloaded and reformatted later without re-running the research.
func WriteSummaryFile(path string, summary *types.ResearchSummary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling summary file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSummaryFile loads a previously saved summary from disk.
func ReadSummaryFile(path string) (*types.ResearchSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary file: %w", err)
	}
	var summary types.ResearchSummary
	if err := yaml.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("parsing summary file: %w", err)
	}
	return &summary, nil
}

// FormatTable writes the summary as a human-readable report to w.
func FormatTable(summary *types.ResearchSummary, w io.Writer) {
	fmt.Fprintf(w, "Theme: %s\n", summary.Theme)
	fmt.Fprintf(w, "Run:   %s\n\n", summary.RunID)

	fmt.Fprintln(w, summary.Narrative)
	fmt.Fprintln(w)

	if len(summary.Insights) == 0 {
		fmt.Fprintln(w, "No insights found.")
	} else {
		fmt.Fprintf(w, "%-4s  %-12s  %-6s  %s\n", "Rank", "Type", "Score", "Insight")
		fmt.Fprintln(w, strings.Repeat("-", 100))
		for i, ins := range summary.Insights {
			fmt.Fprintf(w, "%-4d  %-12s  %-6.2f  %s\n",
				i+1, ins.Type, ins.RelevanceScore, truncate(ins.Content, 72))
		}
	}

	if len(summary.Applicability.Opportunities) > 0 {
		fmt.Fprintln(w, "\nOpportunities:")
		for _, o := range summary.Applicability.Opportunities {
			fmt.Fprintf(w, "  - %s\n", o)
		}
	}
	if len(summary.Applicability.Challenges) > 0 {
		fmt.Fprintln(w, "\nChallenges:")
		for _, c := range summary.Applicability.Challenges {
			fmt.Fprintf(w, "  - %s\n", c)
		}
	}

	m := summary.Metrics
	fmt.Fprintf(w, "\n%d insights, %d searches, %.0f%% cache hits, %d tokens, %dms",
		len(summary.Insights), m.APICallsCount, m.CacheHitRatePct, m.TokensUsed, m.ExecutionTimeMs)
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, " (%d degraded operations)", len(m.Errors))
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the summary as indented JSON to w.
func FormatJSON(summary *types.ResearchSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// truncate caps s at max runes. Slicing runes rather than bytes keeps
// multibyte content, such as Japanese titles, valid UTF-8.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pdiddy/insight-engine/internal/faults"
	"github.com/pdiddy/insight-engine/internal/llm"
	"github.com/pdiddy/insight-engine/pkg/types"
)

type mockBackend struct {
	text   string
	tokens int
	err    error
}

func (m *mockBackend) Complete(_ context.Context, _, _ string) (llm.Response, error) {
	if m.err != nil {
		return llm.Response{}, m.err
	}
	return llm.Response{Text: m.text, TokensUsed: m.tokens}, nil
}

func testRegion() types.RegionConfig {
	return types.RegionConfig{DomesticGeo: "jp", DomesticLang: "ja", GlobalGeo: "us", GlobalLang: "en"}
}

const validPlanJSON = `{
  "domestic": ["ai fudosan market", "ai real estate players jp", "proptech jp trends", "home buyer pain points jp", "real estate law ai jp"],
  "global": ["ai real estate global market", "proptech unicorns", "real estate ai innovation"]
}`

func TestPlanUsesLLMQueries(t *testing.T) {
	p := New(&mockBackend{text: validPlanJSON, tokens: 321}, testRegion(), 10, zerolog.Nop())

	qs, tokens, err := p.Plan(context.Background(), "AI in real estate")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if tokens != 321 {
		t.Errorf("tokens = %d, want 321", tokens)
	}
	if len(qs.Domestic) != NumDomestic || len(qs.Global) != NumGlobal {
		t.Fatalf("counts = %d/%d, want %d/%d", len(qs.Domestic), len(qs.Global), NumDomestic, NumGlobal)
	}
	if qs.Domestic[0].Text != "ai fudosan market" {
		t.Errorf("Domestic[0].Text = %q", qs.Domestic[0].Text)
	}
	if qs.Domestic[0].GeoCode != "jp" || qs.Domestic[0].LangCode != "ja" {
		t.Errorf("domestic codes = %s/%s", qs.Domestic[0].GeoCode, qs.Domestic[0].LangCode)
	}
	if qs.Global[0].GeoCode != "us" || qs.Global[0].Region != types.RegionGlobal {
		t.Errorf("global query = %+v", qs.Global[0])
	}
}

func TestPlanFallbackOnLLMError(t *testing.T) {
	llmErr := &faults.LLMError{Phase: "planning", Err: errors.New("rate limited")}
	p := New(&mockBackend{err: llmErr}, testRegion(), 10, zerolog.Nop())

	qs, tokens, err := p.Plan(context.Background(), "AI in real estate")
	if err == nil {
		t.Fatal("expected the forcing error to be reported")
	}
	if tokens != 0 {
		t.Errorf("tokens = %d, want 0", tokens)
	}
	assertTemplateSet(t, qs, "AI in real estate")
}

func TestPlanFallbackOnMalformedJSON(t *testing.T) {
	cases := map[string]string{
		"prose":        "I cannot produce queries right now.",
		"wrong counts": `{"domestic": ["a", "b"], "global": ["c"]}`,
		"blank query":  `{"domestic": ["a", "b", "c", "d", " "], "global": ["e", "f", "g"]}`,
		"truncated":    "```json\n{\"domestic\": [\"a\",",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			p := New(&mockBackend{text: text}, testRegion(), 10, zerolog.Nop())
			qs, _, err := p.Plan(context.Background(), "smart farming")
			if err == nil {
				t.Fatal("expected a degradation error")
			}
			var le *faults.LLMError
			if !errors.As(err, &le) {
				t.Errorf("expected LLMError, got %v", err)
			}
			assertTemplateSet(t, qs, "smart farming")
		})
	}
}

func TestPlanNilBackendUsesTemplates(t *testing.T) {
	p := New(nil, testRegion(), 10, zerolog.Nop())
	qs, tokens, err := p.Plan(context.Background(), "pet insurance")
	if err != nil {
		t.Fatalf("nil backend should not report an error: %v", err)
	}
	if tokens != 0 {
		t.Errorf("tokens = %d, want 0", tokens)
	}
	assertTemplateSet(t, qs, "pet insurance")
}

// assertTemplateSet verifies the deterministic fallback shape: 5 domestic
// and 3 global queries, each derived from the theme.
func assertTemplateSet(t *testing.T, qs types.QuerySet, theme string) {
	t.Helper()
	if len(qs.Domestic) != NumDomestic {
		t.Fatalf("len(Domestic) = %d, want %d", len(qs.Domestic), NumDomestic)
	}
	if len(qs.Global) != NumGlobal {
		t.Fatalf("len(Global) = %d, want %d", len(qs.Global), NumGlobal)
	}
	for _, q := range qs.All() {
		if !strings.Contains(q.Text, theme) {
			t.Errorf("query %q should be derived from theme %q", q.Text, theme)
		}
	}
	if qs.Domestic[0].Text != theme+" market size" {
		t.Errorf("Domestic[0] = %q, want deterministic first template", qs.Domestic[0].Text)
	}
	if qs.Global[0].Text != theme+" global market" {
		t.Errorf("Global[0] = %q, want deterministic first template", qs.Global[0].Text)
	}
}

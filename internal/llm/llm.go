// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm abstracts the Generative AI API used for query planning and
// narrative summarizing. The contract is deliberately narrow: a prompt in,
// text plus token usage out, so callers can supply a mock and every failure
// can degrade to a deterministic fallback.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/pdiddy/insight-engine/internal/faults"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// Response is the result of one completion call.
type Response struct {
	// Text is the raw model output, possibly wrapped in code fences.
	Text string

	// TokensUsed is the total token usage reported by the API.
	TokensUsed int
}

// Backend performs a single completion. Implementations map failures onto
// faults.LLMError with the given phase.
type Backend interface {
	Complete(ctx context.Context, phase, prompt string) (Response, error)
}

// openaiBaseURL overrides the API endpoint. Tests point it at an httptest
// server.
var openaiBaseURL = ""

// OpenAIBackend calls the OpenAI chat completions API.
type OpenAIBackend struct {
	api     openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI builds a backend for cfg. Returns nil when no API key is
// configured; callers treat a nil backend as "LLM unavailable" and take
// their fallback paths.
func NewOpenAI(cfg types.AIConfig) *OpenAIBackend {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultAITimeout
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if openaiBaseURL != "" {
		opts = append(opts, option.WithBaseURL(openaiBaseURL))
	}
	return &OpenAIBackend{
		api:     openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}
}

// Complete sends the prompt as a single user message and returns the first
// choice's content with token usage. Each call is bounded by the configured
// timeout, so a hung API call cannot stall its run phase.
func (b *OpenAIBackend) Complete(ctx context.Context, phase, prompt string) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return Response{}, &faults.LLMError{Phase: phase, Err: err}
	}
	if len(resp.Choices) == 0 {
		return Response{}, &faults.LLMError{Phase: phase, Err: fmt.Errorf("no choices in response")}
	}
	return Response{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

// DecodeJSON extracts the JSON payload from a model response and unmarshals
// it into v. Models routinely wrap JSON in Markdown code fences or prepend
// prose, so the payload is taken from the first opening brace or bracket to
// its matching end of text. A response with no decodable JSON is an
// explicit parse failure, never a silent partial result.
func DecodeJSON(text string, v any) error {
	payload := stripFences(text)

	start := strings.IndexAny(payload, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON object in response")
	}
	var end int
	if payload[start] == '{' {
		end = strings.LastIndex(payload, "}")
	} else {
		end = strings.LastIndex(payload, "]")
	}
	if end < start {
		return fmt.Errorf("unterminated JSON in response")
	}

	if err := json.Unmarshal([]byte(payload[start:end+1]), v); err != nil {
		return fmt.Errorf("decoding response JSON: %w", err)
	}
	return nil
}

// stripFences removes a surrounding Markdown code fence, with or without a
// language tag.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

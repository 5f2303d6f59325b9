// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package faults defines the error taxonomy shared by the search client,
// planner, and orchestrator. Only validation faults abort a run; every
// other kind is absorbed at the smallest scope and recorded.
package faults

import (
	"errors"
	"fmt"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// ValidationError reports invalid run input. It is the only fault that
// surfaces as a run-level failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SchemaError reports a response that does not match the expected external
// schema. Non-retryable: the remote contract changed.
type SchemaError struct {
	Provider string
	Reason   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s response schema mismatch: %s", e.Provider, e.Reason)
}

// TransientError reports a failure worth retrying: HTTP 5xx, 429, or a
// network error. Status is zero for network-level failures.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transient failure (HTTP %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// AuthError reports rejected credentials. Non-retryable.
type AuthError struct {
	Provider string
	Status   int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected credentials (HTTP %d)", e.Provider, e.Status)
}

// LLMError reports a failed planning or summarizing call. The caller always
// degrades to a deterministic fallback; an LLMError is never fatal.
type LLMError struct {
	Phase string
	Err   error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm %s failed: %v", e.Phase, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// Retryable reports whether err should consume retry budget. Only
// transient faults qualify.
func Retryable(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Kind maps err onto the metrics taxonomy. Unclassified errors count as
// transient so degraded runs never under-report.
func Kind(err error) types.ErrorKind {
	var (
		ve *ValidationError
		se *SchemaError
		ae *AuthError
		le *LLMError
	)
	switch {
	case errors.As(err, &ve):
		return types.ErrKindValidation
	case errors.As(err, &se):
		return types.ErrKindSchema
	case errors.As(err, &ae):
		return types.ErrKindAuth
	case errors.As(err, &le):
		return types.ErrKindLLM
	default:
		return types.ErrKindTransient
	}
}

// Package genmodel is the pluggable generative-model adapter boundary.
// The Worker treats providers as black boxes; the only observable contract
// is GenerationResult plus the per-call timeout carried on the context.
package genmodel

import (
	"context"

	"github.com/kestrelhq/pagegen/internal/validator"
)

type Message struct {
	Role    string
	Content string
}

// GenerationResult is the record every Provider must produce, per the
// model-adapter contract: success, the raw template (only meaningful when
// parseable), the raw response text for audit, an error summary, whether
// the failure is retryable, and an optional pre-computed validation result
// when the provider itself can cheaply validate its own output.
type GenerationResult struct {
	Success     bool
	Template    *validator.Template
	RawResponse string
	Err         string
	Retryable   bool
	Validation  *validator.ValidationResult
}

// Provider generates a template package from a prompt. Implementations are
// plain HTTP adapters, matching the teacher's ai.Provider shape, generalized
// from a bare chat reply to a structured GenerationResult.
type Provider interface {
	Generate(ctx context.Context, messages []Message) (GenerationResult, error)
}

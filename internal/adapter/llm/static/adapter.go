// Package static provides a canned adapter for local testing without any
// provider credentials or network access.
package static

import (
	"context"
	"time"

	"github.com/bkyoung/review-quorum/internal/domain"
	"github.com/bkyoung/review-quorum/internal/usecase/normalize"
)

const defaultTimeout = 1 * time.Second

// Adapter returns a fixed review for every code unit.
type Adapter struct {
	id string
}

// NewAdapter constructs a static adapter with the given identifier.
func NewAdapter(id string) *Adapter {
	return &Adapter{id: id}
}

// ID returns the provider identifier findings are attributed to.
func (a *Adapter) ID() string { return a.id }

// Timeout returns the per-invocation deadline.
func (a *Adapter) Timeout() time.Duration { return defaultTimeout }

// Invoke returns a pre-determined review.
func (a *Adapter) Invoke(ctx context.Context, unit domain.CodeUnit) (normalize.RawOutput, error) {
	line := 1
	confidence := 1.0

	return normalize.RawOutput{
		Model:   "static",
		Summary: "This is a static review from a mock provider.",
		Findings: []normalize.RawFinding{
			{
				Severity:   "low",
				Category:   "style",
				Message:    "This is a static finding for " + unit.Path + ".",
				LineNumber: &line,
				Suggestion: "No suggestion.",
				Confidence: &confidence,
			},
		},
		TokensUsed:    0,
		EstimatedCost: 0,
	}, nil
}

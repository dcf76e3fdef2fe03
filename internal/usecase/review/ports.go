// Package review implements the multi-provider consensus review engine: it
// fans one code unit out to every enabled provider adapter, normalizes and
// aggregates their findings, and assembles the final result.
package review

import (
	"context"
	"time"

	"github.com/bkyoung/review-quorum/internal/domain"
	"github.com/bkyoung/review-quorum/internal/usecase/normalize"
)

// Adapter is the uniform capability every AI backend exposes to the engine.
// The engine never branches on the concrete adapter type.
type Adapter interface {
	// ID returns the stable provider identifier used to key results.
	ID() string

	// Timeout returns the per-invocation deadline for this adapter.
	Timeout() time.Duration

	// Invoke sends the code unit to the backend and returns its raw review
	// output. It may return any error; the engine converts failures to data.
	Invoke(ctx context.Context, unit domain.CodeUnit) (normalize.RawOutput, error)
}

// Logger is the outbound port for structured engine logging.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// Store is the outbound port for cross-call persistence of review results.
// The engine itself holds no state between calls; accumulating usage over
// time is the store's concern.
type Store interface {
	SaveResult(ctx context.Context, result domain.MultiProviderReviewResult) error
	Close() error
}

// Package usage rolls token, cost, and timing figures across provider
// outcomes into a single UsageMeta.
package usage

import (
	"strings"
	"time"

	"github.com/bkyoung/review-quorum/internal/domain"
)

// maxErrorLength caps stored provider error messages. Longer messages are
// truncated so raw provider responses never leak wholesale into results.
const maxErrorLength = 200

// Accumulate sums usage across all outcomes. Errored providers contribute
// zero cost and zero tokens; TotalDuration is the maximum per-provider
// duration, since parallel calls are bounded by the slowest provider rather
// than the sum.
func Accumulate(outcomes []domain.ProviderOutcome) domain.UsageMeta {
	meta := domain.UsageMeta{
		ResponseTimeByProvider: make(map[string]time.Duration, len(outcomes)),
		CostByProvider:         make(map[string]float64, len(outcomes)),
		TokensByProvider:       make(map[string]int, len(outcomes)),
		ErrorsByProvider:       make(map[string]string),
	}

	for _, o := range outcomes {
		meta.ResponseTimeByProvider[o.ProviderID] = o.Duration
		if o.Duration > meta.TotalDuration {
			meta.TotalDuration = o.Duration
		}

		if o.Failed() {
			meta.CostByProvider[o.ProviderID] = 0
			meta.TokensByProvider[o.ProviderID] = 0
			meta.ErrorsByProvider[o.ProviderID] = SanitizeError(o.Err)
			continue
		}

		meta.CostByProvider[o.ProviderID] = o.EstimatedCost
		meta.TokensByProvider[o.ProviderID] = o.TokensUsed
		meta.TotalEstimatedCost += o.EstimatedCost
	}

	return meta
}

// SanitizeError renders an outcome error as a single-line, length-capped
// message prefixed with its kind, safe for logs and persisted results.
func SanitizeError(err *domain.OutcomeError) string {
	if err == nil {
		return ""
	}

	message := strings.Join(strings.Fields(err.Message), " ")
	if len(message) > maxErrorLength {
		message = message[:maxErrorLength] + "..."
	}
	if message == "" {
		return string(err.Kind)
	}
	return string(err.Kind) + ": " + message
}

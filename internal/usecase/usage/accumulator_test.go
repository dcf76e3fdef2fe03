package usage_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bkyoung/review-quorum/internal/domain"
	"github.com/bkyoung/review-quorum/internal/usecase/usage"
)

func TestAccumulateSumsCostAndTokens(t *testing.T) {
	outcomes := []domain.ProviderOutcome{
		{ProviderID: "p1", Duration: 200 * time.Millisecond, TokensUsed: 1000, EstimatedCost: 0.01},
		{ProviderID: "p2", Duration: 900 * time.Millisecond, TokensUsed: 2500, EstimatedCost: 0.04},
	}

	meta := usage.Accumulate(outcomes)

	assert.InDelta(t, 0.05, meta.TotalEstimatedCost, 1e-9)
	assert.Equal(t, 1000, meta.TokensByProvider["p1"])
	assert.Equal(t, 2500, meta.TokensByProvider["p2"])
	assert.InDelta(t, 0.01, meta.CostByProvider["p1"], 1e-9)
	assert.InDelta(t, 0.04, meta.CostByProvider["p2"], 1e-9)
	assert.Empty(t, meta.ErrorsByProvider)
}

func TestAccumulateTotalDurationIsMax(t *testing.T) {
	// Parallel fan-out: wall-clock time is bounded by the slowest provider.
	outcomes := []domain.ProviderOutcome{
		{ProviderID: "p1", Duration: 300 * time.Millisecond},
		{ProviderID: "p2", Duration: 1200 * time.Millisecond},
		{ProviderID: "p3", Duration: 700 * time.Millisecond},
	}

	meta := usage.Accumulate(outcomes)

	assert.Equal(t, 1200*time.Millisecond, meta.TotalDuration)
	assert.Equal(t, 300*time.Millisecond, meta.ResponseTimeByProvider["p1"])
	assert.Equal(t, 700*time.Millisecond, meta.ResponseTimeByProvider["p3"])
}

func TestAccumulateErroredProvidersContributeZero(t *testing.T) {
	outcomes := []domain.ProviderOutcome{
		{ProviderID: "p1", TokensUsed: 500, EstimatedCost: 0.02},
		{
			ProviderID: "p2",
			Duration:   5 * time.Second,
			Err:        &domain.OutcomeError{Kind: domain.OutcomeErrorTimeout, Message: "context deadline exceeded"},
		},
	}

	meta := usage.Accumulate(outcomes)

	assert.InDelta(t, 0.02, meta.TotalEstimatedCost, 1e-9)
	assert.Equal(t, 0, meta.TokensByProvider["p2"])
	assert.Equal(t, 0.0, meta.CostByProvider["p2"])
	assert.Equal(t, "timeout: context deadline exceeded", meta.ErrorsByProvider["p2"])
	// The failed provider's duration still bounds wall-clock time.
	assert.Equal(t, 5*time.Second, meta.TotalDuration)
}

func TestAccumulateEmpty(t *testing.T) {
	meta := usage.Accumulate(nil)

	assert.Equal(t, 0.0, meta.TotalEstimatedCost)
	assert.Equal(t, time.Duration(0), meta.TotalDuration)
	assert.Empty(t, meta.ErrorsByProvider)
}

func TestSanitizeErrorTruncatesAndFlattens(t *testing.T) {
	long := strings.Repeat("boom ", 100)
	err := &domain.OutcomeError{Kind: domain.OutcomeErrorInvocation, Message: "line one\nline\ttwo " + long}

	got := usage.SanitizeError(err)

	assert.True(t, strings.HasPrefix(got, "invocation: line one line two"), got)
	assert.NotContains(t, got, "\n")
	assert.LessOrEqual(t, len(got), len("invocation: ")+200+len("..."))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSanitizeErrorEmpty(t *testing.T) {
	assert.Equal(t, "", usage.SanitizeError(nil))
	assert.Equal(t, "timeout", usage.SanitizeError(&domain.OutcomeError{Kind: domain.OutcomeErrorTimeout}))
}

package http_test

import (
	"errors"
	"fmt"
	"testing"

	llmhttp "github.com/bkyoung/review-quorum/internal/adapter/llm/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType llmhttp.ErrorType
		want    string
	}{
		{llmhttp.ErrTypeAuthentication, "authentication error"},
		{llmhttp.ErrTypeRateLimit, "rate limit exceeded"},
		{llmhttp.ErrTypeServiceUnavailable, "service unavailable"},
		{llmhttp.ErrTypeInvalidRequest, "invalid request"},
		{llmhttp.ErrTypeTimeout, "timeout"},
		{llmhttp.ErrTypeModelNotFound, "model not found"},
		{llmhttp.ErrTypeContentFiltered, "content filtered"},
		{llmhttp.ErrTypeUnknown, "unknown error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.errType.String())
	}
}

func TestErrorMessage(t *testing.T) {
	err := llmhttp.NewRateLimitError("openai", "too many requests")

	msg := err.Error()
	assert.Contains(t, msg, "openai")
	assert.Contains(t, msg, "rate limit exceeded")
	assert.Contains(t, msg, "too many requests")
	assert.Contains(t, msg, "429")
}

func TestErrorIs_MatchesByType(t *testing.T) {
	err := llmhttp.NewTimeoutError("anthropic", "deadline passed")
	target := llmhttp.NewTimeoutError("gemini", "different provider, same type")

	assert.True(t, errors.Is(err, target))
	assert.False(t, errors.Is(err, llmhttp.NewRateLimitError("anthropic", "x")))
}

func TestErrorAs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("invoking provider: %w", llmhttp.NewAuthenticationError("openai", "bad key"))

	var httpErr *llmhttp.Error
	require.ErrorAs(t, wrapped, &httpErr)
	assert.Equal(t, llmhttp.ErrTypeAuthentication, httpErr.Type)
	assert.False(t, httpErr.IsRetryable())
}

func TestErrorTimeoutMethod(t *testing.T) {
	// The review engine classifies provider failures by probing for a
	// Timeout() bool method, so only timeout errors may report true.
	assert.True(t, llmhttp.NewTimeoutError("ollama", "slow model").Timeout())
	assert.False(t, llmhttp.NewRateLimitError("openai", "throttled").Timeout())
	assert.False(t, llmhttp.NewServiceUnavailableError("gemini", "down").Timeout())
}

func TestRetryableFlags(t *testing.T) {
	assert.True(t, llmhttp.NewRateLimitError("p", "m").IsRetryable())
	assert.True(t, llmhttp.NewServiceUnavailableError("p", "m").IsRetryable())
	assert.True(t, llmhttp.NewTimeoutError("p", "m").IsRetryable())
	assert.False(t, llmhttp.NewAuthenticationError("p", "m").IsRetryable())
	assert.False(t, llmhttp.NewInvalidRequestError("p", "m").IsRetryable())
	assert.False(t, llmhttp.NewModelNotFoundError("p", "m").IsRetryable())
	assert.False(t, llmhttp.NewContentFilteredError("p", "m").IsRetryable())
}

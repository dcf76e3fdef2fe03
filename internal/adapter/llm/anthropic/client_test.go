package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bkyoung/review-quorum/internal/adapter/llm/anthropic"
	llmhttp "github.com/bkyoung/review-quorum/internal/adapter/llm/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noRetry() llmhttp.RetryConfig {
	return llmhttp.RetryConfig{
		MaxRetries:     0,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     1 * time.Millisecond,
		Multiplier:     1.0,
	}
}

func TestCall_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropic.MessagesRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "claude-sonnet-4-5-20250929", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "test prompt", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropic.MessagesResponse{
			ID:   "msg_123",
			Type: "message",
			Role: "assistant",
			Content: []anthropic.ContentBlock{
				{Type: "text", Text: "test response"},
			},
			Model:      "claude-sonnet-4-5-20250929",
			StopReason: "end_turn",
			Usage: anthropic.Usage{
				InputTokens:  10,
				OutputTokens: 20,
			},
		})
	}))
	defer server.Close()

	client := anthropic.NewClient("test-api-key", "claude-sonnet-4-5-20250929")
	client.SetBaseURL(server.URL)

	resp, err := client.Call(context.Background(), "test prompt")

	require.NoError(t, err)
	assert.Equal(t, "test response", resp.Text)
	assert.Equal(t, 10, resp.TokensIn)
	assert.Equal(t, 20, resp.TokensOut)
	assert.Equal(t, "claude-sonnet-4-5-20250929", resp.Model)
}

func TestCall_JoinsMultipleTextBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropic.MessagesResponse{
			Content: []anthropic.ContentBlock{
				{Type: "text", Text: "part one "},
				{Type: "text", Text: "part two"},
			},
			Model: "claude-sonnet-4-5-20250929",
		})
	}))
	defer server.Close()

	client := anthropic.NewClient("k", "claude-sonnet-4-5-20250929")
	client.SetBaseURL(server.URL)

	resp, err := client.Call(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", resp.Text)
}

func TestCall_AuthenticationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(anthropic.ErrorResponse{
			Type: "error",
			Error: anthropic.ErrorDetail{
				Type:    "authentication_error",
				Message: "invalid x-api-key",
			},
		})
	}))
	defer server.Close()

	client := anthropic.NewClient("bad-key", "claude-sonnet-4-5-20250929")
	client.SetBaseURL(server.URL)
	client.SetRetryConfig(noRetry())

	_, err := client.Call(context.Background(), "prompt")

	var httpErr *llmhttp.Error
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, llmhttp.ErrTypeAuthentication, httpErr.Type)
	assert.Contains(t, httpErr.Message, "invalid x-api-key")
	assert.False(t, httpErr.IsRetryable())
}

func TestCall_OverloadedIsRetryable(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(529)
			return
		}
		json.NewEncoder(w).Encode(anthropic.MessagesResponse{
			Content: []anthropic.ContentBlock{{Type: "text", Text: "ok"}},
			Model:   "claude-sonnet-4-5-20250929",
		})
	}))
	defer server.Close()

	client := anthropic.NewClient("k", "claude-sonnet-4-5-20250929")
	client.SetBaseURL(server.URL)
	client.SetRetryConfig(llmhttp.RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	})

	resp, err := client.Call(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 2, attempts)
}

func TestCall_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropic.MessagesResponse{
			Content: []anthropic.ContentBlock{},
		})
	}))
	defer server.Close()

	client := anthropic.NewClient("k", "claude-sonnet-4-5-20250929")
	client.SetBaseURL(server.URL)

	_, err := client.Call(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content")
}

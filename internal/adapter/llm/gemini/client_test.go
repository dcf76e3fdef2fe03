package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bkyoung/review-quorum/internal/adapter/llm/gemini"
	llmhttp "github.com/bkyoung/review-quorum/internal/adapter/llm/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.5-flash:generateContent"))
		assert.Equal(t, "test-api-key", r.URL.Query().Get("key"))

		var req gemini.GenerateContentRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "user", req.Contents[0].Role)
		require.NotNil(t, req.SystemInstruction)

		json.NewEncoder(w).Encode(gemini.GenerateContentResponse{
			Candidates: []gemini.Candidate{
				{
					Content:      gemini.Content{Parts: []gemini.Part{{Text: "test response"}}, Role: "model"},
					FinishReason: "STOP",
				},
			},
			UsageMetadata: gemini.UsageMetadata{
				PromptTokenCount:     12,
				CandidatesTokenCount: 34,
				TotalTokenCount:      46,
			},
			ModelVersion: "gemini-2.5-flash",
		})
	}))
	defer server.Close()

	client := gemini.NewClient("test-api-key", "gemini-2.5-flash")
	client.SetBaseURL(server.URL)

	resp, err := client.Call(context.Background(), "test prompt")

	require.NoError(t, err)
	assert.Equal(t, "test response", resp.Text)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 34, resp.TokensOut)
	assert.Equal(t, "gemini-2.5-flash", resp.Model)
}

func TestCall_NoCandidatesIsContentFiltered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gemini.GenerateContentResponse{})
	}))
	defer server.Close()

	client := gemini.NewClient("k", "gemini-2.5-flash")
	client.SetBaseURL(server.URL)

	_, err := client.Call(context.Background(), "prompt")

	var httpErr *llmhttp.Error
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, llmhttp.ErrTypeContentFiltered, httpErr.Type)
}

func TestCall_ErrorMessageHasNoAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(gemini.ErrorResponse{
			Error: gemini.ErrorDetail{
				Code:    400,
				Message: "invalid request to https://generativelanguage.googleapis.com/v1beta?key=super-secret",
				Status:  "INVALID_ARGUMENT",
			},
		})
	}))
	defer server.Close()

	client := gemini.NewClient("super-secret", "gemini-2.5-flash")
	client.SetBaseURL(server.URL)
	client.SetRetryConfig(llmhttp.RetryConfig{
		MaxRetries:     0,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     1 * time.Millisecond,
		Multiplier:     1.0,
	})

	_, err := client.Call(context.Background(), "prompt")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret")
	assert.Contains(t, err.Error(), "key=[REDACTED]")
}

func TestCall_ServiceUnavailableRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(gemini.GenerateContentResponse{
			Candidates: []gemini.Candidate{
				{Content: gemini.Content{Parts: []gemini.Part{{Text: "ok"}}}},
			},
		})
	}))
	defer server.Close()

	client := gemini.NewClient("k", "gemini-2.5-flash")
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

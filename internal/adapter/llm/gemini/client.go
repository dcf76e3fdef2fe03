// Package gemini implements the Google Gemini generateContent client.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bkyoung/review-quorum/internal/adapter/llm"
	llmhttp "github.com/bkyoung/review-quorum/internal/adapter/llm/http"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 60 * time.Second
)

// Client is an HTTP client for the Gemini API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	retry   llmhttp.RetryConfig
	client  *http.Client
}

// NewClient creates a Gemini client for the given key and model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		retry:   llmhttp.DefaultRetryConfig(),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// SetRetryConfig overrides the retry behaviour.
func (c *Client) SetRetryConfig(cfg llmhttp.RetryConfig) {
	c.retry = cfg
}

// Call sends the prompt to the generateContent API and returns the raw result.
func (c *Client) Call(ctx context.Context, prompt string) (*llm.CallResult, error) {
	reqBody := GenerateContentRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: prompt}}},
		},
		SystemInstruction: &Content{
			Parts: []Part{{Text: "You are a code review assistant. Analyze the code and provide feedback in JSON format."}},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Gemini authenticates through the key query parameter. Any error text
	// containing this URL must pass through RedactURLSecrets before leaving
	// the client.
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	var resp *http.Response
	err = llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if reqErr != nil {
			return &llmhttp.Error{
				Type:      llmhttp.ErrTypeUnknown,
				Message:   llmhttp.RedactURLSecrets(reqErr.Error()),
				Retryable: false,
				Provider:  providerName,
			}
		}

		req.Header.Set("Content-Type", "application/json")

		var callErr error
		resp, callErr = c.client.Do(req)
		if callErr != nil {
			return llmhttp.NewTimeoutError(providerName, llmhttp.RedactURLSecrets(callErr.Error()))
		}

		if resp.StatusCode >= 400 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return handleErrorResponse(resp.StatusCode, bodyBytes)
		}

		return nil
	}, c.retry)

	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var genResp GenerateContentResponse
	if err := json.Unmarshal(bodyBytes, &genResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(genResp.Candidates) == 0 {
		return nil, llmhttp.NewContentFilteredError(providerName, "no candidates in response")
	}

	var textParts []string
	for _, part := range genResp.Candidates[0].Content.Parts {
		textParts = append(textParts, part.Text)
	}

	model := genResp.ModelVersion
	if model == "" {
		model = c.model
	}

	return &llm.CallResult{
		Text:      strings.Join(textParts, ""),
		Model:     model,
		TokensIn:  genResp.UsageMetadata.PromptTokenCount,
		TokensOut: genResp.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// handleErrorResponse maps HTTP status codes to typed errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var errResp ErrorResponse
	message := fmt.Sprintf("HTTP %d", statusCode)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = llmhttp.RedactURLSecrets(errResp.Error.Message)
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return llmhttp.NewAuthenticationError(providerName, message)
	case http.StatusTooManyRequests:
		return llmhttp.NewRateLimitError(providerName, message)
	case http.StatusBadRequest:
		return llmhttp.NewInvalidRequestError(providerName, message)
	case http.StatusNotFound:
		return llmhttp.NewModelNotFoundError(providerName, message)
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		return llmhttp.NewServiceUnavailableError(providerName, message)
	default:
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeUnknown,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Provider:   providerName,
		}
	}
}

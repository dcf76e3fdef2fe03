// Package anthropic implements the Anthropic Messages API client.
package anthropic

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
	providerName            = "anthropic"
	defaultBaseURL          = "https://api.anthropic.com"
	defaultTimeout          = 60 * time.Second
	defaultMaxTokens        = 8192
	defaultAnthropicVersion = "2023-06-01"
)

// Client is an HTTP client for the Anthropic Messages API.
type Client struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	retry     llmhttp.RetryConfig
	client    *http.Client
}

// NewClient creates an Anthropic client for the given key and model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		baseURL:   defaultBaseURL,
		maxTokens: defaultMaxTokens,
		retry:     llmhttp.DefaultRetryConfig(),
		client:    &http.Client{Timeout: defaultTimeout},
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

// Call sends the prompt to the Messages API and returns the raw result.
func (c *Client) Call(ctx context.Context, prompt string) (*llm.CallResult, error) {
	reqBody := MessagesRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
		System:    "You are a code review assistant. Analyze the code and provide feedback in JSON format.",
		MaxTokens: c.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/v1/messages"

	var resp *http.Response
	err = llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if reqErr != nil {
			return &llmhttp.Error{
				Type:      llmhttp.ErrTypeUnknown,
				Message:   reqErr.Error(),
				Retryable: false,
				Provider:  providerName,
			}
		}

		// Anthropic uses x-api-key instead of Authorization
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", defaultAnthropicVersion)

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

	var messagesResp MessagesResponse
	if err := json.Unmarshal(bodyBytes, &messagesResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(messagesResp.Content) == 0 {
		return nil, fmt.Errorf("no content in response")
	}

	var textParts []string
	for _, block := range messagesResp.Content {
		if block.Type == "text" {
			textParts = append(textParts, block.Text)
		}
	}

	return &llm.CallResult{
		Text:      strings.Join(textParts, ""),
		Model:     messagesResp.Model,
		TokensIn:  messagesResp.Usage.InputTokens,
		TokensOut: messagesResp.Usage.OutputTokens,
	}, nil
}

// handleErrorResponse maps HTTP status codes to typed errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var errResp ErrorResponse
	message := fmt.Sprintf("HTTP %d", statusCode)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
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
	case 529: // Anthropic-specific: overloaded
		return llmhttp.NewServiceUnavailableError(providerName, message)
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

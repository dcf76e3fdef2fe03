// Package ollama implements the client for locally hosted Ollama models.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bkyoung/review-quorum/internal/adapter/llm"
	llmhttp "github.com/bkyoung/review-quorum/internal/adapter/llm/http"
)

const (
	providerName   = "ollama"
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 120 * time.Second // Local models can be slower
)

// Client is an HTTP client for the Ollama Generate API.
type Client struct {
	baseURL string
	model   string
	retry   llmhttp.RetryConfig
	client  *http.Client
}

// NewClient creates an Ollama client for the given server and model.
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		retry:   llmhttp.DefaultRetryConfig(),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// SetRetryConfig overrides the retry behaviour.
func (c *Client) SetRetryConfig(cfg llmhttp.RetryConfig) {
	c.retry = cfg
}

// Call sends the prompt to the Generate API and returns the raw result.
func (c *Client) Call(ctx context.Context, prompt string) (*llm.CallResult, error) {
	reqBody := GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/api/generate"

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

		req.Header.Set("Content-Type", "application/json")

		var callErr error
		resp, callErr = c.client.Do(req)
		if callErr != nil {
			return llmhttp.NewTimeoutError(providerName, callErr.Error())
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

	var genResp GenerateResponse
	if err := json.Unmarshal(bodyBytes, &genResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &llm.CallResult{
		Text:      genResp.Response,
		Model:     genResp.Model,
		TokensIn:  genResp.PromptEvalCount,
		TokensOut: genResp.EvalCount,
	}, nil
}

// handleErrorResponse maps HTTP status codes to typed errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var errResp ErrorResponse
	message := fmt.Sprintf("HTTP %d", statusCode)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		message = errResp.Error
	}

	switch statusCode {
	case http.StatusNotFound:
		// Ollama returns 404 for models that are not pulled locally
		return llmhttp.NewModelNotFoundError(providerName, message)
	case http.StatusBadRequest:
		return llmhttp.NewInvalidRequestError(providerName, message)
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

package llm

import (
	"context"
	"errors"
	"time"

	llmhttp "github.com/bkyoung/review-quorum/internal/adapter/llm/http"
	"github.com/bkyoung/review-quorum/internal/domain"
	"github.com/bkyoung/review-quorum/internal/usecase/normalize"
)

// CallResult is the raw outcome of one provider API call.
type CallResult struct {
	Text      string
	Model     string
	TokensIn  int
	TokensOut int
}

// Caller is implemented by each provider's HTTP client.
type Caller interface {
	Call(ctx context.Context, prompt string) (*CallResult, error)
}

// Adapter wraps a provider client with prompting, response parsing, usage
// accounting and observability. It satisfies the review engine's adapter
// port for every HTTP-backed provider.
type Adapter struct {
	id       string
	provider string
	model    string
	timeout  time.Duration
	caller   Caller
	prompts  *PromptBuilder
	pricing  llmhttp.Pricing
	logger   llmhttp.Logger
	metrics  llmhttp.Metrics
}

// AdapterOption customises an Adapter.
type AdapterOption func(*Adapter)

// WithLogger attaches a request/response logger.
func WithLogger(logger llmhttp.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = logger }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(metrics llmhttp.Metrics) AdapterOption {
	return func(a *Adapter) { a.metrics = metrics }
}

// WithPricing overrides the cost table.
func WithPricing(pricing llmhttp.Pricing) AdapterOption {
	return func(a *Adapter) { a.pricing = pricing }
}

// NewAdapter builds an adapter for one configured provider. The id is the
// key findings are attributed to and must be unique across the review.
func NewAdapter(id, provider, model string, timeout time.Duration, caller Caller, prompts *PromptBuilder, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		id:       id,
		provider: provider,
		model:    model,
		timeout:  timeout,
		caller:   caller,
		prompts:  prompts,
		pricing:  llmhttp.NewDefaultPricing(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the provider identifier findings are attributed to.
func (a *Adapter) ID() string { return a.id }

// Timeout returns the per-invocation deadline for this provider.
func (a *Adapter) Timeout() time.Duration { return a.timeout }

// Invoke reviews one code unit through the underlying provider.
func (a *Adapter) Invoke(ctx context.Context, unit domain.CodeUnit) (normalize.RawOutput, error) {
	prompt, err := a.prompts.Build(a.provider, unit)
	if err != nil {
		return normalize.RawOutput{}, err
	}

	if a.logger != nil {
		a.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:    a.provider,
			Model:       a.model,
			Timestamp:   time.Now(),
			PromptChars: len(prompt),
		})
	}
	if a.metrics != nil {
		a.metrics.RecordRequest(a.provider, a.model)
	}

	start := time.Now()
	result, err := a.caller.Call(ctx, prompt)
	elapsed := time.Since(start)

	if err != nil {
		a.recordError(ctx, err, elapsed)
		return normalize.RawOutput{}, err
	}

	tokensIn := result.TokensIn
	if tokensIn == 0 {
		tokensIn = EstimateTokens(prompt)
	}
	tokensOut := result.TokensOut
	if tokensOut == 0 {
		tokensOut = EstimateTokens(result.Text)
	}

	model := result.Model
	if model == "" {
		model = a.model
	}
	cost := a.pricing.GetCost(a.provider, model, tokensIn, tokensOut)

	if a.metrics != nil {
		a.metrics.RecordDuration(a.provider, a.model, elapsed)
		a.metrics.RecordTokens(a.provider, a.model, tokensIn, tokensOut)
		a.metrics.RecordCost(a.provider, a.model, cost)
	}
	if a.logger != nil {
		a.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:  a.provider,
			Model:     model,
			Timestamp: time.Now(),
			Duration:  elapsed,
			TokensIn:  tokensIn,
			TokensOut: tokensOut,
			Cost:      cost,
		})
	}

	summary, findings, parseErr := llmhttp.ParseReviewResponse(result.Text)
	if parseErr != nil {
		// Models occasionally answer in prose. Keep the review alive by
		// treating the whole response as a summary with no findings.
		summary = llmhttp.TruncateForLogging(result.Text)
		findings = nil
	}

	return normalize.RawOutput{
		Model:         model,
		Summary:       summary,
		Findings:      findings,
		TokensUsed:    tokensIn + tokensOut,
		EstimatedCost: cost,
	}, nil
}

func (a *Adapter) recordError(ctx context.Context, err error, elapsed time.Duration) {
	errType := llmhttp.ErrTypeUnknown
	statusCode := 0
	retryable := false
	var httpErr *llmhttp.Error
	if errors.As(err, &httpErr) {
		errType = httpErr.Type
		statusCode = httpErr.StatusCode
		retryable = httpErr.Retryable
	}

	if a.metrics != nil {
		a.metrics.RecordError(a.provider, a.model, errType)
	}
	if a.logger != nil {
		a.logger.LogError(ctx, llmhttp.ErrorLog{
			Provider:   a.provider,
			Model:      a.model,
			Timestamp:  time.Now(),
			Duration:   elapsed,
			Error:      err,
			ErrorType:  errType,
			StatusCode: statusCode,
			Retryable:  retryable,
		})
	}
}

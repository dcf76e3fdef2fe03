package review

import (
	"context"

	"github.com/bkyoung/review-quorum/internal/domain"
	"github.com/bkyoung/review-quorum/internal/usecase/consensus"
	"github.com/bkyoung/review-quorum/internal/usecase/normalize"
	"github.com/bkyoung/review-quorum/internal/usecase/usage"
)

// EngineDeps captures the engine's collaborators.
type EngineDeps struct {
	Dispatcher *Dispatcher
	Normalizer *normalize.Normalizer
	Aggregator *consensus.Aggregator
	Logger     Logger // Optional: structured logging for warnings and info
	Store      Store  // Optional: cross-call result persistence
}

// Engine runs one multi-provider consensus review per call. It holds no
// state between calls.
type Engine struct {
	deps EngineDeps
}

// NewEngine wires the engine, auto-creating the dispatcher, normalizer, and
// a default-parameter aggregator when not supplied.
func NewEngine(deps EngineDeps) *Engine {
	if deps.Dispatcher == nil {
		deps.Dispatcher = NewDispatcher()
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalize.NewNormalizer()
	}
	if deps.Aggregator == nil {
		deps.Aggregator = consensus.NewAggregator(consensus.DefaultSimilarityParams())
	}
	return &Engine{deps: deps}
}

// ReviewCodeUnit dispatches the code unit to every adapter, normalizes and
// aggregates the findings, and assembles the final result.
//
// Only a ConfigurationError fails the call. Provider failures surface as
// data in Meta.ErrorsByProvider: the call succeeds even if every adapter
// failed, and callers distinguish "no issues found" from "all providers
// failed" via that map, not via the absence of findings.
func (e *Engine) ReviewCodeUnit(ctx context.Context, unit domain.CodeUnit, adapters []Adapter) (domain.MultiProviderReviewResult, error) {
	dispatched, err := e.deps.Dispatcher.Dispatch(ctx, unit, adapters)
	if err != nil {
		return domain.MultiProviderReviewResult{}, err
	}

	outcomes := make([]domain.ProviderOutcome, 0, len(dispatched))
	results := make(map[string][]domain.Finding, len(dispatched))

	for _, do := range dispatched {
		outcome := domain.ProviderOutcome{
			ProviderID: do.ProviderID,
			Duration:   do.Duration,
		}

		if do.Err != nil {
			outcome.Err = do.Err
			results[do.ProviderID] = []domain.Finding{}
			outcomes = append(outcomes, outcome)
			e.logWarning(ctx, "provider failed", map[string]interface{}{
				"provider": do.ProviderID,
				"kind":     string(do.Err.Kind),
				"error":    usage.SanitizeError(do.Err),
			})
			continue
		}

		findings, warnings := e.deps.Normalizer.Normalize(do.ProviderID, do.Raw)
		for _, w := range warnings {
			e.logWarning(ctx, "normalization fallback applied", map[string]interface{}{
				"provider": w.ProviderID,
				"field":    w.Field,
				"value":    w.Value,
				"reason":   w.Reason,
			})
		}

		outcome.Findings = findings
		outcome.TokensUsed = do.Raw.TokensUsed
		outcome.EstimatedCost = do.Raw.EstimatedCost
		results[do.ProviderID] = findings
		outcomes = append(outcomes, outcome)
	}

	result := domain.MultiProviderReviewResult{
		CodeContext: unit,
		Results:     results,
		Aggregation: e.deps.Aggregator.Aggregate(outcomes),
		Meta:        usage.Accumulate(outcomes),
	}

	e.logInfo(ctx, "review completed", map[string]interface{}{
		"path":           unit.Path,
		"providers":      len(adapters),
		"totalFindings":  result.Aggregation.TotalFindings,
		"consensus":      len(result.Aggregation.ConsensusFindings),
		"agreementScore": result.Aggregation.AgreementScore,
		"totalCost":      result.Meta.TotalEstimatedCost,
	})

	// Persistence is best-effort: a store failure never fails the review.
	if e.deps.Store != nil {
		if err := e.deps.Store.SaveResult(ctx, result); err != nil {
			e.logWarning(ctx, "failed to persist review result", map[string]interface{}{
				"path":  unit.Path,
				"error": err.Error(),
			})
		}
	}

	return result, nil
}

func (e *Engine) logInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if e.deps.Logger != nil {
		e.deps.Logger.LogInfo(ctx, message, fields)
	}
}

func (e *Engine) logWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if e.deps.Logger != nil {
		e.deps.Logger.LogWarning(ctx, message, fields)
	}
}

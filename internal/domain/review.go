package domain

import "time"

// CodeUnit is the immutable input to one review: a single piece of code with
// enough context for a provider to reason about it.
type CodeUnit struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// OutcomeErrorKind distinguishes why a provider call failed.
type OutcomeErrorKind string

const (
	// OutcomeErrorTimeout marks a call that exceeded its adapter timeout.
	OutcomeErrorTimeout OutcomeErrorKind = "timeout"
	// OutcomeErrorInvocation marks any other adapter failure (auth, network,
	// malformed response, panic).
	OutcomeErrorInvocation OutcomeErrorKind = "invocation"
)

// OutcomeError records a provider failure as data. It is never fatal to the
// overall review.
type OutcomeError struct {
	Kind    OutcomeErrorKind `json:"kind"`
	Message string           `json:"message"`
}

func (e *OutcomeError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// ProviderOutcome is the result of one adapter invocation. Findings and Err
// are mutually exclusive: a failed call contributes zero findings.
type ProviderOutcome struct {
	ProviderID    string
	Findings      []Finding
	Duration      time.Duration
	TokensUsed    int
	EstimatedCost float64
	Err           *OutcomeError
}

// Failed reports whether the outcome represents a provider failure.
func (o ProviderOutcome) Failed() bool {
	return o.Err != nil
}

// ConsensusGroup is one issue independently reported by two or more
// providers, merged into a single representative finding.
type ConsensusGroup struct {
	Representative      Finding  `json:"representative"`
	SupportingProviders []string `json:"supportingProviders"`
	Size                int      `json:"size"`
}

// AggregationResult is the cross-provider view of all normalized findings.
// It is derived fresh per call and never mutated after construction.
type AggregationResult struct {
	TotalFindings      int                  `json:"totalFindings"`
	FindingsBySeverity map[Severity]int     `json:"findingsBySeverity"`
	FindingsByCategory map[Category]int     `json:"findingsByCategory"`
	ConsensusFindings  []ConsensusGroup     `json:"consensusFindings"`
	UniqueFindings     map[string][]Finding `json:"uniqueFindings"`
	AgreementScore     float64              `json:"agreementScore"`
}

// UsageMeta rolls up token, cost, and timing telemetry across providers.
// Provider failures stay visible here without failing the review.
type UsageMeta struct {
	TotalEstimatedCost     float64                  `json:"totalEstimatedCost"`
	TotalDuration          time.Duration            `json:"totalDurationMs"`
	ResponseTimeByProvider map[string]time.Duration `json:"perProviderResponseTimeMs"`
	CostByProvider         map[string]float64       `json:"perProviderCost"`
	TokensByProvider       map[string]int           `json:"perProviderTokens"`
	ErrorsByProvider       map[string]string        `json:"perProviderErrors"`
}

// MultiProviderReviewResult is the terminal artifact of one review call.
// Results holds every adapter's normalized findings keyed by provider ID;
// failed providers appear with an empty list and an entry in
// Meta.ErrorsByProvider.
type MultiProviderReviewResult struct {
	CodeContext CodeUnit             `json:"codeContext"`
	Results     map[string][]Finding `json:"results"`
	Aggregation AggregationResult    `json:"aggregation"`
	Meta        UsageMeta            `json:"meta"`
}

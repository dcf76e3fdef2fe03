// Package normalize converts raw, provider-specific review output into
// canonical domain findings.
package normalize

import (
	"strings"

	"github.com/bkyoung/review-quorum/internal/domain"
)

// RawFinding is one issue as a provider reported it, before normalization.
// Severity and category are free-form strings; optional fields are pointers
// so absence is distinguishable from zero.
type RawFinding struct {
	Severity         string   `json:"severity"`
	Category         string   `json:"category"`
	Message          string   `json:"message"`
	LineNumber       *int     `json:"lineNumber,omitempty"`
	Rationale        string   `json:"rationale,omitempty"`
	Suggestion       string   `json:"suggestion,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
	EstimatedFixTime string   `json:"estimatedFixTime,omitempty"`
}

// RawOutput is the uniform shape every adapter returns from one invocation:
// the provider's findings plus its own usage accounting.
type RawOutput struct {
	Model         string
	Summary       string
	Findings      []RawFinding
	TokensUsed    int
	EstimatedCost float64
}

// Warning records a value that had to be coerced during normalization.
// Warnings are surfaced for logging but never fail the review.
type Warning struct {
	ProviderID string
	Field      string
	Value      string
	Reason     string
}

// Normalizer maps one adapter's raw output into canonical findings.
// It is pure and deterministic: no I/O, same input always yields same output.
type Normalizer struct{}

// NewNormalizer constructs a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize converts raw findings to domain findings. Unknown severities and
// categories coerce to the defined fallbacks rather than dropping the issue;
// findings with no message at all carry no reviewable content and are skipped
// with a warning.
func (n *Normalizer) Normalize(providerID string, raw RawOutput) ([]domain.Finding, []Warning) {
	findings := make([]domain.Finding, 0, len(raw.Findings))
	var warnings []Warning

	for _, rf := range raw.Findings {
		message := strings.TrimSpace(rf.Message)
		if message == "" {
			warnings = append(warnings, Warning{
				ProviderID: providerID,
				Field:      "message",
				Value:      "",
				Reason:     "empty message, finding skipped",
			})
			continue
		}

		severity, knownSeverity := domain.ParseSeverity(strings.ToLower(strings.TrimSpace(rf.Severity)))
		if !knownSeverity {
			warnings = append(warnings, Warning{
				ProviderID: providerID,
				Field:      "severity",
				Value:      rf.Severity,
				Reason:     "unknown severity, coerced to " + string(severity),
			})
		}

		category, knownCategory := domain.ParseCategory(strings.ToLower(strings.TrimSpace(rf.Category)))
		if !knownCategory {
			warnings = append(warnings, Warning{
				ProviderID: providerID,
				Field:      "category",
				Value:      rf.Category,
				Reason:     "unknown category, coerced to " + string(category),
			})
		}

		findings = append(findings, domain.Finding{
			Severity:         severity,
			Category:         category,
			Message:          message,
			LineNumber:       copyIntPtr(rf.LineNumber),
			Rationale:        strings.TrimSpace(rf.Rationale),
			Suggestion:       strings.TrimSpace(rf.Suggestion),
			Confidence:       clampConfidence(providerID, rf.Confidence, &warnings),
			EstimatedFixTime: strings.TrimSpace(rf.EstimatedFixTime),
		})
	}

	return findings, warnings
}

// clampConfidence keeps a reported confidence inside [0,1]. A missing
// confidence stays missing; it is never defaulted to a misleading zero.
func clampConfidence(providerID string, c *float64, warnings *[]Warning) *float64 {
	if c == nil {
		return nil
	}
	v := *c
	if v >= 0 && v <= 1 {
		out := v
		return &out
	}
	*warnings = append(*warnings, Warning{
		ProviderID: providerID,
		Field:      "confidence",
		Reason:     "confidence outside [0,1], clamped",
	})
	if v < 0 {
		v = 0
	} else {
		v = 1
	}
	return &v
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

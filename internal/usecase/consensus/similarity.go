// Package consensus groups normalized findings across providers into
// consensus and unique buckets and computes an agreement score.
package consensus

import (
	"strings"

	"github.com/bkyoung/review-quorum/internal/domain"
)

// SimilarityParams are the tunable constants of the similarity relation.
type SimilarityParams struct {
	// LineWindow is the maximum line distance for two findings with line
	// numbers to be considered the same issue.
	LineWindow int
	// TokenOverlapThreshold is the minimum message token-overlap ratio when
	// line numbers are unavailable.
	TokenOverlapThreshold float64
	// SeverityWindow is the maximum severity rank distance.
	SeverityWindow int
}

// DefaultSimilarityParams returns the default thresholds.
func DefaultSimilarityParams() SimilarityParams {
	return SimilarityParams{
		LineWindow:            3,
		TokenOverlapThreshold: 0.5,
		SeverityWindow:        1,
	}
}

// Similar reports whether two findings from different providers likely
// describe the same issue: same category, severity within the window, and
// either nearby line numbers (when both are present) or sufficient message
// token overlap.
func (p SimilarityParams) Similar(a, b domain.Finding) bool {
	if a.Category != b.Category {
		return false
	}
	if absInt(a.Severity.Rank()-b.Severity.Rank()) > p.SeverityWindow {
		return false
	}
	if a.LineNumber != nil && b.LineNumber != nil {
		return absInt(*a.LineNumber-*b.LineNumber) <= p.LineWindow
	}
	return tokenOverlap(a.Message, b.Message) >= p.TokenOverlapThreshold
}

// tokenOverlap computes word-level Jaccard similarity between two messages.
func tokenOverlap(a, b string) float64 {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))

	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(wordsA))
	setB := make(map[string]bool, len(wordsB))
	for _, w := range wordsA {
		setA[w] = true
	}
	for _, w := range wordsB {
		setB[w] = true
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

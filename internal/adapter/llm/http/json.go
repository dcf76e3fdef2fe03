package http

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bkyoung/review-quorum/internal/usecase/normalize"
)

var (
	// Greedy match from the first ```json (or ```) fence to the LAST closing
	// fence, so code examples nested inside suggestion strings don't cut the
	// block short.
	jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*([\\s\\S]*)```")
)

// ExtractJSONFromMarkdown extracts JSON from markdown code blocks.
//
// Supports both ```json and ``` code blocks. Models are instructed to return
// a single JSON block; if a response carries several separate blocks the
// greedy match spans all of them and the subsequent parse fails, which is the
// right outcome for a malformed response.
//
// Returns extracted JSON or original text if no code block found.
func ExtractJSONFromMarkdown(text string) string {
	matches := jsonBlockRegex.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return strings.TrimSpace(text)
}

// ParseReviewResponse parses model output into a summary and raw findings.
// Handles both markdown-wrapped and raw JSON responses. Severity, category
// and the optional fields are left exactly as the model reported them; the
// normalizer owns coercion.
func ParseReviewResponse(text string) (summary string, findings []normalize.RawFinding, err error) {
	jsonText := ExtractJSONFromMarkdown(text)

	// Summary is decoded as raw JSON first: some models return it as an
	// object rather than a string, and that should not fail the review.
	var result struct {
		Summary  json.RawMessage        `json:"summary"`
		Findings []normalize.RawFinding `json:"findings"`
	}

	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		return "", nil, fmt.Errorf("failed to parse JSON review: %w", err)
	}

	if result.Findings == nil {
		result.Findings = []normalize.RawFinding{}
	}

	if len(result.Summary) > 0 {
		var s string
		if err := json.Unmarshal(result.Summary, &s); err == nil && s != "" {
			return s, result.Findings, nil
		}
	}
	return fmt.Sprintf("Code review completed with %d finding(s).", len(result.Findings)), result.Findings, nil
}

package http_test

import (
	"encoding/json"
	"testing"

	"github.com/bkyoung/review-quorum/internal/adapter/llm/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFromMarkdown_JSONCodeBlock(t *testing.T) {
	markdown := "```json\n{\"summary\": \"test\", \"findings\": []}\n```"
	result := http.ExtractJSONFromMarkdown(markdown)

	expected := `{"summary": "test", "findings": []}`
	assert.Equal(t, expected, result)
}

func TestExtractJSONFromMarkdown_PlainCodeBlock(t *testing.T) {
	markdown := "```\n{\"summary\": \"test\", \"findings\": []}\n```"
	result := http.ExtractJSONFromMarkdown(markdown)

	expected := `{"summary": "test", "findings": []}`
	assert.Equal(t, expected, result)
}

func TestExtractJSONFromMarkdown_RawJSON(t *testing.T) {
	rawJSON := `{"summary": "test", "findings": []}`
	result := http.ExtractJSONFromMarkdown(rawJSON)

	// Should return trimmed input when no code block
	assert.Equal(t, rawJSON, result)
}

func TestExtractJSONFromMarkdown_EmptyString(t *testing.T) {
	result := http.ExtractJSONFromMarkdown("")
	assert.Equal(t, "", result)
}

func TestExtractJSONFromMarkdown_NestedCodeBlocks(t *testing.T) {
	// JSON containing a suggestion with a nested fenced code block; the
	// greedy regex must match to the LAST fence, not the inner one.
	markdown := "```json\n{\n  \"summary\": \"test\",\n  \"findings\": [\n    {\n      \"suggestion\": \"Use this code:\\n\\n```go\\nfunc main() {}\\n```\"\n    }\n  ]\n}\n```"
	result := http.ExtractJSONFromMarkdown(markdown)

	expected := "{\n  \"summary\": \"test\",\n  \"findings\": [\n    {\n      \"suggestion\": \"Use this code:\\n\\n```go\\nfunc main() {}\\n```\"\n    }\n  ]\n}"
	assert.Equal(t, expected, result)

	var jsonCheck map[string]interface{}
	err := json.Unmarshal([]byte(result), &jsonCheck)
	assert.NoError(t, err, "Extracted content should be valid JSON")
}

func TestExtractJSONFromMarkdown_MultipleCodeBlocks(t *testing.T) {
	markdown := "```json\n{\"first\": true}\n```\nSome text\n```json\n{\"second\": true}\n```"
	result := http.ExtractJSONFromMarkdown(markdown)

	// Greedy matching spans from the first fence to the last one. Models are
	// prompted to return a single block, so this only bites on malformed
	// responses where a parse failure is the right outcome anyway.
	expected := "{\"first\": true}\n```\nSome text\n```json\n{\"second\": true}"
	assert.Equal(t, expected, result)
}

func TestParseReviewResponse_ValidJSONInMarkdown(t *testing.T) {
	markdown := "```json\n{\"summary\": \"Good code\", \"findings\": [{\"severity\": \"low\", \"category\": \"style\", \"message\": \"Test finding\", \"lineNumber\": 10, \"suggestion\": \"Fix it\"}]}\n```"

	summary, findings, err := http.ParseReviewResponse(markdown)
	require.NoError(t, err)

	assert.Equal(t, "Good code", summary)
	require.Len(t, findings, 1)
	assert.Equal(t, "low", findings[0].Severity)
	assert.Equal(t, "style", findings[0].Category)
	require.NotNil(t, findings[0].LineNumber)
	assert.Equal(t, 10, *findings[0].LineNumber)
}

func TestParseReviewResponse_RawJSON(t *testing.T) {
	rawJSON := `{"summary": "No issues", "findings": []}`

	summary, findings, err := http.ParseReviewResponse(rawJSON)
	require.NoError(t, err)

	assert.Equal(t, "No issues", summary)
	assert.Empty(t, findings)
	assert.NotNil(t, findings)
}

func TestParseReviewResponse_InvalidJSON(t *testing.T) {
	invalidJSON := `{"summary": "missing closing brace"`

	_, _, err := http.ParseReviewResponse(invalidJSON)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse JSON review")
}

func TestParseReviewResponse_MissingSummary(t *testing.T) {
	// JSON without summary field - synthesizes summary from findings count
	jsonWithoutSummary := `{"findings": []}`

	summary, findings, err := http.ParseReviewResponse(jsonWithoutSummary)
	require.NoError(t, err)

	assert.Equal(t, "Code review completed with 0 finding(s).", summary)
	assert.Empty(t, findings)
}

func TestParseReviewResponse_ObjectSummary(t *testing.T) {
	// Some models return summary as an object instead of a string
	jsonWithObjectSummary := `{
		"summary": {"total_findings": 1},
		"findings": [
			{"severity": "high", "category": "security", "message": "SQL injection", "lineNumber": 42}
		]
	}`

	summary, findings, err := http.ParseReviewResponse(jsonWithObjectSummary)
	require.NoError(t, err)

	assert.Equal(t, "Code review completed with 1 finding(s).", summary)
	require.Len(t, findings, 1)
}

func TestParseReviewResponse_OptionalFieldsAbsent(t *testing.T) {
	raw := `{"summary": "ok", "findings": [{"severity": "medium", "category": "bug", "message": "possible nil deref"}]}`

	_, findings, err := http.ParseReviewResponse(raw)
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Nil(t, findings[0].LineNumber)
	assert.Nil(t, findings[0].Confidence)
}

func TestParseReviewResponse_ComplexJSONInMarkdown(t *testing.T) {
	// Real model responses wrap the JSON in prose
	response := `Here's my code review:

The code looks good overall. I found one issue.

` + "```json" + `
{
	"summary": "Code quality is good with minor improvements needed",
	"findings": [
		{
			"severity": "medium",
			"category": "performance",
			"message": "Inefficient loop",
			"lineNumber": 45,
			"suggestion": "Use range instead of index",
			"confidence": 0.8
		}
	]
}
` + "```" + `

Let me know if you have questions!`

	summary, findings, err := http.ParseReviewResponse(response)
	require.NoError(t, err)

	assert.Equal(t, "Code quality is good with minor improvements needed", summary)
	require.Len(t, findings, 1)
	assert.Equal(t, "performance", findings[0].Category)
	require.NotNil(t, findings[0].Confidence)
	assert.InDelta(t, 0.8, *findings[0].Confidence, 1e-9)
}

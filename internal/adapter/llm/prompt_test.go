package llm_test

import (
	"testing"

	"github.com/bkyoung/review-quorum/internal/adapter/llm"
	"github.com/bkyoung/review-quorum/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_DefaultTemplate(t *testing.T) {
	builder := llm.NewPromptBuilder("Focus on concurrency bugs.")

	prompt, err := builder.Build("openai", domain.CodeUnit{
		Path:     "pkg/worker/pool.go",
		Content:  "package worker",
		Language: "go",
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "pkg/worker/pool.go")
	assert.Contains(t, prompt, "(go)")
	assert.Contains(t, prompt, "package worker")
	assert.Contains(t, prompt, "Focus on concurrency bugs.")
	assert.Contains(t, prompt, `"severity"`)
	assert.Contains(t, prompt, `"lineNumber"`)
}

func TestBuild_NoInstructionsSectionWhenEmpty(t *testing.T) {
	builder := llm.NewPromptBuilder("")

	prompt, err := builder.Build("openai", domain.CodeUnit{Path: "main.go", Content: "x"})
	require.NoError(t, err)

	assert.NotContains(t, prompt, "Review Instructions")
}

func TestBuild_ProviderTemplateOverride(t *testing.T) {
	builder := llm.NewPromptBuilder("")
	builder.SetProviderTemplate("ollama", "Review {{.Path}} briefly.")

	prompt, err := builder.Build("ollama", domain.CodeUnit{Path: "main.go", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Review main.go briefly.", prompt)

	// Other providers still get the default template
	other, err := builder.Build("openai", domain.CodeUnit{Path: "main.go", Content: "x"})
	require.NoError(t, err)
	assert.NotEqual(t, prompt, other)
}

func TestBuild_InvalidTemplate(t *testing.T) {
	builder := llm.NewPromptBuilder("")
	builder.SetProviderTemplate("openai", "{{.Oops")

	_, err := builder.Build("openai", domain.CodeUnit{Path: "main.go"})
	assert.Error(t, err)
}

func TestEstimateTokens(t *testing.T) {
	count := llm.EstimateTokens("func main() { fmt.Println(\"hello world\") }")
	assert.Greater(t, count, 0)

	assert.Equal(t, 0, llm.EstimateTokens(""))
}

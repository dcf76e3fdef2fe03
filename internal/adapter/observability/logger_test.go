package observability_test

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmhttp "github.com/bkyoung/review-quorum/internal/adapter/llm/http"
	"github.com/bkyoung/review-quorum/internal/adapter/observability"
)

func TestNewReviewLogger(t *testing.T) {
	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	reviewLogger := observability.NewReviewLogger(llmLogger)

	require.NotNil(t, reviewLogger)
}

func TestReviewLogger_LogWarning(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	reviewLogger := observability.NewReviewLogger(llmLogger)

	reviewLogger.LogWarning(context.Background(), "failed to persist review result", map[string]interface{}{
		"path":     "internal/server/handler.go",
		"provider": "openai",
		"error":    "database connection failed",
	})

	output := buf.String()
	assert.Contains(t, output, "[WARN]")
	assert.Contains(t, output, "failed to persist review result")
	assert.Contains(t, output, "path=internal/server/handler.go")
	assert.Contains(t, output, "provider=openai")
	assert.Contains(t, output, "error=database connection failed")
}

func TestReviewLogger_LogInfo(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	reviewLogger := observability.NewReviewLogger(llmLogger)

	reviewLogger.LogInfo(context.Background(), "review completed", map[string]interface{}{
		"providers": 3,
		"totalCost": 0.05,
	})

	output := buf.String()
	assert.Contains(t, output, "[INFO]")
	assert.Contains(t, output, "review completed")
	assert.Contains(t, output, "providers=3")
	assert.Contains(t, output, "totalCost=0.05")
}

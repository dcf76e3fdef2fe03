package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"testing"

	llmhttp "github.com/bkyoung/review-quorum/internal/adapter/llm/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	return &buf
}

func TestRedactAPIKey_ShowsLastFour(t *testing.T) {
	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)

	assert.Equal(t, "[REDACTED-6789]", logger.RedactAPIKey("sk-123456789"))
}

func TestRedactAPIKey_ShortKeyFullyRedacted(t *testing.T) {
	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)

	assert.Equal(t, "[REDACTED]", logger.RedactAPIKey("abc"))
	assert.Equal(t, "[REDACTED]", logger.RedactAPIKey(""))
}

func TestLogWarning_Human(t *testing.T) {
	buf := captureLog(t)

	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	logger.LogWarning(context.Background(), "failed to save review result", map[string]interface{}{
		"path":     "cmd/main.go",
		"provider": "openai",
		"error":    "database connection failed",
	})

	output := buf.String()
	assert.Contains(t, output, "[WARN]")
	assert.Contains(t, output, "failed to save review result")
	assert.Contains(t, output, "path=cmd/main.go")
	assert.Contains(t, output, "provider=openai")
	assert.Contains(t, output, "error=database connection failed")
}

func TestLogWarning_Human_EmptyFields(t *testing.T) {
	buf := captureLog(t)

	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	logger.LogWarning(context.Background(), "simple warning", map[string]interface{}{})

	output := buf.String()
	assert.Contains(t, output, "[WARN]")
	assert.Contains(t, output, "simple warning")
	assert.NotContains(t, output, "=")
}

func TestLogInfo_JSON(t *testing.T) {
	buf := captureLog(t)

	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatJSON, true)
	logger.LogInfo(context.Background(), "review completed", map[string]interface{}{
		"provider":  "anthropic",
		"totalCost": 0.05,
	})

	output := buf.String()
	jsonStart := strings.Index(output, "{")
	require.NotEqual(t, -1, jsonStart)

	var logData map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(output[jsonStart:])), &logData))

	assert.Equal(t, "info", logData["level"])
	assert.Equal(t, "review completed", logData["message"])
	assert.Equal(t, "anthropic", logData["provider"])
	assert.Equal(t, 0.05, logData["totalCost"])
	assert.Contains(t, logData, "timestamp")
}

func TestLogInfo_ErrorLevelSuppresses(t *testing.T) {
	buf := captureLog(t)

	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelError, llmhttp.LogFormatHuman, true)
	logger.LogInfo(context.Background(), "quiet info", map[string]interface{}{"key": "value"})
	logger.LogWarning(context.Background(), "quiet warning", map[string]interface{}{"key": "value"})

	assert.Empty(t, buf.String())
}

func TestRedactAPIKey_DisabledPassesThrough(t *testing.T) {
	logger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, false)

	assert.Equal(t, "sk-123456789", logger.RedactAPIKey("sk-123456789"))

	logger.SetRedaction(true)
	assert.Equal(t, "[REDACTED-6789]", logger.RedactAPIKey("sk-123456789"))
}

// Package json renders review results as JSON files on disk.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bkyoung/review-quorum/internal/domain"
)

// Writer persists review results as indented JSON.
type Writer struct {
	now func() string
}

// NewWriter creates a JSON writer with a timestamp supplier.
func NewWriter(now func() string) *Writer {
	return &Writer{now: now}
}

// Write persists a result to disk and returns the file path.
func (w *Writer) Write(ctx context.Context, outputDir string, result domain.MultiProviderReviewResult) (string, error) {
	dir := filepath.Join(outputDir, w.now())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("review-%s.json", Sanitise(result.CodeContext.Path)))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create json file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(result); err != nil {
		return "", fmt.Errorf("failed to encode result to json: %w", err)
	}

	return path, nil
}

// Sanitise converts a code unit path into a safe file name fragment.
func Sanitise(value string) string {
	if value == "" {
		return "unknown"
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "/", "-")
	value = strings.ReplaceAll(value, string(filepath.Separator), "-")
	value = strings.ReplaceAll(value, " ", "-")
	return value
}

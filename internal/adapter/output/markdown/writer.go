// Package markdown renders review results as human-readable reports.
package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bkyoung/review-quorum/internal/domain"
)

type clock func() string

// Writer renders review results into Markdown files.
type Writer struct {
	now clock
}

// NewWriter constructs a Markdown writer with a timestamp supplier.
func NewWriter(now clock) *Writer {
	return &Writer{now: now}
}

// Write persists a Markdown report to disk and returns the file path.
func (w *Writer) Write(ctx context.Context, outputDir string, result domain.MultiProviderReviewResult) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.md", sanitise(result.CodeContext.Path), w.now())
	path := filepath.Join(outputDir, filename)

	if err := os.WriteFile(path, []byte(buildContent(result)), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	return path, nil
}

func buildContent(result domain.MultiProviderReviewResult) string {
	var b strings.Builder
	caser := cases.Title(language.English)

	b.WriteString("# Consensus Review Report\n\n")
	b.WriteString(fmt.Sprintf("- File: %s\n", result.CodeContext.Path))
	b.WriteString(fmt.Sprintf("- Providers: %d\n", len(result.Results)))
	b.WriteString(fmt.Sprintf("- Total findings: %d\n", result.Aggregation.TotalFindings))
	b.WriteString(fmt.Sprintf("- Agreement score: %.2f\n", result.Aggregation.AgreementScore))
	b.WriteString(fmt.Sprintf("- Total cost: $%.4f\n", result.Meta.TotalEstimatedCost))
	b.WriteString(fmt.Sprintf("- Wall-clock duration: %s\n\n", result.Meta.TotalDuration))

	if len(result.Meta.ErrorsByProvider) > 0 {
		b.WriteString("## Provider Errors\n\n")
		for _, id := range sortedKeys(result.Meta.ErrorsByProvider) {
			b.WriteString(fmt.Sprintf("- %s: %s\n", id, result.Meta.ErrorsByProvider[id]))
		}
		b.WriteString("\n")
	}

	if len(result.Aggregation.ConsensusFindings) > 0 {
		b.WriteString("## Consensus Findings\n\n")
		for _, group := range result.Aggregation.ConsensusFindings {
			writeFinding(&b, caser, group.Representative)
			b.WriteString(fmt.Sprintf("- Agreed by: %s (%d providers)\n\n",
				strings.Join(group.SupportingProviders, ", "), group.Size))
		}
	}

	uniqueTotal := 0
	for _, findings := range result.Aggregation.UniqueFindings {
		uniqueTotal += len(findings)
	}
	if uniqueTotal > 0 {
		b.WriteString("## Unique Findings\n\n")
		for _, id := range sortedFindingKeys(result.Aggregation.UniqueFindings) {
			findings := result.Aggregation.UniqueFindings[id]
			if len(findings) == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("### Reported only by %s\n\n", id))
			for _, finding := range findings {
				writeFinding(&b, caser, finding)
				b.WriteString("\n")
			}
		}
	}

	if result.Aggregation.TotalFindings == 0 {
		b.WriteString("No findings reported.\n")
	}

	return b.String()
}

func writeFinding(b *strings.Builder, caser cases.Caser, finding domain.Finding) {
	b.WriteString(fmt.Sprintf("#### %s (%s)\n", finding.Message, caser.String(string(finding.Severity))))
	b.WriteString(fmt.Sprintf("- Category: %s\n", finding.Category))
	if finding.LineNumber != nil {
		b.WriteString(fmt.Sprintf("- Line: %d\n", *finding.LineNumber))
	}
	if finding.Suggestion != "" {
		b.WriteString(fmt.Sprintf("- Suggestion: %s\n", finding.Suggestion))
	}
	if finding.Confidence != nil {
		b.WriteString(fmt.Sprintf("- Confidence: %.2f\n", *finding.Confidence))
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFindingKeys(m map[string][]domain.Finding) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sanitise(value string) string {
	if value == "" {
		return "unknown"
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "/", "-")
	value = strings.ReplaceAll(value, " ", "-")
	return value
}

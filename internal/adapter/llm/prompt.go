package llm

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/bkyoung/review-quorum/internal/domain"
)

// PromptBuilder renders review prompts from a code unit. Templates can be
// overridden per provider; every template must instruct the model to answer
// with the JSON shape the response parser expects.
type PromptBuilder struct {
	providerTemplates map[string]string
	defaultTemplate   string
	instructions      string
}

// NewPromptBuilder creates a builder with the default template.
func NewPromptBuilder(instructions string) *PromptBuilder {
	return &PromptBuilder{
		providerTemplates: make(map[string]string),
		defaultTemplate:   defaultPromptTemplate(),
		instructions:      instructions,
	}
}

// SetProviderTemplate sets a custom template for a specific provider.
func (b *PromptBuilder) SetProviderTemplate(providerName, templateText string) {
	b.providerTemplates[providerName] = templateText
}

type promptData struct {
	Path         string
	Language     string
	Instructions string
	Content      string
}

// Build renders the review prompt for one code unit.
func (b *PromptBuilder) Build(providerName string, unit domain.CodeUnit) (string, error) {
	templateText := b.defaultTemplate
	if providerTemplate, ok := b.providerTemplates[providerName]; ok {
		templateText = providerTemplate
	}

	tmpl, err := template.New("prompt").Parse(templateText)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, promptData{
		Path:         unit.Path,
		Language:     unit.Language,
		Instructions: b.instructions,
		Content:      unit.Content,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

func defaultPromptTemplate() string {
	return `You are an expert software engineer performing a code review.

{{if .Instructions}}## Review Instructions
{{.Instructions}}

{{end}}## Code to Review
File: {{.Path}}{{if .Language}} ({{.Language}}){{end}}

{{.Content}}

Analyze this code and respond with a single JSON object in a ` + "```json" + ` code block:
{
  "summary": "one paragraph overview",
  "findings": [
    {
      "severity": "critical|high|medium|low",
      "category": "security|performance|bug|style|best-practice",
      "message": "what is wrong",
      "lineNumber": 42,
      "rationale": "why it matters",
      "suggestion": "how to fix it",
      "confidence": 0.9
    }
  ]
}
Omit lineNumber when the issue is not tied to a specific line. Report nothing but the JSON block.`
}

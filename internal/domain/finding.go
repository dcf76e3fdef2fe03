package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Severity classifies how urgent a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Category classifies what kind of issue a finding describes.
type Category string

const (
	CategorySecurity        Category = "security"
	CategoryPerformance     Category = "performance"
	CategoryMaintainability Category = "maintainability"
	CategoryArchitecture    Category = "architecture"
	CategoryCodeSmell       Category = "code-smell"
	CategoryBestPractice    Category = "best-practice"
)

var severityRanks = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

var knownCategories = map[Category]bool{
	CategorySecurity:        true,
	CategoryPerformance:     true,
	CategoryMaintainability: true,
	CategoryArchitecture:    true,
	CategoryCodeSmell:       true,
	CategoryBestPractice:    true,
}

// ParseSeverity maps a raw provider string onto a known Severity.
// Unknown values map to the lowest severity so no reported issue is dropped.
func ParseSeverity(raw string) (Severity, bool) {
	s := Severity(raw)
	if _, ok := severityRanks[s]; ok {
		return s, true
	}
	return SeverityLow, false
}

// ParseCategory maps a raw provider string onto a known Category.
// Unknown values fall back to best-practice.
func ParseCategory(raw string) (Category, bool) {
	c := Category(raw)
	if knownCategories[c] {
		return c, true
	}
	return CategoryBestPractice, false
}

// Rank returns the numeric ordering of a severity (critical highest).
// Unknown severities rank as 0, below low.
func (s Severity) Rank() int {
	return severityRanks[s]
}

// Severities lists all severities from most to least urgent.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
}

// Categories lists all finding categories in a stable order.
func Categories() []Category {
	return []Category{
		CategorySecurity,
		CategoryPerformance,
		CategoryMaintainability,
		CategoryArchitecture,
		CategoryCodeSmell,
		CategoryBestPractice,
	}
}

// Finding is the canonical, provider-agnostic representation of one reported
// issue. Optional fields stay absent (nil pointer or empty string) when the
// provider did not report them.
type Finding struct {
	Severity         Severity `json:"severity"`
	Category         Category `json:"category"`
	Message          string   `json:"message"`
	LineNumber       *int     `json:"lineNumber,omitempty"`
	Rationale        string   `json:"rationale,omitempty"`
	Suggestion       string   `json:"suggestion,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
	EstimatedFixTime string   `json:"estimatedFixTime,omitempty"`
}

// Fingerprint returns a deterministic hash of the finding's identifying
// fields, suitable as a persistence key.
func (f Finding) Fingerprint() string {
	line := -1
	if f.LineNumber != nil {
		line = *f.LineNumber
	}
	payload := fmt.Sprintf("%s|%s|%d|%s", f.Severity, f.Category, line, f.Message)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

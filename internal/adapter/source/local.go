// Package source loads code units for review from the filesystem or a git
// repository.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bkyoung/review-quorum/internal/domain"
)

// Loader reads code units from a directory. All paths resolve relative to
// the root and attempts to escape it are rejected.
type Loader struct {
	root string
}

// NewLoader creates a Loader rooted at the given directory.
func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// Load reads the file at path and returns it as a code unit. The returned
// path is always relative to the loader root.
func (l *Loader) Load(path string) (domain.CodeUnit, error) {
	resolved, err := l.resolvePath(path)
	if err != nil {
		return domain.CodeUnit{}, fmt.Errorf("invalid path %q: %w", path, err)
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return domain.CodeUnit{}, fmt.Errorf("reading %q: %w", path, err)
	}

	rel := path
	if filepath.IsAbs(path) {
		if r, relErr := filepath.Rel(l.root, resolved); relErr == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(filepath.Clean(rel))

	return domain.CodeUnit{
		Path:     rel,
		Content:  string(content),
		Language: DetectLanguage(rel),
	}, nil
}

// resolvePath resolves a path and validates it's within the loader root.
// It follows symlinks so a link inside the root cannot point outside it.
func (l *Loader) resolvePath(path string) (string, error) {
	var resolved string
	if filepath.IsAbs(path) {
		resolved = path
	} else {
		resolved = filepath.Join(l.root, path)
	}
	resolved = filepath.Clean(resolved)

	realRoot, err := filepath.EvalSymlinks(l.root)
	if err != nil {
		realRoot = filepath.Clean(l.root)
	}

	realPath, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("resolving symlinks: %w", err)
		}
		rel, relErr := filepath.Rel(realRoot, resolved)
		if relErr != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("path traversal detected")
		}
		return resolved, nil
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path traversal detected")
	}

	return realPath, nil
}

// DetectLanguage maps a file extension to a language name for the prompt.
// Unknown extensions return an empty string rather than a guess.
func DetectLanguage(path string) string {
	languages := map[string]string{
		".go":    "go",
		".py":    "python",
		".js":    "javascript",
		".jsx":   "javascript",
		".ts":    "typescript",
		".tsx":   "typescript",
		".java":  "java",
		".rb":    "ruby",
		".rs":    "rust",
		".c":     "c",
		".h":     "c",
		".cpp":   "cpp",
		".cc":    "cpp",
		".hpp":   "cpp",
		".cs":    "csharp",
		".php":   "php",
		".swift": "swift",
		".kt":    "kotlin",
		".scala": "scala",
		".sh":    "shell",
		".bash":  "shell",
		".sql":   "sql",
		".tf":    "terraform",
		".yaml":  "yaml",
		".yml":   "yaml",
		".json":  "json",
		".proto": "protobuf",
	}
	return languages[strings.ToLower(filepath.Ext(path))]
}

package review

import (
	"context"
	"fmt"

	"github.com/bkyoung/review-quorum/internal/domain"
)

// SourceLoader loads a code unit from the working tree.
type SourceLoader interface {
	Load(path string) (domain.CodeUnit, error)
}

// RefLoader loads a code unit from a git reference.
type RefLoader interface {
	Load(ref, path string) (domain.CodeUnit, error)
}

// ResultWriter renders a review result into the output directory and returns
// the path of the written artifact.
type ResultWriter interface {
	Write(ctx context.Context, outputDir string, result domain.MultiProviderReviewResult) (string, error)
}

// FileRequest describes one file review invocation.
type FileRequest struct {
	Path      string
	Ref       string   // Optional git ref; empty reviews the working tree
	OutputDir string
	Format    string   // Writer selection: a writer name or "all"
	Providers []string // Optional provider subset; empty uses all adapters
}

// FileReport is the outcome of a file review: the engine result plus the
// artifacts written for it.
type FileReport struct {
	Result      domain.MultiProviderReviewResult
	OutputPaths []string
}

// ServiceDeps captures the collaborators for the file review service.
type ServiceDeps struct {
	Engine   *Engine
	Adapters []Adapter
	Source   SourceLoader
	Git      RefLoader // Optional: required only for ref-based requests
	Writers  map[string]ResultWriter
}

// Service orchestrates a file review end to end: load the code unit, run the
// engine, write the artifacts.
type Service struct {
	deps ServiceDeps
}

// NewService creates a file review service.
func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

// ReviewFile loads the requested file, reviews it with the selected
// providers, and writes the configured output artifacts.
func (s *Service) ReviewFile(ctx context.Context, req FileRequest) (FileReport, error) {
	unit, err := s.loadUnit(req)
	if err != nil {
		return FileReport{}, err
	}

	adapters, err := s.selectAdapters(req.Providers)
	if err != nil {
		return FileReport{}, err
	}

	result, err := s.deps.Engine.ReviewCodeUnit(ctx, unit, adapters)
	if err != nil {
		return FileReport{}, err
	}

	paths, err := s.writeResult(ctx, req, result)
	if err != nil {
		return FileReport{Result: result}, err
	}

	return FileReport{Result: result, OutputPaths: paths}, nil
}

func (s *Service) loadUnit(req FileRequest) (domain.CodeUnit, error) {
	if req.Ref == "" {
		return s.deps.Source.Load(req.Path)
	}
	if s.deps.Git == nil {
		return domain.CodeUnit{}, fmt.Errorf("ref %q requested but no git loader configured", req.Ref)
	}
	return s.deps.Git.Load(req.Ref, req.Path)
}

func (s *Service) selectAdapters(providers []string) ([]Adapter, error) {
	if len(providers) == 0 {
		return s.deps.Adapters, nil
	}

	byID := make(map[string]Adapter, len(s.deps.Adapters))
	for _, a := range s.deps.Adapters {
		byID[a.ID()] = a
	}

	selected := make([]Adapter, 0, len(providers))
	for _, id := range providers {
		a, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", id)
		}
		selected = append(selected, a)
	}
	return selected, nil
}

func (s *Service) writeResult(ctx context.Context, req FileRequest, result domain.MultiProviderReviewResult) ([]string, error) {
	if len(s.deps.Writers) == 0 {
		return nil, nil
	}

	format := req.Format
	if format == "" {
		format = "all"
	}

	var paths []string
	if format == "all" {
		for name, w := range s.deps.Writers {
			path, err := w.Write(ctx, req.OutputDir, result)
			if err != nil {
				return paths, fmt.Errorf("write %s output: %w", name, err)
			}
			paths = append(paths, path)
		}
		return paths, nil
	}

	w, ok := s.deps.Writers[format]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	path, err := w.Write(ctx, req.OutputDir, result)
	if err != nil {
		return nil, fmt.Errorf("write %s output: %w", format, err)
	}
	return []string{path}, nil
}

package review_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/review-quorum/internal/domain"
	"github.com/bkyoung/review-quorum/internal/usecase/normalize"
	"github.com/bkyoung/review-quorum/internal/usecase/review"
)

// fakeSource returns a canned code unit for any path.
type fakeSource struct {
	unit domain.CodeUnit
	err  error
}

func (s *fakeSource) Load(path string) (domain.CodeUnit, error) {
	if s.err != nil {
		return domain.CodeUnit{}, s.err
	}
	unit := s.unit
	unit.Path = path
	return unit, nil
}

// fakeGit records the ref it was asked for.
type fakeGit struct {
	unit    domain.CodeUnit
	lastRef string
}

func (g *fakeGit) Load(ref, path string) (domain.CodeUnit, error) {
	g.lastRef = ref
	unit := g.unit
	unit.Path = path
	return unit, nil
}

// fakeWriter records writes and returns a fixed artifact path.
type fakeWriter struct {
	path    string
	err     error
	written []domain.MultiProviderReviewResult
}

func (w *fakeWriter) Write(ctx context.Context, outputDir string, result domain.MultiProviderReviewResult) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.written = append(w.written, result)
	return w.path, nil
}

func newServiceForTest(writers map[string]review.ResultWriter, git review.RefLoader) (*review.Service, *fakeWriter) {
	adapters := []review.Adapter{
		&fakeAdapter{id: "p1", raw: normalize.RawOutput{
			Findings: []normalize.RawFinding{rawFinding("high", "security", "unchecked input", 12)},
		}},
		&fakeAdapter{id: "p2", raw: normalize.RawOutput{
			Findings: []normalize.RawFinding{rawFinding("low", "code-smell", "long function", 80)},
		}},
	}

	md := &fakeWriter{path: "out/review.md"}
	if writers == nil {
		writers = map[string]review.ResultWriter{"markdown": md}
	}

	svc := review.NewService(review.ServiceDeps{
		Engine:   review.NewEngine(review.EngineDeps{}),
		Adapters: adapters,
		Source:   &fakeSource{unit: domain.CodeUnit{Content: "package main", Language: "go"}},
		Git:      git,
		Writers:  writers,
	})
	return svc, md
}

func TestReviewFileUsesWorkingTreeByDefault(t *testing.T) {
	svc, md := newServiceForTest(nil, nil)

	report, err := svc.ReviewFile(context.Background(), review.FileRequest{
		Path:      "main.go",
		OutputDir: "out",
		Format:    "markdown",
	})
	require.NoError(t, err)

	assert.Equal(t, "main.go", report.Result.CodeContext.Path)
	assert.Equal(t, 2, report.Result.Aggregation.TotalFindings)
	assert.Equal(t, []string{"out/review.md"}, report.OutputPaths)
	require.Len(t, md.written, 1)
}

func TestReviewFileLoadsFromRef(t *testing.T) {
	git := &fakeGit{unit: domain.CodeUnit{Content: "package old", Language: "go"}}
	svc, _ := newServiceForTest(nil, git)

	report, err := svc.ReviewFile(context.Background(), review.FileRequest{
		Path:   "main.go",
		Ref:    "release-1.2",
		Format: "markdown",
	})
	require.NoError(t, err)

	assert.Equal(t, "release-1.2", git.lastRef)
	assert.Equal(t, "package old", report.Result.CodeContext.Content)
}

func TestReviewFileRefWithoutGitLoader(t *testing.T) {
	svc, _ := newServiceForTest(nil, nil)

	_, err := svc.ReviewFile(context.Background(), review.FileRequest{
		Path: "main.go",
		Ref:  "main",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no git loader configured")
}

func TestReviewFileProviderSubset(t *testing.T) {
	svc, _ := newServiceForTest(nil, nil)

	report, err := svc.ReviewFile(context.Background(), review.FileRequest{
		Path:      "main.go",
		Format:    "markdown",
		Providers: []string{"p2"},
	})
	require.NoError(t, err)

	require.Len(t, report.Result.Results, 1)
	assert.Contains(t, report.Result.Results, "p2")
}

func TestReviewFileUnknownProvider(t *testing.T) {
	svc, _ := newServiceForTest(nil, nil)

	_, err := svc.ReviewFile(context.Background(), review.FileRequest{
		Path:      "main.go",
		Providers: []string{"p1", "nope"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "nope"`)
}

func TestReviewFileAllFormatsWritesEveryWriter(t *testing.T) {
	md := &fakeWriter{path: "out/review.md"}
	js := &fakeWriter{path: "out/review.json"}
	svc, _ := newServiceForTest(map[string]review.ResultWriter{"markdown": md, "json": js}, nil)

	report, err := svc.ReviewFile(context.Background(), review.FileRequest{
		Path:   "main.go",
		Format: "all",
	})
	require.NoError(t, err)

	paths := append([]string(nil), report.OutputPaths...)
	sort.Strings(paths)
	assert.Equal(t, []string{"out/review.json", "out/review.md"}, paths)
	assert.Len(t, md.written, 1)
	assert.Len(t, js.written, 1)
}

func TestReviewFileUnknownFormat(t *testing.T) {
	svc, _ := newServiceForTest(nil, nil)

	_, err := svc.ReviewFile(context.Background(), review.FileRequest{
		Path:   "main.go",
		Format: "sarif",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "sarif"`)
}

func TestReviewFileWriterFailureReturnsResult(t *testing.T) {
	broken := &fakeWriter{err: errors.New("disk full")}
	svc, _ := newServiceForTest(map[string]review.ResultWriter{"markdown": broken}, nil)

	report, err := svc.ReviewFile(context.Background(), review.FileRequest{
		Path:   "main.go",
		Format: "markdown",
	})
	require.Error(t, err)

	// The review itself completed; only the artifact write failed.
	assert.Equal(t, 2, report.Result.Aggregation.TotalFindings)
}

func TestReviewFileSourceLoadFailure(t *testing.T) {
	svc := review.NewService(review.ServiceDeps{
		Engine: review.NewEngine(review.EngineDeps{}),
		Source: &fakeSource{err: errors.New("no such file")},
	})

	_, err := svc.ReviewFile(context.Background(), review.FileRequest{Path: "ghost.go"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such file")
}

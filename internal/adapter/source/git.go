package source

import (
	"fmt"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/bkyoung/review-quorum/internal/domain"
)

// GitLoader reads code units from a git repository at a specific revision,
// so a review can target committed content rather than the working tree.
type GitLoader struct {
	repoDir string
}

// NewGitLoader constructs a GitLoader for the provided repository directory.
func NewGitLoader(repoDir string) *GitLoader {
	return &GitLoader{repoDir: repoDir}
}

// Load returns the file at path as stored in the given ref. Ref may be a
// branch name, tag, or commit hash; an empty ref means HEAD.
func (l *GitLoader) Load(ref, path string) (domain.CodeUnit, error) {
	repo, err := goGit.PlainOpenWithOptions(l.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return domain.CodeUnit{}, fmt.Errorf("open repo: %w", err)
	}

	if ref == "" {
		ref = "HEAD"
	}
	commit, err := resolveCommit(repo, ref)
	if err != nil {
		return domain.CodeUnit{}, fmt.Errorf("resolve ref %q: %w", ref, err)
	}

	file, err := commit.File(path)
	if err != nil {
		return domain.CodeUnit{}, fmt.Errorf("file %q at %q: %w", path, ref, err)
	}

	content, err := file.Contents()
	if err != nil {
		return domain.CodeUnit{}, fmt.Errorf("read %q: %w", path, err)
	}

	return domain.CodeUnit{
		Path:     path,
		Content:  content,
		Language: DetectLanguage(path),
	}, nil
}

func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	return nil, lastErr
}

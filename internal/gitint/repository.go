// Package gitint reads revision history and diffs from a git repository
// using go-git. Revisions are numbered from 0 at the oldest commit of a
// branch's first-parent history.
package gitint

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoCommits is returned for a branch (or HEAD) without history.
var ErrNoCommits = errors.New("no commits")

// Repository wraps a go-git repository.
type Repository struct {
	repo *git.Repository
	path string
}

// Open opens an existing git repository at repoPath.
func Open(repoPath string) (*Repository, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open git repo at %s: %w", repoPath, err)
	}
	return &Repository{repo: repo, path: repoPath}, nil
}

// Path returns the directory the repository was opened from.
func (r *Repository) Path() string {
	return r.path
}

// CurrentBranch returns the short name of the checked-out branch. For a
// detached HEAD it returns the commit hash.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", fmt.Errorf("resolve HEAD: %w", ErrNoCommits)
		}
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}

// commit resolves any revision expression go-git understands (hash, branch,
// tag, HEAD~n) to a commit.
func (r *Repository) commit(rev string) (*object.Commit, error) {
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("resolve %s: %w", rev, ErrNoCommits)
		}
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}
	c, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", hash, err)
	}
	return c, nil
}

// RevisionList returns the commit hashes of branch's first-parent history,
// oldest first, so that index i is revision i. An empty branch means HEAD.
// Merge commits contribute their first parent only.
func (r *Repository) RevisionList(branch string) ([]string, error) {
	c, err := r.commit(branch)
	if err != nil {
		return nil, err
	}

	var hashes []string
	for {
		hashes = append(hashes, c.Hash.String())
		if c.NumParents() == 0 {
			break
		}
		c, err = c.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("load parent of %s: %w", hashes[len(hashes)-1][:7], err)
		}
	}

	for i, j := 0, len(hashes)-1; i < j; i, j = i+1, j-1 {
		hashes[i], hashes[j] = hashes[j], hashes[i]
	}
	return hashes, nil
}

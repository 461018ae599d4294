// Package gitinfo extracts repository context for the pack: staged change
// summaries, branch diffs, and branch logs.
package gitinfo

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Sentinel errors.
var (
	ErrNotRepository  = errors.New("not a git repository")
	ErrBranchNotFound = errors.New("branch not found")
)

// maxLogCommits bounds branch log walks.
const maxLogCommits = 200

// Repo wraps an opened repository.
type Repo struct {
	repo *git.Repository
	log  *slog.Logger
}

// Open opens the repository containing path, searching parent directories
// for the .git dir the way the git CLI does.
func Open(path string, logger *slog.Logger) (*Repo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}

		return nil, fmt.Errorf("open repository at %s: %w", path, err)
	}

	return &Repo{repo: repo, log: logger}, nil
}

// Change is one staged file with its status code.
type Change struct {
	Path string
	// Code is the single-letter staging status (A, M, D, R, C).
	Code string
}

// StagedChanges lists files staged in the index, sorted by path.
func (r *Repo) StagedChanges() ([]Change, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}

	var changes []Change

	for path, fileStatus := range status {
		if fileStatus.Staging == git.Unmodified || fileStatus.Staging == git.Untracked {
			continue
		}

		changes = append(changes, Change{Path: path, Code: string(fileStatus.Staging)})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	return changes, nil
}

// BranchDiff returns the unified patch from branch a to branch b.
func (r *Repo) BranchDiff(a, b string) (string, error) {
	commitA, err := r.branchCommit(a)
	if err != nil {
		return "", err
	}

	commitB, err := r.branchCommit(b)
	if err != nil {
		return "", err
	}

	patch, err := commitA.Patch(commitB)
	if err != nil {
		return "", fmt.Errorf("diff %s..%s: %w", a, b, err)
	}

	return patch.String(), nil
}

// BranchLog returns the subjects of commits reachable from branch b but not
// from branch a, newest first, capped at maxLogCommits.
func (r *Repo) BranchLog(a, b string) ([]string, error) {
	commitA, err := r.branchCommit(a)
	if err != nil {
		return nil, err
	}

	commitB, err := r.branchCommit(b)
	if err != nil {
		return nil, err
	}

	seen := make(map[plumbing.Hash]bool)

	err = r.walk(commitA, func(c *object.Commit) {
		seen[c.Hash] = true
	})
	if err != nil {
		return nil, err
	}

	var subjects []string

	err = r.walk(commitB, func(c *object.Commit) {
		if !seen[c.Hash] && len(subjects) < maxLogCommits {
			subjects = append(subjects, subject(c.Message))
		}
	})
	if err != nil {
		return nil, err
	}

	return subjects, nil
}

// walk visits up to maxLogCommits commits from head in log order.
func (r *Repo) walk(head *object.Commit, visit func(*object.Commit)) error {
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash})
	if err != nil {
		return fmt.Errorf("log from %s: %w", head.Hash, err)
	}
	defer iter.Close()

	count := 0

	iterErr := iter.ForEach(func(c *object.Commit) error {
		if count >= maxLogCommits {
			return errStopIteration
		}

		count++
		visit(c)

		return nil
	})
	if iterErr != nil && !errors.Is(iterErr, errStopIteration) {
		return fmt.Errorf("walk commits: %w", iterErr)
	}

	return nil
}

var errStopIteration = errors.New("stop iteration")

func (r *Repo) branchCommit(name string) (*object.Commit, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, name)
	}

	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load commit for %s: %w", name, err)
	}

	return commit, nil
}

// subject returns the first line of a commit message.
func subject(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return strings.TrimSpace(message[:idx])
	}

	return strings.TrimSpace(message)
}

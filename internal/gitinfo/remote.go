package gitinfo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// ErrNotRemoteURL marks inputs that look like local paths.
var ErrNotRemoteURL = errors.New("not a recognized remote repository URL")

// remotePattern matches GitHub-style HTTPS repository URLs with an
// optional /tree/<branch> suffix.
var remotePattern = regexp.MustCompile(
	`^https?://(github\.com|gitlab\.com|bitbucket\.org)/([\w.-]+)/([\w.-]+?)(?:\.git)?(?:/tree/([\w./-]+))?/?$`,
)

// RemoteRef is a parsed remote repository URL.
type RemoteRef struct {
	// CloneURL is the normalized https clone URL ending in .git.
	CloneURL string
	Owner    string
	Name     string
	// Branch is empty when the URL does not pin one.
	Branch string
}

// ParseRemoteURL recognizes and normalizes a remote repository URL.
func ParseRemoteURL(raw string) (RemoteRef, error) {
	groups := remotePattern.FindStringSubmatch(raw)
	if groups == nil {
		return RemoteRef{}, fmt.Errorf("%w: %s", ErrNotRemoteURL, raw)
	}

	host, owner, name, branch := groups[1], groups[2], groups[3], groups[4]

	return RemoteRef{
		CloneURL: fmt.Sprintf("https://%s/%s/%s.git", host, owner, name),
		Owner:    owner,
		Name:     name,
		Branch:   branch,
	}, nil
}

// CloneTemp shallow-clones the remote into a fresh temp directory and
// returns its path. The caller removes the directory when done.
func CloneTemp(ctx context.Context, ref RemoteRef) (string, error) {
	dir, err := os.MkdirTemp("", "promptpack-clone-*")
	if err != nil {
		return "", fmt.Errorf("create clone directory: %w", err)
	}

	opts := &git.CloneOptions{
		URL:          ref.CloneURL,
		Depth:        1,
		SingleBranch: true,
	}

	if ref.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref.Branch)
	}

	_, cloneErr := git.PlainCloneContext(ctx, dir, opts)
	if cloneErr != nil {
		_ = os.RemoveAll(dir)

		return "", fmt.Errorf("clone %s: %w", ref.CloneURL, cloneErr)
	}

	return dir, nil
}

package gitinfo_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptpack/promptpack/internal/gitinfo"
)

type testRepo struct {
	dir      string
	worktree *git.Worktree
}

func initRepo(t *testing.T) *testRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	return &testRepo{dir: dir, worktree: worktree}
}

func (r *testRepo) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(r.dir, name), []byte(content), 0o644))
}

func (r *testRepo) add(t *testing.T, name string) {
	t.Helper()

	_, err := r.worktree.Add(name)
	require.NoError(t, err)
}

func (r *testRepo) commit(t *testing.T, message string) {
	t.Helper()

	_, err := r.worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func (r *testRepo) branch(t *testing.T, name string) {
	t.Helper()

	err := r.worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	})
	require.NoError(t, err)
}

func TestOpen_NotRepository(t *testing.T) {
	t.Parallel()

	_, err := gitinfo.Open(t.TempDir(), nil)
	assert.ErrorIs(t, err, gitinfo.ErrNotRepository)
}

func TestStagedChanges(t *testing.T) {
	t.Parallel()

	tr := initRepo(t)
	tr.write(t, "a.txt", "one\n")
	tr.add(t, "a.txt")
	tr.commit(t, "initial")

	tr.write(t, "b.txt", "two\n")
	tr.add(t, "b.txt")
	tr.write(t, "a.txt", "one changed\n") // modified but not staged

	repo, err := gitinfo.Open(tr.dir, nil)
	require.NoError(t, err)

	changes, err := repo.StagedChanges()
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, "b.txt", changes[0].Path)
	assert.Equal(t, "A", changes[0].Code)
}

func TestBranchDiffAndLog(t *testing.T) {
	t.Parallel()

	tr := initRepo(t)
	tr.write(t, "a.txt", "one\n")
	tr.add(t, "a.txt")
	tr.commit(t, "initial")

	tr.branch(t, "base")
	tr.branch(t, "feature")

	tr.write(t, "a.txt", "one\ntwo\n")
	tr.add(t, "a.txt")
	tr.commit(t, "add second line\n\nlonger body")

	repo, err := gitinfo.Open(tr.dir, nil)
	require.NoError(t, err)

	patch, err := repo.BranchDiff("base", "feature")
	require.NoError(t, err)
	assert.Contains(t, patch, "+two")

	subjects, err := repo.BranchLog("base", "feature")
	require.NoError(t, err)
	assert.Equal(t, []string{"add second line"}, subjects)

	_, err = repo.BranchDiff("base", "nope")
	assert.ErrorIs(t, err, gitinfo.ErrBranchNotFound)
}

func TestParseRemoteURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    gitinfo.RemoteRef
		wantErr bool
	}{
		{
			name: "plain github url",
			raw:  "https://github.com/golang/go",
			want: gitinfo.RemoteRef{CloneURL: "https://github.com/golang/go.git", Owner: "golang", Name: "go"},
		},
		{
			name: "dot git suffix",
			raw:  "https://github.com/golang/go.git",
			want: gitinfo.RemoteRef{CloneURL: "https://github.com/golang/go.git", Owner: "golang", Name: "go"},
		},
		{
			name: "branch pin",
			raw:  "https://github.com/golang/go/tree/release-branch.go1.24",
			want: gitinfo.RemoteRef{
				CloneURL: "https://github.com/golang/go.git",
				Owner:    "golang",
				Name:     "go",
				Branch:   "release-branch.go1.24",
			},
		},
		{
			name: "gitlab host",
			raw:  "https://gitlab.com/acme/tool",
			want: gitinfo.RemoteRef{CloneURL: "https://gitlab.com/acme/tool.git", Owner: "acme", Name: "tool"},
		},
		{name: "local path", raw: "./src", wantErr: true},
		{name: "ssh url", raw: "git@github.com:golang/go.git", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := gitinfo.ParseRemoteURL(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, gitinfo.ErrNotRemoteURL)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package discovery_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptpack/promptpack/internal/discovery"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return root
}

func rels(files []discovery.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Rel
	}

	return out
}

func TestRun_IncludeExclude(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"main.py":       "",
		"util.py":       "",
		"README.md":     "",
		"tests/test.py": "",
	})

	files, err := discovery.Run(discovery.Options{
		Root:    root,
		Include: []string{"**/*.py"},
		Exclude: []string{"tests/**"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"main.py", "util.py"}, rels(files))
}

func TestRun_IncludePriority(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"vendor/keep.py": "",
		"vendor/drop.md": "",
	})

	files, err := discovery.Run(discovery.Options{
		Root:            root,
		Include:         []string{"**/*.py"},
		Exclude:         []string{"vendor/**"},
		IncludePriority: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"vendor/keep.py"}, rels(files))
}

func TestRun_HiddenFiles(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"visible.py":    "",
		".hidden.py":    "",
		".conf/deep.py": "",
	})

	files, err := discovery.Run(discovery.Options{Root: root})
	require.NoError(t, err)
	assert.Equal(t, []string{"visible.py"}, rels(files))

	files, err = discovery.Run(discovery.Options{Root: root, Hidden: true})
	require.NoError(t, err)
	assert.Equal(t, []string{".conf/deep.py", ".hidden.py", "visible.py"}, rels(files))
}

func TestRun_Gitignore(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		".gitignore":       "generated/\n*.log\n",
		"main.py":          "",
		"trace.log":        "",
		"generated/out.py": "",
	})

	files, err := discovery.Run(discovery.Options{Root: root, Hidden: true})
	require.NoError(t, err)
	assert.Equal(t, []string{".gitignore", "main.py"}, rels(files))

	files, err = discovery.Run(discovery.Options{Root: root, Hidden: true, NoIgnore: true})
	require.NoError(t, err)
	assert.Equal(t, []string{".gitignore", "generated/out.py", "main.py", "trace.log"}, rels(files))
}

func TestRun_SortOrders(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"a.py": "",
		"b.py": "",
	})

	older := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "b.py"), older, older))

	files, err := discovery.Run(discovery.Options{Root: root, Sort: "name_desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.py", "a.py"}, rels(files))

	files, err = discovery.Run(discovery.Options{Root: root, Sort: "date_asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.py", "a.py"}, rels(files))

	files, err = discovery.Run(discovery.Options{Root: root, Sort: "date_desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "b.py"}, rels(files))
}

func TestRun_NoMatches(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"main.py": ""})

	_, err := discovery.Run(discovery.Options{Root: root, Include: []string{"**/*.go"}})
	assert.ErrorIs(t, err, discovery.ErrNoFiles)
}

func TestStat(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"pkg/mod.py": "data"})

	file, err := discovery.Stat(root, filepath.Join(root, "pkg", "mod.py"))
	require.NoError(t, err)
	assert.Equal(t, "pkg/mod.py", file.Rel)
	assert.EqualValues(t, 4, file.Size)

	_, err = discovery.Stat(root, filepath.Join(root, "missing.py"))
	assert.Error(t, err)
}

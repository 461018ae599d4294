package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptpack/promptpack/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".promptpack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, ""), "")
	require.NoError(t, err)

	assert.Equal(t, config.FormatMarkdown, cfg.Format)
	assert.Equal(t, config.SortNameAsc, cfg.Sort)
	assert.Equal(t, []string{"src", "lib", "source"}, cfg.Trace.SourceRoots)
	assert.False(t, cfg.Trace.FilterUnused)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
format: xml
line_numbers: true
include:
  - "**/*.py"
trace:
  entries:
    - main.py
  filter_unused: true
`)

	cfg, err := config.Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, config.FormatXML, cfg.Format)
	assert.True(t, cfg.LineNumbers)
	assert.Equal(t, []string{"**/*.py"}, cfg.Include)
	assert.Equal(t, []string{"main.py"}, cfg.Trace.Entries)
	assert.True(t, cfg.Trace.FilterUnused)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PROMPTPACK_FORMAT", "plain")

	cfg, err := config.Load(writeConfig(t, "format: xml\n"), "")
	require.NoError(t, err)

	assert.Equal(t, config.FormatPlain, cfg.Format)
}

func TestLoad_Profile(t *testing.T) {
	path := writeConfig(t, `
format: markdown
profiles:
  review:
    format: xml
    git:
      diff: true
`)

	cfg, err := config.Load(path, "review")
	require.NoError(t, err)

	assert.Equal(t, config.FormatXML, cfg.Format)
	assert.True(t, cfg.Git.Diff)
}

func TestLoad_ProfileNotFound(t *testing.T) {
	_, err := config.Load(writeConfig(t, "format: markdown\n"), "nope")
	assert.ErrorIs(t, err, config.ErrProfileNotFound)
}

func TestLoad_SchemaRejectsUnknownKey(t *testing.T) {
	_, err := config.Load(writeConfig(t, "formt: xml\n"), "")
	assert.ErrorIs(t, err, config.ErrSchemaViolation)
}

func TestLoad_RejectsBadFormat(t *testing.T) {
	t.Setenv("PROMPTPACK_FORMAT", "html")

	_, err := config.Load(writeConfig(t, ""), "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Format: config.FormatMarkdown, Sort: config.SortNameAsc}
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Format = "html"
	assert.ErrorIs(t, bad.Validate(), config.ErrUnknownFormat)

	bad = cfg
	bad.Sort = "size"
	assert.ErrorIs(t, bad.Validate(), config.ErrUnknownSort)

	bad = cfg
	bad.Trace.Workers = -1
	assert.ErrorIs(t, bad.Validate(), config.ErrInvalidWorkers)
}

func TestSaveProfile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".promptpack.yaml")

	cfg := &config.Config{
		Format: config.FormatXML,
		Sort:   config.SortDateDesc,
		Trace:  config.TraceConfig{Entries: []string{"main.py"}},
	}

	require.NoError(t, config.SaveProfile(path, "review", cfg))

	loaded, err := config.Load(path, "review")
	require.NoError(t, err)
	assert.Equal(t, config.FormatXML, loaded.Format)
	assert.Equal(t, config.SortDateDesc, loaded.Sort)
	assert.Equal(t, []string{"main.py"}, loaded.Trace.Entries)

	// A second profile must not clobber the first.
	require.NoError(t, config.SaveProfile(path, "other", &config.Config{Format: config.FormatPlain}))

	loaded, err = config.Load(path, "review")
	require.NoError(t, err)
	assert.Equal(t, config.FormatXML, loaded.Format)
}

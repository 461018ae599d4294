// Package config provides configuration loading, profile merging, and
// validation for promptpack.
package config

import (
	"errors"
	"fmt"
)

// Sentinel validation errors.
var (
	ErrUnknownFormat   = errors.New("unknown output format")
	ErrUnknownSort     = errors.New("unknown sort order")
	ErrProfileNotFound = errors.New("profile not found")
	ErrSchemaViolation = errors.New("configuration schema violation")
	ErrInvalidWorkers  = errors.New("workers must not be negative")
	ErrInvalidMaxFiles = errors.New("max files must not be negative")
	ErrBranchPair      = errors.New("expected exactly two branch names")
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatXML      = "xml"
	FormatPlain    = "plain"
)

// Sort orders for discovered files.
const (
	SortNameAsc  = "name_asc"
	SortNameDesc = "name_desc"
	SortDateAsc  = "date_asc"
	SortDateDesc = "date_desc"
)

// Default configuration values.
const (
	DefaultFormat = FormatMarkdown
	DefaultSort   = SortNameAsc
)

// Config holds all settings for one promptpack invocation.
// Field tags use mapstructure for viper unmarshalling and yaml for
// profile write-back.
type Config struct {
	// Include and Exclude are doublestar glob patterns applied during
	// discovery. Include wins over Exclude when IncludePriority is set.
	Include         []string `mapstructure:"include"          yaml:"include,omitempty"`
	Exclude         []string `mapstructure:"exclude"          yaml:"exclude,omitempty"`
	IncludePriority bool     `mapstructure:"include_priority" yaml:"include_priority,omitempty"`

	// Hidden includes dotfiles; NoIgnore disables .gitignore handling.
	Hidden   bool `mapstructure:"hidden"    yaml:"hidden,omitempty"`
	NoIgnore bool `mapstructure:"no_ignore" yaml:"no_ignore,omitempty"`

	Format        string `mapstructure:"format"         yaml:"format,omitempty"`
	Template      string `mapstructure:"template"       yaml:"template,omitempty"`
	LineNumbers   bool   `mapstructure:"line_numbers"   yaml:"line_numbers,omitempty"`
	AbsolutePaths bool   `mapstructure:"absolute_paths" yaml:"absolute_paths,omitempty"`
	NoCodeblock   bool   `mapstructure:"no_codeblock"   yaml:"no_codeblock,omitempty"`
	Sort          string `mapstructure:"sort"           yaml:"sort,omitempty"`

	Output OutputConfig `mapstructure:"output" yaml:"output,omitempty"`
	Git    GitConfig    `mapstructure:"git"    yaml:"git,omitempty"`
	Trace  TraceConfig  `mapstructure:"trace"  yaml:"trace,omitempty"`
}

// OutputConfig selects where the rendered pack goes.
type OutputConfig struct {
	File      string `mapstructure:"file"      yaml:"file,omitempty"`
	Clipboard bool   `mapstructure:"clipboard" yaml:"clipboard,omitempty"`
	// Plot is an HTML file path for the dependency graph chart.
	Plot string `mapstructure:"plot" yaml:"plot,omitempty"`
}

// GitConfig selects which repository sections are rendered.
type GitConfig struct {
	Diff         bool     `mapstructure:"diff"          yaml:"diff,omitempty"`
	DiffBranches []string `mapstructure:"diff_branches" yaml:"diff_branches,omitempty"`
	LogBranches  []string `mapstructure:"log_branches"  yaml:"log_branches,omitempty"`
}

// TraceConfig configures static dependency resolution.
type TraceConfig struct {
	// Entries are the traversal entry files, relative to the project root.
	Entries      []string `mapstructure:"entries"       yaml:"entries,omitempty"`
	SourceRoots  []string `mapstructure:"source_roots"  yaml:"source_roots,omitempty"`
	ExcludedDirs []string `mapstructure:"excluded_dirs" yaml:"excluded_dirs,omitempty"`
	FilterUnused bool     `mapstructure:"filter_unused" yaml:"filter_unused,omitempty"`
	MaxFiles     int      `mapstructure:"max_files"     yaml:"max_files,omitempty"`
	Workers      int      `mapstructure:"workers"       yaml:"workers,omitempty"`
}

// Validate checks cross-field constraints not expressible in the schema.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatMarkdown, FormatXML, FormatPlain:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, c.Format)
	}

	switch c.Sort {
	case SortNameAsc, SortNameDesc, SortDateAsc, SortDateDesc:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSort, c.Sort)
	}

	if c.Trace.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Trace.Workers)
	}

	if c.Trace.MaxFiles < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxFiles, c.Trace.MaxFiles)
	}

	if n := len(c.Git.DiffBranches); n != 0 && n != 2 {
		return fmt.Errorf("%w: git.diff_branches has %d", ErrBranchPair, n)
	}

	if n := len(c.Git.LogBranches); n != 0 && n != 2 {
		return fmt.Errorf("%w: git.log_branches has %d", ErrBranchPair, n)
	}

	return nil
}

// Package discovery walks a project tree and selects the files that enter
// the pack, honoring glob patterns, dotfile policy, and .gitignore rules.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
)

// ErrNoFiles is returned when discovery selects nothing.
var ErrNoFiles = errors.New("no files matched")

// gitDir is never descended into regardless of other settings.
const gitDir = ".git"

// File is one selected file with the metadata sorting and reporting need.
type File struct {
	// Path is absolute; Rel is slash-separated and relative to the root.
	Path    string
	Rel     string
	Size    int64
	ModTime time.Time
}

// Options configures one discovery run.
type Options struct {
	// Root is the directory to walk.
	Root string
	// Include and Exclude are doublestar patterns matched against the
	// slash-separated path relative to Root.
	Include []string
	Exclude []string
	// IncludePriority makes Include win when a path matches both lists.
	IncludePriority bool
	// Hidden selects dotfiles and files under dot-directories.
	Hidden bool
	// NoIgnore disables .gitignore handling.
	NoIgnore bool
	// Sort is one of name_asc, name_desc, date_asc, date_desc.
	// Empty means name_asc.
	Sort   string
	Logger *slog.Logger
}

// Run walks opts.Root and returns the selected files in the requested
// order.
func Run(opts Options) ([]File, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	matcher := newMatcher(root, opts, log)

	var files []File

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}

		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if matcher.skipDir(rel, entry.Name()) {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		if !matcher.selects(rel, entry.Name()) {
			return nil
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			log.Debug("stat failed, file skipped", "path", path, "error", infoErr)

			return nil
		}

		files = append(files, File{Path: path, Rel: rel, Size: info.Size(), ModTime: info.ModTime()})

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	sortFiles(files, opts.Sort)

	return files, nil
}

// matcher bundles the per-file selection rules.
type matcher struct {
	opts   Options
	ignore gitignore.Matcher
}

func newMatcher(root string, opts Options, log *slog.Logger) *matcher {
	m := &matcher{opts: opts}

	if !opts.NoIgnore {
		patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
		if err != nil {
			log.Debug("gitignore patterns unavailable", "root", root, "error", err)
		} else if len(patterns) > 0 {
			m.ignore = gitignore.NewMatcher(patterns)
		}
	}

	return m
}

// skipDir reports whether a directory subtree is pruned outright.
func (m *matcher) skipDir(rel, name string) bool {
	if name == gitDir {
		return true
	}

	if !m.opts.Hidden && strings.HasPrefix(name, ".") {
		return true
	}

	// Excluded directories are only pruned when no include pattern could
	// still match something beneath them.
	if m.ignored(rel, true) && !m.opts.IncludePriority {
		return true
	}

	return m.excluded(rel+"/") && !m.opts.IncludePriority
}

// selects applies the full rule chain to one regular file.
func (m *matcher) selects(rel, name string) bool {
	if !m.opts.Hidden && strings.HasPrefix(name, ".") {
		return false
	}

	included := m.included(rel)

	if len(m.opts.Include) > 0 && !included {
		return false
	}

	if m.opts.IncludePriority && included {
		return true
	}

	if m.ignored(rel, false) {
		return false
	}

	return !m.excluded(rel)
}

func (m *matcher) included(rel string) bool {
	return matchAny(m.opts.Include, rel)
}

func (m *matcher) excluded(rel string) bool {
	return matchAny(m.opts.Exclude, rel)
}

func (m *matcher) ignored(rel string, isDir bool) bool {
	if m.ignore == nil {
		return false
	}

	return m.ignore.Match(strings.Split(rel, "/"), isDir)
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}

	return false
}

func sortFiles(files []File, order string) {
	switch order {
	case "name_desc":
		sort.Slice(files, func(i, j int) bool { return files[i].Rel > files[j].Rel })
	case "date_asc":
		sort.Slice(files, func(i, j int) bool {
			if files[i].ModTime.Equal(files[j].ModTime) {
				return files[i].Rel < files[j].Rel
			}

			return files[i].ModTime.Before(files[j].ModTime)
		})
	case "date_desc":
		sort.Slice(files, func(i, j int) bool {
			if files[i].ModTime.Equal(files[j].ModTime) {
				return files[i].Rel < files[j].Rel
			}

			return files[i].ModTime.After(files[j].ModTime)
		})
	default:
		sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	}
}

// Stat converts a known path into a File, for entries that arrive from
// dependency tracing rather than the walk.
func Stat(root, path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}

	rel, relErr := filepath.Rel(root, path)
	if relErr != nil {
		rel = path
	}

	return File{Path: path, Rel: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()}, nil
}

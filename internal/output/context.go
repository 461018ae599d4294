// Package output renders discovered files, git context, and the dependency
// graph into the final pack, and delivers it to stdout, a file, or the
// clipboard.
package output

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/src-d/enry/v2"

	"github.com/promptpack/promptpack/internal/chunk"
	"github.com/promptpack/promptpack/internal/discovery"
	"github.com/promptpack/promptpack/internal/gitinfo"
	"github.com/promptpack/promptpack/pkg/trace"
)

// FileSection is one file prepared for rendering.
type FileSection struct {
	// Rel is the slash-separated project-relative path; DisplayPath is what
	// templates print and follows the absolute-paths setting.
	Rel         string
	DisplayPath string
	// Language is the enry detection result, lowercased for fence tags.
	Language string
	Content  string
	Size     int64
	// Chunks holds top-level definitions for Python files; nil otherwise.
	Chunks []chunk.Chunk
}

// GitSection holds the optional repository context.
type GitSection struct {
	Staged []gitinfo.Change
	Diff   string
	Log    []string
}

// PackContext is the root object handed to templates.
type PackContext struct {
	Project     string
	GeneratedAt time.Time
	Tree        string
	Files       []FileSection
	Git         *GitSection
	Graph       *trace.Graph
	Summary     *trace.Summary
	// NoCodeblock suppresses fenced code blocks in the markdown preset.
	NoCodeblock bool
}

// ContextOptions controls how file content is prepared.
type ContextOptions struct {
	Root          string
	LineNumbers   bool
	AbsolutePaths bool
	// SplitPython attaches chunk lists to Python files.
	SplitPython bool
	Logger      *slog.Logger
}

// BuildContext reads every file and assembles the template context.
// Binary files are dropped with a debug log line.
func BuildContext(files []discovery.File, opts ContextOptions) (*PackContext, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	ctx := &PackContext{
		Project:     filepath.Base(root),
		GeneratedAt: time.Now(),
		Tree:        renderTree(files),
	}

	for _, file := range files {
		content, readErr := os.ReadFile(file.Path)
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", file.Path, readErr)
		}

		if enry.IsBinary(content) {
			log.Debug("binary file dropped from pack", "path", file.Rel)

			continue
		}

		section := FileSection{
			Rel:         file.Rel,
			DisplayPath: file.Rel,
			Language:    languageTag(file.Rel, content),
			Size:        file.Size,
		}

		if opts.AbsolutePaths {
			section.DisplayPath = filepath.ToSlash(file.Path)
		}

		text := string(content)
		if opts.LineNumbers {
			text = numberLines(text)
		}

		section.Content = strings.TrimRight(text, "\n")

		if opts.SplitPython && strings.HasSuffix(file.Rel, ".py") {
			chunks, chunkErr := chunk.SplitPython(file.Path, content)
			if chunkErr != nil {
				log.Debug("chunking failed, file rendered whole", "path", file.Rel, "error", chunkErr)
			} else {
				section.Chunks = chunks
			}
		}

		ctx.Files = append(ctx.Files, section)
	}

	return ctx, nil
}

// languageTag returns the lowercased enry language name, falling back to
// the bare extension.
func languageTag(rel string, content []byte) string {
	if lang := enry.GetLanguage(filepath.Base(rel), content); lang != enry.OtherLanguage {
		return strings.ToLower(lang)
	}

	return strings.TrimPrefix(filepath.Ext(rel), ".")
}

// numberLines prefixes each line with a right-aligned 1-based number.
func numberLines(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	width := len(fmt.Sprintf("%d", len(lines)))

	var b strings.Builder

	for i, line := range lines {
		fmt.Fprintf(&b, "%*d | %s\n", width, i+1, line)
	}

	return b.String()
}

// renderTree draws the selected files as an indented directory tree.
func renderTree(files []discovery.File) string {
	type dirNode struct {
		dirs  map[string]*dirNode
		files []string
	}

	newNode := func() *dirNode { return &dirNode{dirs: map[string]*dirNode{}} }
	root := newNode()

	for _, file := range files {
		parts := strings.Split(file.Rel, "/")
		node := root

		for _, part := range parts[:len(parts)-1] {
			next, ok := node.dirs[part]
			if !ok {
				next = newNode()
				node.dirs[part] = next
			}

			node = next
		}

		node.files = append(node.files, parts[len(parts)-1])
	}

	var b strings.Builder

	var walk func(node *dirNode, indent string)

	walk = func(node *dirNode, indent string) {
		names := make([]string, 0, len(node.dirs))
		for name := range node.dirs {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			fmt.Fprintf(&b, "%s%s/\n", indent, name)
			walk(node.dirs[name], indent+"  ")
		}

		sort.Strings(node.files)

		for _, name := range node.files {
			fmt.Fprintf(&b, "%s%s\n", indent, name)
		}
	}

	walk(root, "")

	return strings.TrimRight(b.String(), "\n")
}

package trace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// DefaultSourceRoots are the conventional alternate source root directory
// names probed under the project root, in resolution order.
var DefaultSourceRoots = []string{"src", "lib", "source"}

// DefaultExcludedDirs are directory names never traversed into: virtual
// environments, dependency caches, VCS metadata, and build output.
var DefaultExcludedDirs = []string{
	".venv", "venv", ".env", "env", "__pycache__", ".git", ".hg",
	"node_modules", ".tox", ".nox", "site-packages", "dist-packages",
	"build", "dist",
}

// NodeState tracks one file through a resolution run.
type NodeState int

// Traversal states. Done and Failed are terminal; a file is never
// re-processed once it reaches either, which is what makes cyclic import
// graphs terminate.
const (
	StatePending NodeState = iota
	StateProcessing
	StateDone
	StateFailed
)

// Options configures one Engine instance.
type Options struct {
	// ProjectRoot bounds internal resolution; resolved paths outside it are
	// classified Unresolved and never followed.
	ProjectRoot string
	// SourceRoots are alternate source root directory names relative to
	// ProjectRoot. Defaults to DefaultSourceRoots; only existing
	// directories are consulted.
	SourceRoots []string
	// ExcludedDirs are directory names whose contents are never enqueued.
	// Defaults to DefaultExcludedDirs.
	ExcludedDirs []string
	// FilterUnused enables symbol-usage filtering: imports whose bound
	// names are never referenced are reported as skipped edges and their
	// targets are not traversed. Star imports always traverse.
	FilterUnused bool
	// MaxFiles caps the number of discovered files. Zero means no limit.
	// Hitting the cap stops further enqueueing and flags the result.
	MaxFiles int
	// Workers bounds parallel per-file extraction. Zero means GOMAXPROCS.
	Workers int
	// Registry supplies language implementations. Defaults to
	// DefaultRegistry.
	Registry *Registry
	// Logger receives per-file progress at debug level.
	Logger *slog.Logger
}

// Engine owns all mutable traversal state for one resolution run. It is not
// safe for concurrent use, but independent engines may run concurrently.
type Engine struct {
	opts     Options
	rctx     ResolveContext
	excluded map[string]bool
	log      *slog.Logger

	states   map[string]NodeState
	order    []string
	worklist []string

	edges          map[string][]*Edge
	edgeIndex      map[string]map[string]*Edge
	skipped        []Edge
	externals      *orderedSet
	stdlib         *orderedSet
	failures       []FileFailure
	unresolvedRefs []UnresolvedReference
	limitHit       bool
}

// UnresolvedReference records an import specifier that could not be mapped
// to any classification. It is reported, never silently dropped.
type UnresolvedReference struct {
	File   string `json:"file" yaml:"file"`
	Module string `json:"module" yaml:"module"`
	Line   int    `json:"line" yaml:"line"`
}

// NewEngine builds an engine for one run rooted at opts.ProjectRoot.
func NewEngine(opts Options) (*Engine, error) {
	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	opts.ProjectRoot = root

	if opts.SourceRoots == nil {
		opts.SourceRoots = DefaultSourceRoots
	}

	if opts.ExcludedDirs == nil {
		opts.ExcludedDirs = DefaultExcludedDirs
	}

	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	rctx := ResolveContext{ProjectRoot: root, SearchRoots: []string{root}}

	for _, name := range opts.SourceRoots {
		candidate := filepath.Join(root, name)
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
			rctx.SearchRoots = append(rctx.SearchRoots, candidate)
		}
	}

	excluded := make(map[string]bool, len(opts.ExcludedDirs))
	for _, name := range opts.ExcludedDirs {
		excluded[name] = true
	}

	return &Engine{
		opts:      opts,
		rctx:      rctx,
		excluded:  excluded,
		log:       opts.Logger,
		states:    make(map[string]NodeState),
		edges:     make(map[string][]*Edge),
		edgeIndex: make(map[string]map[string]*Edge),
		externals: newOrderedSet(),
		stdlib:    newOrderedSet(),
	}, nil
}

// scan is the per-file extraction outcome folded back into the engine.
type scan struct {
	path  string
	stmts []ImportStatement
	used  map[string]bool
	err   error
}

// Trace runs the worklist to completion from the given entry files and
// assembles the dependency graph. Per-file failures are recorded on the
// affected node; an error is returned only when no entry file could be
// scheduled at all.
func (e *Engine) Trace(ctx context.Context, entries []string) (*Result, error) {
	for _, entry := range entries {
		abs, err := filepath.Abs(entry)
		if err != nil || !fileExists(abs) {
			e.failures = append(e.failures, FileFailure{Path: entry, Reason: "entry file not found"})

			continue
		}

		if !e.opts.Registry.Supported(abs) {
			e.failures = append(e.failures, FileFailure{Path: entry, Reason: ErrUnknownLanguage.Error()})

			continue
		}

		e.enqueue(abs)
	}

	if len(e.order) == 0 {
		return nil, ErrNoEntryFiles
	}

	for len(e.worklist) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("trace aborted: %w", err)
		}

		batch := e.worklist
		e.worklist = nil

		for _, path := range batch {
			e.states[path] = StateProcessing
		}

		for _, result := range e.scanBatch(batch) {
			e.fold(result)
		}
	}

	return e.assemble(), nil
}

// scanBatch extracts imports (and usage, in filtering mode) for a batch of
// pending files in parallel. Extraction is a pure per-file function; all
// enqueue decisions happen later in fold, on the engine goroutine, so
// traversal order stays deterministic.
func (e *Engine) scanBatch(batch []string) []scan {
	results := make([]scan, len(batch))

	workers := e.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	if workers > len(batch) {
		workers = len(batch)
	}

	indexes := make(chan int)

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range indexes {
				results[i] = e.scanFile(batch[i])
			}
		}()
	}

	for i := range batch {
		indexes <- i
	}

	close(indexes)
	wg.Wait()

	return results
}

// scanFile reads and parses one file. Read and parse failures are data, not
// run-level errors.
func (e *Engine) scanFile(path string) scan {
	result := scan{path: path}

	lang := e.opts.Registry.ForFile(path)
	if lang == nil {
		result.err = ErrUnknownLanguage

		return result
	}

	content, err := os.ReadFile(path)
	if err != nil {
		result.err = err

		return result
	}

	result.stmts, result.err = lang.ExtractImports(path, content)
	if result.err != nil {
		return result
	}

	if e.opts.FilterUnused {
		result.used, result.err = lang.UsedSymbols(path, content, result.stmts)
	}

	return result
}

// fold applies one scan result to the traversal state: records edges and
// reference classifications, and enqueues newly discovered internal files.
func (e *Engine) fold(result scan) {
	if result.err != nil {
		e.states[result.path] = StateFailed
		e.failures = append(e.failures, FileFailure{Path: result.path, Reason: result.err.Error()})
		e.log.Debug("file scan failed", "path", result.path, "reason", result.err)

		return
	}

	lang := e.opts.Registry.ForFile(result.path)

	for _, stmt := range result.stmts {
		ref := lang.Resolve(stmt, e.rctx)

		switch ref.Kind {
		case KindExternal:
			e.externals.add(ref.Module)
		case KindStdlib:
			e.stdlib.add(ref.Module)
		case KindUnresolved:
			e.unresolvedRefs = append(e.unresolvedRefs, UnresolvedReference{
				File: result.path, Module: stmt.Module, Line: stmt.Line,
			})
		case KindInternalFile, KindInternalPackage:
			e.foldInternal(result, stmt, ref)
		}
	}

	e.states[result.path] = StateDone
}

// foldInternal records an internal edge and decides whether the target
// enters the worklist.
func (e *Engine) foldInternal(result scan, stmt ImportStatement, ref Reference) {
	target := filepath.Clean(ref.Path)

	if target == result.path {
		return
	}

	if e.isExcluded(target) {
		e.log.Debug("target under excluded directory", "path", target)

		return
	}

	if e.opts.FilterUnused && !stmt.Star && !allUsed(stmt.BoundNames(), result.used) {
		e.skipped = append(e.skipped, Edge{
			From:    result.path,
			To:      target,
			Kind:    ref.Kind,
			KindStr: ref.Kind.String(),
			Symbols: stmt.BoundNames(),
			Line:    stmt.Line,
		})

		return
	}

	e.recordEdge(result.path, target, ref.Kind, stmt)

	if _, seen := e.states[target]; seen {
		return
	}

	if e.opts.MaxFiles > 0 && len(e.order) >= e.opts.MaxFiles {
		e.limitHit = true

		return
	}

	e.enqueue(target)
}

// recordEdge merges duplicate edges between the same two files, retaining
// every contributing symbol name.
func (e *Engine) recordEdge(from, to string, kind RefKind, stmt ImportStatement) {
	byTarget, ok := e.edgeIndex[from]
	if !ok {
		byTarget = make(map[string]*Edge)
		e.edgeIndex[from] = byTarget
	}

	edge, ok := byTarget[to]
	if !ok {
		edge = &Edge{From: from, To: to, Kind: kind, KindStr: kind.String(), Line: stmt.Line}
		byTarget[to] = edge
		e.edges[from] = append(e.edges[from], edge)
	}

	for _, symbol := range stmt.BoundNames() {
		if !containsString(edge.Symbols, symbol) {
			edge.Symbols = append(edge.Symbols, symbol)
		}
	}
}

// enqueue inserts a file as Pending. A path is inserted at most once per
// run; insertion order defines discovery order.
func (e *Engine) enqueue(path string) {
	if _, seen := e.states[path]; seen {
		return
	}

	e.states[path] = StatePending
	e.order = append(e.order, path)
	e.worklist = append(e.worklist, path)
}

// isExcluded reports whether any path component under the project root is
// an excluded directory name.
func (e *Engine) isExcluded(path string) bool {
	rel, err := filepath.Rel(e.rctx.ProjectRoot, path)
	if err != nil {
		return false
	}

	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if e.excluded[part] {
			return true
		}
	}

	return false
}

// allUsed reports whether every bound name is referenced outside the import
// itself. An empty binding set counts as used.
func allUsed(names []string, used map[string]bool) bool {
	for _, name := range names {
		if !used[name] {
			return false
		}
	}

	return true
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}

	return false
}

// orderedSet is a string set that remembers insertion order, so counts and
// listings stay deterministic across runs.
type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (s *orderedSet) add(item string) {
	if s.seen[item] {
		return
	}

	s.seen[item] = true
	s.items = append(s.items, item)
}

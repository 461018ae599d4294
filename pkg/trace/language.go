package trace

import (
	"path/filepath"
	"strings"
)

// ResolveContext carries the filesystem layout one resolution run operates
// against. SearchRoots holds the project root first, then each existing
// alternate source root in declared order; the first root that matches a
// specifier wins and no later root is consulted.
type ResolveContext struct {
	ProjectRoot string
	SearchRoots []string
}

// Language is the per-language capability bundle the traversal engine
// depends on. Implementations are stateless; every method is a pure function
// of its arguments and may be called concurrently across files.
type Language interface {
	// Name returns the language identifier, e.g. "python".
	Name() string
	// Extensions returns the file extensions (with leading dot) the
	// implementation claims.
	Extensions() []string
	// ExtractImports parses file text into its lexical import statements,
	// top to bottom, including imports nested inside function or class
	// bodies. A *ParseError is returned for unparseable text.
	ExtractImports(path string, content []byte) ([]ImportStatement, error)
	// UsedSymbols reports, per imported local name, whether the name is
	// referenced anywhere outside the import statements themselves.
	UsedSymbols(path string, content []byte, stmts []ImportStatement) (map[string]bool, error)
	// Resolve maps one import statement to exactly one Reference.
	Resolve(stmt ImportStatement, rctx ResolveContext) Reference
}

// Registry maps file extensions to language implementations.
type Registry struct {
	byExt map[string]Language
}

// NewRegistry builds a registry over the given languages. Later languages
// win extension conflicts.
func NewRegistry(langs ...Language) *Registry {
	reg := &Registry{byExt: make(map[string]Language)}

	for _, lang := range langs {
		for _, ext := range lang.Extensions() {
			reg.byExt[strings.ToLower(ext)] = lang
		}
	}

	return reg
}

// DefaultRegistry returns a registry with every built-in language.
func DefaultRegistry() *Registry {
	return NewRegistry(NewPython(), NewJavaScript())
}

// ForFile returns the language claiming the file's extension, or nil.
func (r *Registry) ForFile(path string) Language {
	return r.byExt[strings.ToLower(filepath.Ext(path))]
}

// Supported reports whether any language claims the file's extension.
func (r *Registry) Supported(path string) bool {
	return r.ForFile(path) != nil
}

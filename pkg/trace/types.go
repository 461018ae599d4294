// Package trace implements static import tracing: starting from entry files
// it discovers every in-project file transitively reachable through import
// statements, without executing any code, and assembles the result into a
// deterministic dependency graph.
package trace

// ImportedName is one (local, origin) binding introduced by an import
// statement. Local is the name bound in the importing file; Origin is the
// name in the imported module. For unaliased imports the two are equal.
type ImportedName struct {
	Local  string
	Origin string
}

// ImportStatement is a single lexical import occurrence in a source file.
// It is produced by a language's extractor and consumed immediately by the
// resolver and usage analyzer; it is not retained in the final graph.
type ImportStatement struct {
	// SourceFile is the path of the file the statement appears in.
	SourceFile string
	// Module is the raw module specifier as written, e.g. "pkg.sub.mod"
	// or "./util". Empty for "from . import x" style imports.
	Module string
	// Names are the bindings introduced, in lexical order. Empty when the
	// whole module is bound to a single name (plain "import x").
	Names []ImportedName
	// Star reports a wildcard import binding an unknown set of names.
	Star bool
	// Relative reports a relative (dot-prefixed) specifier.
	Relative bool
	// RelativeLevel counts leading path-up markers; 1 means the importing
	// file's own directory. Zero for absolute imports.
	RelativeLevel int
	// Line is the 1-based line the statement starts on.
	Line int
}

// RefKind classifies the outcome of resolving one import statement.
type RefKind int

// Resolution outcomes. Exactly one kind is assigned per import statement.
const (
	KindUnresolved RefKind = iota
	KindInternalFile
	KindInternalPackage
	KindExternal
	KindStdlib
)

// String returns the report label for the kind.
func (k RefKind) String() string {
	switch k {
	case KindInternalFile:
		return "internal-file"
	case KindInternalPackage:
		return "internal-package"
	case KindExternal:
		return "external"
	case KindStdlib:
		return "stdlib"
	case KindUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Internal reports whether the kind names an in-project file.
func (k RefKind) Internal() bool {
	return k == KindInternalFile || k == KindInternalPackage
}

// Reference is the outcome of resolving one ImportStatement.
type Reference struct {
	Kind RefKind
	// Path is the resolved absolute file path. Set only for internal kinds;
	// for package matches it is the package marker file, not the directory.
	Path string
	// Module is the specifier the reference was resolved from.
	Module string
}

// Edge is one collapsed file-to-file dependency in the final graph.
// Duplicate edges between the same two files are merged; Symbols retains
// every contributing imported name for reporting.
type Edge struct {
	From    string   `json:"from" yaml:"from"`
	To      string   `json:"to" yaml:"to"`
	Kind    RefKind  `json:"-" yaml:"-"`
	KindStr string   `json:"kind" yaml:"kind"`
	Symbols []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Line    int      `json:"line" yaml:"line"`
}

// FileFailure records a per-file recoverable failure. The file stays in the
// graph as an isolated node with no outgoing edges.
type FileFailure struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

package trace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// pythonMarker designates a directory as an importable package.
const pythonMarker = "__init__.py"

// Python traces Python imports: plain imports, from-imports, aliased and
// wildcard forms, and relative dot-prefixed specifiers.
type Python struct {
	parsers *parserPool
}

// NewPython returns the Python language implementation.
func NewPython() *Python {
	return &Python{
		parsers: newParserPool(sitter.NewLanguage(python.GetLanguage())),
	}
}

// Name implements Language.
func (p *Python) Name() string { return "python" }

// Extensions implements Language.
func (p *Python) Extensions() []string { return []string{".py", ".pyi"} }

// pythonImportNodes are the statement node types that introduce bindings.
// Subtrees under them are never descended into.
var pythonImportNodes = map[string]bool{
	"import_statement":        true,
	"import_from_statement":   true,
	"future_import_statement": true,
}

// ExtractImports implements Language. Imports nested inside function or
// class bodies are reported the same as top-level ones.
func (p *Python) ExtractImports(path string, content []byte) ([]ImportStatement, error) {
	tree, err := p.parsers.parse(content)
	if err != nil {
		return nil, &ParseError{Path: path}
	}
	defer tree.Close()

	root := tree.RootNode()
	if perr := findSyntaxError(root, path); perr != nil {
		return nil, perr
	}

	var stmts []ImportStatement

	walkNamed(root, func(n sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			stmts = append(stmts, p.plainImports(n, path, content)...)
		case "import_from_statement", "future_import_statement":
			stmts = append(stmts, p.fromImport(n, path, content))
		default:
			return true
		}

		return false
	})

	return stmts, nil
}

// plainImports handles "import a.b, c.d as e": one statement per module.
func (p *Python) plainImports(n sitter.Node, path string, src []byte) []ImportStatement {
	var stmts []ImportStatement

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)

		stmt := ImportStatement{SourceFile: path, Line: nodeLine(n)}

		switch child.Type() {
		case "dotted_name":
			stmt.Module = nodeText(child, src)
		case "aliased_import":
			stmt.Module = nodeText(child.ChildByFieldName("name"), src)
			alias := nodeText(child.ChildByFieldName("alias"), src)
			stmt.Names = []ImportedName{{Local: alias, Origin: stmt.Module}}
		default:
			continue
		}

		stmts = append(stmts, stmt)
	}

	return stmts
}

// fromImport handles "from X import a, b as c" and "from . import x".
func (p *Python) fromImport(n sitter.Node, path string, src []byte) ImportStatement {
	stmt := ImportStatement{SourceFile: path, Line: nodeLine(n)}

	moduleNode := n.ChildByFieldName("module_name")
	moduleStart := uint(0)

	if !moduleNode.IsNull() {
		moduleStart = moduleNode.StartByte()

		if moduleNode.Type() == "relative_import" {
			raw := nodeText(moduleNode, src)
			trimmed := strings.TrimLeft(raw, ".")
			stmt.Relative = true
			stmt.RelativeLevel = len(raw) - len(trimmed)
			stmt.Module = trimmed
		} else {
			stmt.Module = nodeText(moduleNode, src)
		}
	}

	if n.Type() == "future_import_statement" {
		stmt.Module = "__future__"
	}

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)
		if !moduleNode.IsNull() && child.StartByte() == moduleStart {
			continue
		}

		switch child.Type() {
		case "wildcard_import":
			stmt.Star = true
		case "dotted_name":
			name := nodeText(child, src)
			stmt.Names = append(stmt.Names, ImportedName{Local: name, Origin: name})
		case "aliased_import":
			origin := nodeText(child.ChildByFieldName("name"), src)
			alias := nodeText(child.ChildByFieldName("alias"), src)
			stmt.Names = append(stmt.Names, ImportedName{Local: alias, Origin: origin})
		}
	}

	return stmt
}

// UsedSymbols implements Language. A name counts as used when it appears as
// an identifier anywhere outside the import statements themselves; that
// covers bare references, attribute-access bases, and type annotations.
func (p *Python) UsedSymbols(path string, content []byte, stmts []ImportStatement) (map[string]bool, error) {
	tree, err := p.parsers.parse(content)
	if err != nil {
		return nil, &ParseError{Path: path}
	}
	defer tree.Close()

	seen := make(map[string]bool)

	walkNamed(tree.RootNode(), func(n sitter.Node) bool {
		typ := n.Type()
		if pythonImportNodes[typ] {
			return false
		}

		if typ == "identifier" {
			seen[nodeText(n, content)] = true
		}

		return true
	})

	used := make(map[string]bool)

	for _, stmt := range stmts {
		for _, local := range stmt.BoundNames() {
			used[local] = used[local] || seen[local]
		}
	}

	return used, nil
}

// Resolve implements Language.
func (p *Python) Resolve(stmt ImportStatement, rctx ResolveContext) Reference {
	if stmt.Relative {
		return p.resolveRelative(stmt, rctx)
	}

	parts := strings.Split(stmt.Module, ".")

	for _, root := range rctx.SearchRoots {
		if ref, ok := probePython(root, parts, rctx.ProjectRoot, stmt.Module); ok {
			return ref
		}
	}

	if pythonStdlib[parts[0]] {
		return Reference{Kind: KindStdlib, Module: stmt.Module}
	}

	return Reference{Kind: KindExternal, Module: stmt.Module}
}

// resolveRelative walks up RelativeLevel directories from the owning file
// and resolves the remaining dotted specifier beneath the landing directory.
// A walk that would ascend above the project root is Unresolved.
func (p *Python) resolveRelative(stmt ImportStatement, rctx ResolveContext) Reference {
	unresolved := Reference{Kind: KindUnresolved, Module: stmt.Module}

	base := filepath.Dir(stmt.SourceFile)

	for range stmt.RelativeLevel - 1 {
		if !isWithin(rctx.ProjectRoot, filepath.Dir(base)) {
			return unresolved
		}

		base = filepath.Dir(base)
	}

	if !isWithin(rctx.ProjectRoot, base) {
		return unresolved
	}

	if stmt.Module == "" {
		marker := filepath.Join(base, pythonMarker)
		if fileExists(marker) {
			return Reference{Kind: KindInternalPackage, Path: marker, Module: stmt.Module}
		}

		return unresolved
	}

	if ref, ok := probePython(base, strings.Split(stmt.Module, "."), rctx.ProjectRoot, stmt.Module); ok {
		return ref
	}

	return unresolved
}

// probePython checks one search root for a module file or a package marker.
// The file form wins over the package form within a root.
func probePython(base string, parts []string, projectRoot, module string) (Reference, bool) {
	stem := filepath.Join(append([]string{base}, parts...)...)

	if candidate := stem + ".py"; fileExists(candidate) && isWithin(projectRoot, candidate) {
		return Reference{Kind: KindInternalFile, Path: candidate, Module: module}, true
	}

	if marker := filepath.Join(stem, pythonMarker); fileExists(marker) && isWithin(projectRoot, marker) {
		return Reference{Kind: KindInternalPackage, Path: marker, Module: module}, true
	}

	return Reference{}, false
}

// BoundNames returns the local names an import statement binds: the explicit
// bindings when present, otherwise the module's first segment for plain
// absolute imports. Star imports bind an unknown surface and return nil, as
// do bindingless statements such as bare side-effect imports of a relative
// specifier, which introduce no name usage analysis could observe.
func (s ImportStatement) BoundNames() []string {
	if s.Star {
		return nil
	}

	if len(s.Names) > 0 {
		locals := make([]string, len(s.Names))
		for i, n := range s.Names {
			locals[i] = n.Local
		}

		return locals
	}

	if s.Module == "" || s.Relative {
		return nil
	}

	first, _, _ := strings.Cut(s.Module, ".")
	if first == "" {
		return nil
	}

	return []string{first}
}

// fileExists reports whether path names a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

// isWithin reports whether path is root itself or located beneath it.
func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}

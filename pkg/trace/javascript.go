package trace

import (
	"path/filepath"
	"strings"

	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/tsx"
	"github.com/alexaandru/go-sitter-forest/typescript"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// jsSourceExts are the extensions probed when a specifier omits one, in
// resolution order.
var jsSourceExts = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx"}

// JavaScript traces ES module imports, re-exports, and literal require
// calls across JavaScript and TypeScript sources. The matching tree-sitter
// grammar is picked per file extension.
type JavaScript struct {
	js  *parserPool
	ts  *parserPool
	tsx *parserPool
}

// NewJavaScript returns the JavaScript/TypeScript language implementation.
func NewJavaScript() *JavaScript {
	return &JavaScript{
		js:  newParserPool(sitter.NewLanguage(javascript.GetLanguage())),
		ts:  newParserPool(sitter.NewLanguage(typescript.GetLanguage())),
		tsx: newParserPool(sitter.NewLanguage(tsx.GetLanguage())),
	}
}

// Name implements Language.
func (j *JavaScript) Name() string { return "javascript" }

// Extensions implements Language.
func (j *JavaScript) Extensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}
}

func (j *JavaScript) poolFor(path string) *parserPool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return j.ts
	case ".tsx":
		return j.tsx
	default:
		return j.js
	}
}

// ExtractImports implements Language.
func (j *JavaScript) ExtractImports(path string, content []byte) ([]ImportStatement, error) {
	tree, err := j.poolFor(path).parse(content)
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
			stmts = append(stmts, j.importStatement(n, path, content))

			return false
		case "export_statement":
			if stmt, ok := j.reExport(n, path, content); ok {
				stmts = append(stmts, stmt)

				return false
			}

			return true
		case "call_expression":
			if stmt, ok := j.requireCall(n, path, content); ok {
				stmts = append(stmts, stmt)
			}

			return true
		default:
			return true
		}
	})

	return stmts, nil
}

// importStatement handles default, namespace, named, and bare side-effect
// import declarations.
func (j *JavaScript) importStatement(n sitter.Node, path string, src []byte) ImportStatement {
	stmt := ImportStatement{
		SourceFile: path,
		Module:     stringLiteral(n.ChildByFieldName("source"), src),
		Line:       nodeLine(n),
	}
	markRelative(&stmt)

	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)
		if child.Type() != "import_clause" {
			continue
		}

		for cIdx := range child.NamedChildCount() {
			clause := child.NamedChild(cIdx)

			switch clause.Type() {
			case "identifier":
				name := nodeText(clause, src)
				stmt.Names = append(stmt.Names, ImportedName{Local: name, Origin: "default"})
			case "namespace_import":
				for nsIdx := range clause.NamedChildCount() {
					if ns := clause.NamedChild(nsIdx); ns.Type() == "identifier" {
						stmt.Names = append(stmt.Names, ImportedName{Local: nodeText(ns, src), Origin: "*"})
					}
				}
			case "named_imports":
				stmt.Names = append(stmt.Names, namedSpecifiers(clause, "import_specifier", src)...)
			}
		}
	}

	// A bare side-effect import binds no names; it loads the module for its
	// effects and traverses unconditionally, like a re-export.
	if len(stmt.Names) == 0 {
		stmt.Star = true
	}

	return stmt
}

// reExport handles "export ... from" statements. Re-exported modules are
// part of the file's public surface, so they always traverse like star
// imports even in filtering mode.
func (j *JavaScript) reExport(n sitter.Node, path string, src []byte) (ImportStatement, bool) {
	source := n.ChildByFieldName("source")
	if source.IsNull() {
		return ImportStatement{}, false
	}

	stmt := ImportStatement{
		SourceFile: path,
		Module:     stringLiteral(source, src),
		Star:       true,
		Line:       nodeLine(n),
	}
	markRelative(&stmt)

	for idx := range n.NamedChildCount() {
		if child := n.NamedChild(idx); child.Type() == "export_clause" {
			stmt.Names = append(stmt.Names, namedSpecifiers(child, "export_specifier", src)...)
		}
	}

	return stmt, true
}

// requireCall handles CommonJS require with a literal specifier. Fully
// dynamic string-built requires are out of scope and ignored.
func (j *JavaScript) requireCall(n sitter.Node, path string, src []byte) (ImportStatement, bool) {
	fn := n.ChildByFieldName("function")
	if fn.IsNull() || fn.Type() != "identifier" || nodeText(fn, src) != "require" {
		return ImportStatement{}, false
	}

	args := n.ChildByFieldName("arguments")
	if args.IsNull() || args.NamedChildCount() != 1 {
		return ImportStatement{}, false
	}

	arg := args.NamedChild(0)
	if arg.Type() != "string" {
		return ImportStatement{}, false
	}

	stmt := ImportStatement{
		SourceFile: path,
		Module:     stringLiteral(arg, src),
		Star:       true,
		Line:       nodeLine(n),
	}
	markRelative(&stmt)

	return stmt, true
}

// namedSpecifiers collects {a, b as c} style specifier lists.
func namedSpecifiers(list sitter.Node, specType string, src []byte) []ImportedName {
	var names []ImportedName

	for idx := range list.NamedChildCount() {
		spec := list.NamedChild(idx)
		if spec.Type() != specType {
			continue
		}

		origin := nodeText(spec.ChildByFieldName("name"), src)
		local := origin

		if alias := spec.ChildByFieldName("alias"); !alias.IsNull() {
			local = nodeText(alias, src)
		}

		names = append(names, ImportedName{Local: local, Origin: origin})
	}

	return names
}

// stringLiteral returns the inner text of a string node.
func stringLiteral(n sitter.Node, src []byte) string {
	if n.IsNull() {
		return ""
	}

	text := nodeText(n, src)
	if len(text) >= 2 {
		text = text[1 : len(text)-1]
	}

	return text
}

// markRelative fills the relative fields from the specifier. Level 1 is the
// importing file's own directory; each leading ".." segment adds one.
func markRelative(stmt *ImportStatement) {
	if !strings.HasPrefix(stmt.Module, ".") {
		return
	}

	stmt.Relative = true
	stmt.RelativeLevel = 1

	for _, seg := range strings.Split(stmt.Module, "/") {
		if seg == ".." {
			stmt.RelativeLevel++
		}
	}
}

// UsedSymbols implements Language.
func (j *JavaScript) UsedSymbols(path string, content []byte, stmts []ImportStatement) (map[string]bool, error) {
	tree, err := j.poolFor(path).parse(content)
	if err != nil {
		return nil, &ParseError{Path: path}
	}
	defer tree.Close()

	seen := make(map[string]bool)

	walkNamed(tree.RootNode(), func(n sitter.Node) bool {
		typ := n.Type()
		if typ == "import_statement" {
			return false
		}

		if typ == "identifier" || typ == "type_identifier" || typ == "shorthand_property_identifier" {
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
func (j *JavaScript) Resolve(stmt ImportStatement, rctx ResolveContext) Reference {
	if stmt.Relative {
		target := filepath.Join(filepath.Dir(stmt.SourceFile), filepath.FromSlash(stmt.Module))
		if !isWithin(rctx.ProjectRoot, target) {
			return Reference{Kind: KindUnresolved, Module: stmt.Module}
		}

		if ref, ok := probeJS(target, rctx.ProjectRoot, stmt.Module); ok {
			return ref
		}

		return Reference{Kind: KindUnresolved, Module: stmt.Module}
	}

	if nodeBuiltins[strings.TrimPrefix(firstSegment(stmt.Module), "node:")] ||
		strings.HasPrefix(stmt.Module, "node:") {
		return Reference{Kind: KindStdlib, Module: stmt.Module}
	}

	for _, root := range rctx.SearchRoots {
		if ref, ok := probeJS(filepath.Join(root, filepath.FromSlash(stmt.Module)), rctx.ProjectRoot, stmt.Module); ok {
			return ref
		}
	}

	return Reference{Kind: KindExternal, Module: stmt.Module}
}

// probeJS resolves a specifier stem to a concrete file: the exact path when
// it already carries a source extension, then extension probing, then an
// index package marker inside a directory of that name.
func probeJS(stem, projectRoot, module string) (Reference, bool) {
	ext := strings.ToLower(filepath.Ext(stem))
	for _, known := range jsSourceExts {
		if ext == known {
			if fileExists(stem) && isWithin(projectRoot, stem) {
				return Reference{Kind: KindInternalFile, Path: stem, Module: module}, true
			}

			return Reference{}, false
		}
	}

	for _, probe := range jsSourceExts {
		if candidate := stem + probe; fileExists(candidate) && isWithin(projectRoot, candidate) {
			return Reference{Kind: KindInternalFile, Path: candidate, Module: module}, true
		}
	}

	for _, probe := range jsSourceExts {
		if marker := filepath.Join(stem, "index"+probe); fileExists(marker) && isWithin(projectRoot, marker) {
			return Reference{Kind: KindInternalPackage, Path: marker, Module: module}, true
		}
	}

	return Reference{}, false
}

func firstSegment(module string) string {
	first, _, _ := strings.Cut(module, "/")

	return first
}

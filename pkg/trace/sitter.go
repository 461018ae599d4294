package trace

import (
	"context"
	"errors"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

var errNoRootNode = errors.New("parser produced no root node")

// parserPool hands out tree-sitter parsers configured for one grammar.
// Parsers are not safe for concurrent use; the pool lets per-file analysis
// run in parallel without re-creating cgo parser state on every call.
type parserPool struct {
	pool sync.Pool
}

func newParserPool(lang *sitter.Language) *parserPool {
	return &parserPool{
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}
}

// parse parses content and returns the syntax tree. The caller must Close
// the tree.
func (p *parserPool) parse(content []byte) (*sitter.Tree, error) {
	tsParser, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errNoRootNode
	}
	defer p.pool.Put(tsParser)

	tree, err := tsParser.ParseString(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}

	if tree.RootNode().IsNull() {
		tree.Close()

		return nil, errNoRootNode
	}

	return tree, nil
}

// nodeText returns the source text covered by a node.
func nodeText(n sitter.Node, src []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint(len(src)) {
		return ""
	}

	return string(src[start:end])
}

// nodeLine returns the 1-based line a node starts on.
func nodeLine(n sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// walkNamed visits n and its named descendants in lexical order. The visit
// function returns false to stop descending into a subtree.
func walkNamed(n sitter.Node, visit func(sitter.Node) bool) {
	if !visit(n) {
		return
	}

	for idx := range n.NamedChildCount() {
		walkNamed(n.NamedChild(idx), visit)
	}
}

// findSyntaxError reports the first point where tree-sitter recovered from
// malformed input. Recovery inserts either an ERROR node or a zero-width
// anonymous MISSING token, so detection keys off the tree-wide error flag
// and the location walk covers anonymous children.
func findSyntaxError(root sitter.Node, path string) *ParseError {
	if !root.HasError() {
		return nil
	}

	at := root
	if bad, ok := firstBadNode(root); ok {
		at = bad
	}

	return &ParseError{
		Path: path,
		Line: nodeLine(at),
		Col:  int(at.StartPoint().Column) + 1,
	}
}

// firstBadNode finds the first ERROR or MISSING node in lexical order,
// descending through named and anonymous children alike.
func firstBadNode(n sitter.Node) (sitter.Node, bool) {
	if n.IsError() || n.IsMissing() {
		return n, true
	}

	if !n.HasError() {
		return sitter.Node{}, false
	}

	for idx := range n.ChildCount() {
		if bad, ok := firstBadNode(n.Child(idx)); ok {
			return bad, true
		}
	}

	return sitter.Node{}, false
}

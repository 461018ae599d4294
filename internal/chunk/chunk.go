// Package chunk splits Python sources into their top-level definitions, so
// templates can render files structure-by-structure instead of whole.
package chunk

import (
	"context"
	"fmt"
	"sync"

	forest "github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Kinds of top-level chunks.
const (
	KindFunction = "function"
	KindClass    = "class"
	KindOther    = "other"
)

// Chunk is one top-level unit of a source file.
type Chunk struct {
	// Name is empty for KindOther chunks.
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Kind      string `json:"kind"           yaml:"kind"`
	StartLine int    `json:"start_line"     yaml:"start_line"`
	EndLine   int    `json:"end_line"       yaml:"end_line"`
	Content   string `json:"content"        yaml:"content"`
}

var pythonPool = sync.Pool{
	New: func() any {
		parser := sitter.NewParser()
		parser.SetLanguage(sitter.NewLanguage(forest.GetLanguage()))

		return parser
	},
}

// SplitPython parses content and returns its top-level definitions in
// source order. Consecutive statements between definitions fold into a
// single KindOther chunk.
func SplitPython(path string, content []byte) ([]Chunk, error) {
	parser, ok := pythonPool.Get().(*sitter.Parser)
	if !ok {
		return nil, fmt.Errorf("parse %s: bad parser pool entry", path)
	}
	defer pythonPool.Put(parser)

	tree, err := parser.ParseString(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()

	var chunks []Chunk

	var pending *Chunk

	var pendingStart uint

	flush := func() {
		if pending != nil {
			chunks = append(chunks, *pending)
			pending = nil
		}
	}

	for idx := range root.NamedChildCount() {
		child := root.NamedChild(idx)

		name, kind := classify(child, content)
		if kind == KindOther {
			if pending == nil {
				pendingStart = child.StartByte()
				pending = &Chunk{
					Kind:      KindOther,
					StartLine: int(child.StartPoint().Row) + 1,
				}
			}

			pending.EndLine = int(child.EndPoint().Row) + 1
			pending.Content = string(content[pendingStart:child.EndByte()])

			continue
		}

		flush()

		chunks = append(chunks, Chunk{
			Name:      name,
			Kind:      kind,
			StartLine: int(child.StartPoint().Row) + 1,
			EndLine:   int(child.EndPoint().Row) + 1,
			Content:   string(content[child.StartByte():child.EndByte()]),
		})
	}

	flush()

	return chunks, nil
}

// classify maps a top-level node to a chunk kind, unwrapping decorators.
func classify(n sitter.Node, content []byte) (string, string) {
	target := n

	if n.Type() == "decorated_definition" {
		def := n.ChildByFieldName("definition")
		if !def.IsNull() {
			target = def
		}
	}

	var kind string

	switch target.Type() {
	case "function_definition":
		kind = KindFunction
	case "class_definition":
		kind = KindClass
	default:
		return "", KindOther
	}

	nameNode := target.ChildByFieldName("name")
	if nameNode.IsNull() {
		return "", kind
	}

	return string(content[nameNode.StartByte():nameNode.EndByte()]), kind
}

package trace

import "path/filepath"

// Graph is the final artifact of a resolution run: insertion-ordered nodes
// and, per node, the ordered internal files it references. Assembly is a
// pure transform of the engine's terminal state; no I/O or parsing happens
// here.
type Graph struct {
	// Nodes lists every discovered file in discovery order.
	Nodes []string `json:"nodes" yaml:"nodes"`
	// Edges maps each node to its outgoing internal references.
	Edges map[string][]Edge `json:"edges" yaml:"edges"`
	// Skipped lists edges whose targets were not traversed because none of
	// the imported symbols were used (filtering mode only).
	Skipped []Edge `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	// Externals lists distinct third-party module specifiers, in first-seen
	// order.
	Externals []string `json:"externals,omitempty" yaml:"externals,omitempty"`
	// Stdlib lists distinct standard-library module specifiers.
	Stdlib []string `json:"stdlib,omitempty" yaml:"stdlib,omitempty"`
	// Unresolved lists references that could not be classified.
	Unresolved []UnresolvedReference `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// Summary holds the four disjoint reference counts for reporting.
type Summary struct {
	InternalFiles int `json:"internal_files" yaml:"internal_files"`
	Externals     int `json:"externals" yaml:"externals"`
	Stdlib        int `json:"stdlib" yaml:"stdlib"`
	Unresolved    int `json:"unresolved" yaml:"unresolved"`
}

// Summary returns the aggregate counts.
func (g *Graph) Summary() Summary {
	return Summary{
		InternalFiles: len(g.Nodes),
		Externals:     len(g.Externals),
		Stdlib:        len(g.Stdlib),
		Unresolved:    len(g.Unresolved),
	}
}

// EdgeCount returns the total number of collapsed internal edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, edges := range g.Edges {
		total += len(edges)
	}

	return total
}

// Rel returns a copy of the graph with every path rewritten relative to
// root, for stable user-facing output.
func (g *Graph) Rel(root string) *Graph {
	rel := func(path string) string {
		if r, err := filepath.Rel(root, path); err == nil {
			return filepath.ToSlash(r)
		}

		return filepath.ToSlash(path)
	}

	relEdges := func(edges []Edge) []Edge {
		out := make([]Edge, len(edges))
		for i, edge := range edges {
			out[i] = edge
			out[i].From = rel(edge.From)
			out[i].To = rel(edge.To)
		}

		return out
	}

	clone := &Graph{
		Nodes:      make([]string, len(g.Nodes)),
		Edges:      make(map[string][]Edge, len(g.Edges)),
		Skipped:    relEdges(g.Skipped),
		Externals:  g.Externals,
		Stdlib:     g.Stdlib,
		Unresolved: make([]UnresolvedReference, len(g.Unresolved)),
	}

	for i, node := range g.Nodes {
		clone.Nodes[i] = rel(node)
	}

	for from, edges := range g.Edges {
		clone.Edges[rel(from)] = relEdges(edges)
	}

	for i, ref := range g.Unresolved {
		clone.Unresolved[i] = ref
		clone.Unresolved[i].File = rel(ref.File)
	}

	return clone
}

// Result is the outcome of one resolution run.
type Result struct {
	// Files is the reachable file set in discovery order, the expanded
	// input list for downstream content processing.
	Files []string
	// Graph is the assembled dependency graph.
	Graph *Graph
	// Failures lists per-file recoverable failures; the files stay in the
	// graph as isolated nodes.
	Failures []FileFailure
	// LimitExceeded reports that the node-count ceiling stopped traversal
	// early; the graph is partial but usable.
	LimitExceeded bool
}

// assemble converts the engine's terminal state into a Result.
func (e *Engine) assemble() *Result {
	graph := &Graph{
		Nodes:      append([]string(nil), e.order...),
		Edges:      make(map[string][]Edge, len(e.edges)),
		Skipped:    append([]Edge(nil), e.skipped...),
		Externals:  append([]string(nil), e.externals.items...),
		Stdlib:     append([]string(nil), e.stdlib.items...),
		Unresolved: append([]UnresolvedReference(nil), e.unresolvedRefs...),
	}

	for from, edges := range e.edges {
		out := make([]Edge, len(edges))
		for i, edge := range edges {
			out[i] = *edge
		}

		graph.Edges[from] = out
	}

	return &Result{
		Files:         append([]string(nil), e.order...),
		Graph:         graph,
		Failures:      append([]FileFailure(nil), e.failures...),
		LimitExceeded: e.limitHit,
	}
}

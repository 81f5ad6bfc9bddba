// Package dag orders crates by their dependency edges and reports cycles.
package dag

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// NodeID is the dense index of a crate in its Index.
type NodeID uint32

// Index maps crate names to dense IDs in declaration order.
type Index struct {
	NameToID map[string]NodeID
	IDToName []string
}

// Node is one crate and the names of the crates it depends on.
type Node struct {
	Name string
	Deps []string
}

// BuildIndex assigns IDs in declaration order and rejects duplicates.
func BuildIndex(nodes []Node) (Index, error) {
	idx := Index{NameToID: make(map[string]NodeID, len(nodes))}
	for i, n := range nodes {
		if n.Name == "" {
			return Index{}, errors.Newf("crate #%d has no name", i+1)
		}
		if _, dup := idx.NameToID[n.Name]; dup {
			return Index{}, errors.Newf("duplicate crate %q", n.Name)
		}
		idx.NameToID[n.Name] = NodeID(len(idx.IDToName))
		idx.IDToName = append(idx.IDToName, n.Name)
	}
	return idx, nil
}

// Graph holds edges from a dependency to its dependents, so that a
// topological order lists dependencies first.
type Graph struct {
	Edges [][]NodeID // Edges[dep] = dependents
	Indeg []int      // number of deps per crate
}

// BuildGraph resolves dependency names. Unknown and self dependencies are
// errors; repeated ones are ignored.
func BuildGraph(idx Index, nodes []Node) (Graph, error) {
	g := Graph{
		Edges: make([][]NodeID, len(idx.IDToName)),
		Indeg: make([]int, len(idx.IDToName)),
	}
	for _, n := range nodes {
		from := idx.NameToID[n.Name]
		seen := make(map[NodeID]bool, len(n.Deps))
		for _, dep := range n.Deps {
			to, ok := idx.NameToID[dep]
			switch {
			case !ok:
				return Graph{}, errors.Newf("crate %q depends on unknown crate %q", n.Name, dep)
			case to == from:
				return Graph{}, errors.Newf("crate %q depends on itself", n.Name)
			case seen[to]:
				continue
			}
			seen[to] = true
			g.Edges[to] = append(g.Edges[to], from)
			g.Indeg[from]++
		}
	}
	for i := range g.Edges {
		slices.Sort(g.Edges[i])
	}
	return g, nil
}

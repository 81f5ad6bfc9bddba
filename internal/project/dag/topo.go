package dag

import (
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"
	"github.com/cockroachdb/errors"
)

// Topo is a Kahn ordering of a crate graph.
type Topo struct {
	Order   []NodeID   // dependencies first
	Batches [][]NodeID // crates whose dependencies are all in earlier batches
	Cyclic  bool
	Cycles  []NodeID // crates left with unresolved dependencies
}

// Sort computes the topological order of g.
func Sort(g Graph) *Topo {
	n := len(g.Edges)
	indeg := slices.Clone(g.Indeg)
	topo := &Topo{Order: make([]NodeID, 0, n)}

	var current []NodeID
	for i := range n {
		if indeg[i] == 0 {
			current = append(current, nodeID(i))
		}
	}
	for len(current) > 0 {
		topo.Batches = append(topo.Batches, current)
		var next []NodeID
		for _, id := range current {
			topo.Order = append(topo.Order, id)
			for _, to := range g.Edges[id] {
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if len(topo.Order) != n {
		topo.Cyclic = true
		for i := range n {
			if indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, nodeID(i))
			}
		}
	}
	return topo
}

// Err describes the cycle, if any.
func (t *Topo) Err(idx Index) error {
	if !t.Cyclic {
		return nil
	}
	names := make([]string, len(t.Cycles))
	for i, id := range t.Cycles {
		names[i] = idx.IDToName[id]
	}
	return errors.Newf("crate dependency cycle among %s", strings.Join(names, ", "))
}

func nodeID(i int) NodeID {
	id, err := safecast.Conv[NodeID](i)
	if err != nil {
		panic(fmt.Errorf("crate id overflow: %w", err))
	}
	return id
}

package dag

import (
	"slices"
	"testing"
)

func names(idx Index, ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[id]
	}
	return out
}

func build(t *testing.T, nodes []Node) (Index, Graph) {
	t.Helper()
	idx, err := BuildIndex(nodes)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	g, err := BuildGraph(idx, nodes)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	return idx, g
}

func TestSortListsDependenciesFirst(t *testing.T) {
	nodes := []Node{
		{Name: "app", Deps: []string{"core", "util"}},
		{Name: "util", Deps: []string{"core"}},
		{Name: "core"},
	}
	idx, g := build(t, nodes)
	topo := Sort(g)
	if topo.Cyclic {
		t.Fatalf("unexpected cycle among %v", names(idx, topo.Cycles))
	}
	if got := names(idx, topo.Order); !slices.Equal(got, []string{"core", "util", "app"}) {
		t.Fatalf("order = %v", got)
	}
	if len(topo.Batches) != 3 {
		t.Fatalf("batches = %v", topo.Batches)
	}
}

func TestSortReportsCycles(t *testing.T) {
	nodes := []Node{
		{Name: "a", Deps: []string{"b"}},
		{Name: "b", Deps: []string{"a"}},
		{Name: "c"},
	}
	idx, g := build(t, nodes)
	topo := Sort(g)
	if !topo.Cyclic {
		t.Fatalf("cycle not detected")
	}
	if got := names(idx, topo.Cycles); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("cycles = %v", got)
	}
	if topo.Err(idx) == nil {
		t.Fatalf("Err() = nil for a cyclic graph")
	}
}

func TestBuildGraphErrors(t *testing.T) {
	cases := []struct {
		name  string
		nodes []Node
	}{
		{"unknown", []Node{{Name: "a", Deps: []string{"zzz"}}}},
		{"self", []Node{{Name: "a", Deps: []string{"a"}}}},
	}
	for _, tc := range cases {
		idx, err := BuildIndex(tc.nodes)
		if err != nil {
			t.Fatalf("%s: BuildIndex: %v", tc.name, err)
		}
		if _, err := BuildGraph(idx, tc.nodes); err == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
	}
	if _, err := BuildIndex([]Node{{Name: "a"}, {Name: "a"}}); err == nil {
		t.Fatalf("duplicate crate accepted")
	}
}

package graph

import (
	"sort"
	"testing"
)

func TestSCC(t *testing.T) {
	scc := _sampleGraph.SCC([]int{0})

	same := [][]int{{0, 1, 4}, {2, 3, 7}, {5, 6}}
	for _, nodes := range same {
		comp := scc.ComponentOf(nodes[0])
		for _, n := range nodes[1:] {
			if scc.ComponentOf(n) != comp {
				t.Errorf("Expected %d and %d to share a component", nodes[0], n)
			}
		}
		if !scc.IsCyclic(comp) {
			t.Errorf("Expected the component of %d to be cyclic", nodes[0])
		}
	}
	for _, n := range []int{8, 9, 12} {
		if scc.IsCyclic(scc.ComponentOf(n)) {
			t.Errorf("Expected the component of %d to be acyclic", n)
		}
	}
	if len(scc.Components) != 9 {
		t.Errorf("Expected 9 components, found %d", len(scc.Components))
	}

	// Components only have edges to components with a lower index.
	G := scc.ToGraph()
	for i := range scc.Components {
		for _, j := range G.Edges(i) {
			if j >= i {
				t.Errorf("Edge from component %d to %d", i, j)
			}
		}
	}

	unreached := _sampleGraph.SCC([]int{9})
	if unreached.ComponentOf(0) != -1 {
		t.Errorf("Expected 0 to be unreached from 9")
	}
	comps := unreached.Components
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })
	if len(comps) != 5 {
		t.Errorf("Expected 5 components reachable from 9, found %v", comps)
	}
}

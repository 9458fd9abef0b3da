package graph

// SCC indexes a component of an SCCDecomposition.
type SCC = int

// SCCDecomposition partitions the reachable part of a graph into strongly
// connected components. Components are numbered in reverse topological
// order: edges leaving component i lead to components j < i.
type SCCDecomposition[T comparable] struct {
	Components [][]T
	Original   Graph[T]
	comp       map[T]SCC
}

// ComponentOf returns the component of node, or -1 if the node was not
// reached.
func (scc SCCDecomposition[T]) ComponentOf(node T) SCC {
	if c, found := scc.comp[node]; found {
		return c
	}
	return -1
}

// tarjan holds the state of one run of Tarjan's algorithm.
type tarjan[T comparable] struct {
	G       Graph[T]
	index   map[T]int
	low     map[T]int
	onStack map[T]bool
	stack   []T
	res     SCCDecomposition[T]
}

func (s *tarjan[T]) visit(node T) {
	s.index[node] = len(s.index)
	s.low[node] = s.index[node]
	s.stack = append(s.stack, node)
	s.onStack[node] = true

	for _, next := range s.G.Edges(node) {
		if _, visited := s.index[next]; !visited {
			s.visit(next)
			s.low[node] = min(s.low[node], s.low[next])
		} else if s.onStack[next] {
			s.low[node] = min(s.low[node], s.index[next])
		}
	}

	if s.low[node] != s.index[node] {
		return
	}
	id := len(s.res.Components)
	var members []T
	for {
		top := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		s.onStack[top] = false
		s.res.comp[top] = id
		members = append(members, top)
		if top == node {
			break
		}
	}
	s.res.Components = append(s.res.Components, members)
}

// SCC decomposes the subgraph reachable from startNodes.
func (G Graph[T]) SCC(startNodes []T) SCCDecomposition[T] {
	s := &tarjan[T]{
		G:       G,
		index:   map[T]int{},
		low:     map[T]int{},
		onStack: map[T]bool{},
		res:     SCCDecomposition[T]{Original: G, comp: map[T]SCC{}},
	}
	for _, node := range startNodes {
		if _, visited := s.index[node]; !visited {
			s.visit(node)
		}
	}
	return s.res
}

// IsCyclic reports whether the component has more than one node, or a
// single node with a self edge.
func (scc SCCDecomposition[T]) IsCyclic(c SCC) bool {
	nodes := scc.Components[c]
	if len(nodes) > 1 {
		return true
	}
	for _, next := range scc.Original.Edges(nodes[0]) {
		if next == nodes[0] {
			return true
		}
	}
	return false
}

// ToGraph returns the condensation: a graph over component indices.
func (scc SCCDecomposition[T]) ToGraph() Graph[SCC] {
	return Of(func(c SCC) (succs []SCC) {
		seen := map[SCC]bool{c: true}
		for _, node := range scc.Components[c] {
			for _, next := range scc.Original.Edges(node) {
				if nc := scc.ComponentOf(next); !seen[nc] {
					seen[nc] = true
					succs = append(succs, nc)
				}
			}
		}
		return
	})
}

// Package graph implements graph algorithms over any comparable node type.
// Callers describe the edge relation with a function; edges are computed
// at most once per node.
package graph

type Graph[T comparable] struct {
	edgesOf func(node T) []T
	edges   map[T][]T
}

// Of views edgesOf as a graph.
func Of[T comparable](edgesOf func(node T) []T) Graph[T] {
	return Graph[T]{edgesOf, map[T][]T{}}
}

// Edges returns the successors of node. Results are cached.
func (G Graph[T]) Edges(node T) []T {
	if es, found := G.edges[node]; found {
		return es
	}
	es := G.edgesOf(node)
	G.edges[node] = es
	return es
}

// Predecessors inverts the edges of the nodes reachable from starts.
func (G Graph[T]) Predecessors(starts ...T) map[T][]T {
	preds := map[T][]T{}
	G.BFSV(func(node T) bool {
		for _, succ := range G.Edges(node) {
			preds[succ] = append(preds[succ], node)
		}
		return false
	}, starts...)
	return preds
}

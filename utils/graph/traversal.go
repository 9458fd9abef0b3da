package graph

import W "github.com/cs-au-dk/jpeval/utils/worklist"

type traversalFunc[T any] func(node T) (stop bool)

// BFSV visits every node reachable from starts in breadth-first order. The
// search stops as soon as f returns true, which BFSV then reports.
func (G Graph[T]) BFSV(f traversalFunc[T], starts ...T) bool {
	visited := make(map[T]struct{}, len(starts))
	var pending []T
	for _, start := range starts {
		if _, seen := visited[start]; !seen {
			visited[start] = struct{}{}
			pending = append(pending, start)
		}
	}

	stopped := false
	W.StartV(pending, func(node T, add func(T)) {
		if stopped {
			return
		}
		if stopped = f(node); stopped {
			return
		}
		for _, next := range G.Edges(node) {
			if _, seen := visited[next]; !seen {
				visited[next] = struct{}{}
				add(next)
			}
		}
	})
	return stopped
}

// BFS is BFSV with a single start node.
func (G Graph[T]) BFS(start T, f traversalFunc[T]) bool {
	return G.BFSV(f, start)
}

// Postorder lists the nodes reachable from root in depth-first post-order.
// Successors are explored in edge order.
func (G Graph[T]) Postorder(root T) []T {
	var order []T
	visited := map[T]struct{}{}

	var visit func(T)
	visit = func(node T) {
		visited[node] = struct{}{}
		for _, next := range G.Edges(node) {
			if _, seen := visited[next]; !seen {
				visit(next)
			}
		}
		order = append(order, node)
	}
	visit(root)
	return order
}

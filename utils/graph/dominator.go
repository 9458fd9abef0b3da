package graph

// Dominators is the dominator tree of the nodes reachable from a root,
// computed with the iterative algorithm of Cooper, Harvey and Kennedy
// ("A Simple, Fast Dominance Algorithm").
type Dominators[T comparable] struct {
	// postorder numbers the reachable nodes; the root has the highest.
	postorder map[T]int
	order     []T
	// idom holds the postorder number of each node's immediate dominator.
	idom []int
}

func (D Dominators[T]) intersect(a, b int) int {
	for a != b {
		for a < b {
			a = D.idom[a]
		}
		for b < a {
			b = D.idom[b]
		}
	}
	return a
}

// Common returns the closest node dominating all the given nodes. Nodes
// dominate themselves, so Common(n) is n; Immediate gives the strict
// dominator. Common reports false if a node was not reachable from the root.
func (D Dominators[T]) Common(nodes ...T) (res T, ok bool) {
	dom := -1
	for _, node := range nodes {
		i, found := D.postorder[node]
		if !found {
			return res, false
		}
		if dom == -1 {
			dom = i
		} else {
			dom = D.intersect(i, dom)
		}
	}
	if dom == -1 {
		return res, false
	}
	return D.order[dom], true
}

// Immediate returns the immediate dominator of node. The root has none.
func (D Dominators[T]) Immediate(node T) (res T, ok bool) {
	i, found := D.postorder[node]
	if !found || i == len(D.order)-1 {
		return res, false
	}
	return D.order[D.idom[i]], true
}

// Dominates reports whether every path from the root to b passes a.
func (D Dominators[T]) Dominates(a, b T) bool {
	i, foundA := D.postorder[a]
	j, foundB := D.postorder[b]
	return foundA && foundB && D.intersect(i, j) == i
}

func (G Graph[T]) DominatorTree(root T) Dominators[T] {
	order := G.Postorder(root)
	preds := G.Predecessors(root)
	n := len(order)

	D := Dominators[T]{
		postorder: make(map[T]int, n),
		order:     order,
		idom:      make([]int, n),
	}
	for i, node := range order {
		D.postorder[node] = i
		D.idom[i] = -1
	}
	D.idom[n-1] = n - 1

	for changed := true; changed; {
		changed = false
		// Reverse postorder, skipping the root.
		for i := n - 2; i >= 0; i-- {
			idom := -1
			for _, pred := range preds[order[i]] {
				j := D.postorder[pred]
				if D.idom[j] == -1 {
					continue
				}
				if idom == -1 {
					idom = j
				} else {
					idom = D.intersect(j, idom)
				}
			}
			if idom != D.idom[i] {
				D.idom[i] = idom
				changed = true
			}
		}
	}
	return D
}

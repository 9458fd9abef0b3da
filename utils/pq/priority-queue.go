package pq

import "container/heap"

// lessFunc is a comparison function between two elements of type T.
type lessFunc[T any] func(T, T) bool

// _heap satisfies the heap.Interface. It includes a list of elements,
// and a comparison function.
type _heap[T any] struct {
	list []T
	less lessFunc[T]
}

// Len returns the number of elements in the heap.
func (h _heap[T]) Len() int { return len(h.list) }

// Swap exchanges the elements at indices i and j.
func (h _heap[T]) Swap(i, j int) {
	l := h.list
	l[i], l[j] = l[j], l[i]
}

// Push appends x at the end of the list. heap.Push restores the order.
func (h *_heap[T]) Push(x any) {
	h.list = append(h.list, x.(T))
}

// Pop removes the last element of the list, where heap.Pop moves the top.
func (h *_heap[T]) Pop() any {
	old := h.list
	n := len(old)
	x := old[n-1]
	h.list = old[0 : n-1]
	return x
}

// Less orders the elements at indices i and j by the comparison function.
func (h _heap[T]) Less(i, j int) bool {
	return h.less(h.list[i], h.list[j])
}

var _ heap.Interface = (*_heap[int])(nil)

// PriorityQueue implements a priority queue without duplicates.
type PriorityQueue[T comparable] struct {
	heap     _heap[T]
	elements map[T]struct{}
}

// Empty creates an empty priority queue for elements of a given type,
// with the given comparison function.
func Empty[T comparable](less lessFunc[T]) PriorityQueue[T] {
	return PriorityQueue[T]{
		heap:     _heap[T]{nil, less},
		elements: make(map[T]struct{}),
	}
}

// IsEmpty checks whether the priority queue is empty.
func (p *PriorityQueue[T]) IsEmpty() bool {
	return len(p.heap.list) == 0
}

// Len returns the number of queued elements.
func (p *PriorityQueue[T]) Len() int {
	return len(p.heap.list)
}

// GetNext pops the top element from the heap.
func (p *PriorityQueue[T]) GetNext() T {
	el := heap.Pop(&p.heap).(T)
	delete(p.elements, el)
	return el
}

// Contains reports whether x is queued.
func (p *PriorityQueue[T]) Contains(x T) bool {
	_, found := p.elements[x]
	return found
}

// Add inserts the given element in the heap, if not already present.
func (p *PriorityQueue[T]) Add(x T) bool {
	if _, found := p.elements[x]; found {
		return false
	}

	p.elements[x] = struct{}{}
	heap.Push(&p.heap, x)
	return true
}

// Clear removes all elements while keeping the allocated storage.
func (p *PriorityQueue[T]) Clear() {
	p.heap.list = p.heap.list[:0]
	for x := range p.elements {
		delete(p.elements, x)
	}
}

// Package worklist provides first-in first-out worklists for fixed point
// iterations over instructions and graph nodes.
package worklist

// Worklist is a FIFO queue. The zero value is an empty worklist.
type Worklist[T any] struct {
	list []T
	head int
}

// Start runs do on start and every element added while processing, in
// insertion order.
func Start[T any](start T, do func(next T, add func(el T))) {
	StartV([]T{start}, do)
}

// StartV is Start with several initial elements.
func StartV[T any](start []T, do func(next T, add func(el T))) {
	W := Empty[T]()
	for _, e := range start {
		W.Add(e)
	}

	W.Process(do)
}

// StartUnique is Start where every element is processed at most once, no
// matter how often it is added.
func StartUnique[T comparable](start T, do func(next T, add func(el T))) {
	seen := map[T]struct{}{start: {}}
	Start(start, func(next T, add func(T)) {
		do(next, func(el T) {
			if _, ok := seen[el]; !ok {
				seen[el] = struct{}{}
				add(el)
			}
		})
	})
}

func Empty[T any]() Worklist[T] {
	return Worklist[T]{}
}

// GetNext removes and returns the oldest element, or the zero value if the
// worklist is empty.
func (w *Worklist[T]) GetNext() (ret T) {
	if w.IsEmpty() {
		return
	}
	next := w.list[w.head]
	var zero T
	w.list[w.head] = zero
	w.head++
	if w.head == len(w.list) {
		w.list, w.head = w.list[:0], 0
	}
	return next
}

func (w *Worklist[T]) IsEmpty() bool {
	return w.head == len(w.list)
}

func (w *Worklist[T]) Len() int {
	return len(w.list) - w.head
}

func (w *Worklist[T]) Process(do func(next T, add func(element T))) {
	for !w.IsEmpty() {
		do(w.GetNext(), w.Add)
	}
}

func (w *Worklist[T]) Add(el T) {
	w.list = append(w.list, el)
}

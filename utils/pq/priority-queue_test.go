package pq

import "testing"

func TestPriorityQueueOrder(t *testing.T) {
	q := Empty(func(a, b int) bool { return a < b })
	for _, x := range []int{7, 3, 9, 3, 0, 7} {
		q.Add(x)
	}
	if q.Len() != 4 {
		t.Errorf("Expected 4 distinct elements, found %d", q.Len())
	}

	expected := []int{0, 3, 7, 9}
	for _, x := range expected {
		if q.IsEmpty() {
			t.Fatalf("Queue ran empty, expected %d", x)
		}
		if y := q.GetNext(); y != x {
			t.Errorf("Expected %d, found %d", x, y)
		}
	}
	if !q.IsEmpty() {
		t.Errorf("Expected an empty queue")
	}

	// Popped elements may be queued again.
	if !q.Add(3) || q.Add(3) || !q.Contains(3) {
		t.Errorf("Expected 3 to be re-added exactly once")
	}
	q.Clear()
	if !q.IsEmpty() || q.Contains(3) {
		t.Errorf("Expected Clear to empty the queue")
	}
}

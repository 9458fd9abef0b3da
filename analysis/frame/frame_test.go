package frame

import (
	"errors"
	"testing"

	"github.com/cs-au-dk/jpeval/analysis/value"
)

// expectPanic runs do and checks that it panics with a frame error
// wrapping err.
func expectPanic(t *testing.T, err error, do func()) {
	t.Helper()
	defer func() {
		r := recover()
		fe, ok := r.(*Error)
		if !ok || !errors.Is(fe, err) {
			t.Errorf("Expected a panic with %v, found %v", err, r)
		}
	}()
	do()
}

func TestStackCategory2(t *testing.T) {
	s := NewStack(0)
	s.Push(value.ConstantInteger(1))
	s.Push(value.ConstantLong(2))
	if s.Size() != 3 {
		t.Fatalf("Expected 3 slots, found %d: %s", s.Size(), s)
	}
	if !s.Top(1).Equal(value.TopValue{}) {
		t.Errorf("Expected ⊤ below a long, found %s", s.Top(1))
	}
	if l := s.LPop(); !l.Equal(value.ConstantLong(2)) {
		t.Errorf("Expected 2L, found %s", l)
	}
	if i := s.IPop(); !i.Equal(value.ConstantInteger(1)) {
		t.Errorf("Expected 1, found %s", i)
	}
	if s.ActualMaxSize() != 3 {
		t.Errorf("Expected maximum size 3, found %d", s.ActualMaxSize())
	}

	expectPanic(t, ErrStackUnderflow, func() { s.Pop() })
	s.Push(value.ConstantFloat(1))
	expectPanic(t, ErrTypeMismatch, func() { s.IPop() })

	bounded := NewStack(1)
	bounded.Push(value.GenericInteger())
	expectPanic(t, ErrStackOverflow, func() { bounded.Push(value.GenericInteger()) })
}

func TestStackDup(t *testing.T) {
	c := value.ConstantInteger
	tests := []struct {
		name     string
		op       func(*Stack)
		expected []int32
	}{
		{"dup", (*Stack).Dup, []int32{1, 2, 3, 3}},
		{"dup_x1", (*Stack).DupX1, []int32{1, 3, 2, 3}},
		{"dup_x2", (*Stack).DupX2, []int32{3, 1, 2, 3}},
		{"dup2", (*Stack).Dup2, []int32{1, 2, 3, 2, 3}},
		{"dup2_x1", (*Stack).Dup2X1, []int32{2, 3, 1, 2, 3}},
		{"swap", (*Stack).Swap, []int32{1, 3, 2}},
		{"pop2", (*Stack).Pop2, []int32{1}},
	}

	for _, test := range tests {
		s := NewStack(0)
		for _, v := range []int32{1, 2, 3} {
			s.Push(c(v))
		}
		test.op(s)
		if s.Size() != len(test.expected) {
			t.Errorf("%s: expected %v, found %s", test.name, test.expected, s)
			continue
		}
		for i, v := range test.expected {
			if !s.Bottom(i).Equal(c(v)) {
				t.Errorf("%s: expected %v, found %s", test.name, test.expected, s)
				break
			}
		}
	}

	// dup2 duplicates a long as a whole.
	s := NewStack(0)
	s.Push(value.ConstantLong(9))
	s.Dup2()
	if a, b := s.LPop(), s.LPop(); !a.Equal(b) {
		t.Errorf("dup2 of a long produced %s and %s", a, b)
	}
}

func TestStackGeneralize(t *testing.T) {
	s1, s2 := NewStack(0), NewStack(0)
	s1.Push(value.ConstantInteger(1))
	s1.Push(value.ConstantInteger(2))
	s2.Push(value.ConstantInteger(1))
	s2.Push(value.ConstantFloat(2))

	if !s1.Generalize(s2) {
		t.Errorf("Expected the stack to change")
	}
	if !s1.Bottom(0).Equal(value.ConstantInteger(1)) || !s1.Bottom(1).Equal(value.TopValue{}) {
		t.Errorf("Unexpected generalized stack %s", s1)
	}
	if s1.Generalize(s2) {
		t.Errorf("Expected generalization to be idempotent")
	}

	expectPanic(t, ErrSizeMismatch, func() { s1.Generalize(NewStack(0)) })
}

func TestVariablesStore(t *testing.T) {
	v := NewVariables(4)
	v.Store(1, value.ConstantDouble(1))
	if !v.Get(2).Equal(value.TopValue{}) {
		t.Errorf("Expected ⊤ after a double, found %s", v)
	}

	// Overwriting either half breaks the double.
	v.Store(2, value.ConstantInteger(3))
	if v.Get(1).ComputationalType() != value.TypeTop {
		t.Errorf("Expected the double to be invalidated, found %s", v)
	}

	expectPanic(t, ErrIndex, func() { v.Store(3, value.GenericLong()) })
	expectPanic(t, ErrUninitialized, func() { v.Load(0) })
	expectPanic(t, ErrTypeMismatch, func() { v.LLoad(2) })
	expectPanic(t, ErrIndex, func() { v.Load(4) })
}

func TestVariablesMergeConflict(t *testing.T) {
	// Two predecessors store an int and a long into slot 2.
	a, b := NewTracedVariables(4), NewTracedVariables(4)
	a.SetProducerValue(value.NewOffsets(3))
	a.Store(2, value.ConstantInteger(5))
	b.SetProducerValue(value.NewOffsets(8))
	b.Store(2, value.ConstantLong(7))

	if !a.Generalize(b, true) {
		t.Errorf("Expected the variables to change")
	}
	if v := a.Get(2); v != nil {
		t.Errorf("Expected slot 2 to be empty after the merge, found %s", v)
	}
	if v := a.Get(3); v != nil {
		t.Errorf("Expected slot 3 to be empty after the merge, found %s", v)
	}
	if v := b.Get(2); v != nil {
		t.Errorf("Expected the conflicting slot to be cleared in the other frame too")
	}
	if p := a.StoredProducerValue(2); !p.Equal(value.NewOffsets(3, 8)) {
		t.Errorf("Expected producers {3, 8}, found %s", p)
	}
}

func TestVariablesGeneralize(t *testing.T) {
	a, b := NewVariables(3), NewVariables(3)
	a.Store(0, value.ConstantInteger(1))
	b.Store(0, value.ConstantInteger(1))
	a.Store(1, value.ConstantInteger(1))
	b.Store(1, value.ConstantInteger(2))
	b.Store(2, value.GenericFloat())

	if !a.Generalize(b, false) {
		t.Errorf("Expected the variables to change")
	}
	if !a.Get(0).Equal(value.ConstantInteger(1)) {
		t.Errorf("Expected slot 0 to keep its constant, found %s", a)
	}
	if !a.Get(1).Equal(value.GenericInteger()) {
		t.Errorf("Expected slot 1 to become generic, found %s", a)
	}
	if a.Get(2) != nil || b.Get(2) == nil {
		t.Errorf("Expected slot 2 to stay empty in a and set in b, found %s and %s", a, b)
	}
	if a.Generalize(b, false) {
		t.Errorf("Expected generalization to be idempotent")
	}
}

func TestTracedStackProducers(t *testing.T) {
	s := NewTracedStack(0)
	s.SetProducerValue(value.NewOffsets(0))
	s.Push(value.ConstantInteger(1))
	s.SetProducerValue(value.NewOffsets(1))
	s.Push(value.ConstantInteger(2))
	s.SetProducerValue(value.NewOffsets(2))
	s.Swap()

	if p := s.TopProducerValue(0); !p.Equal(value.NewOffsets(2)) {
		t.Errorf("Expected swap to be the direct producer, found %s", p)
	}
	if p := s.TopActualProducerValue(0); !p.Equal(value.NewOffsets(0)) {
		t.Errorf("Expected the actual producer of the top to be 0, found %s", p)
	}
	if p := s.TopActualProducerValue(1); !p.Equal(value.NewOffsets(1)) {
		t.Errorf("Expected the actual producer below the top to be 1, found %s", p)
	}

	s.SetProducerValue(value.NewOffsets(3))
	s.Push(value.ConstantLong(4))
	if s.Size() != 4 || !s.BottomProducerValue(2).Equal(value.NewOffsets(3)) {
		t.Errorf("Expected both halves of the long produced by 3, found %s", s)
	}
	s.LPop()
	if s.Size() != 2 {
		t.Errorf("Expected 2 slots after popping the long, found %s", s)
	}

	// Producers only grow.
	o := s.Copy()
	o.SetProducerValue(value.NewOffsets(9))
	o.Pop1()
	o.Push(value.ConstantInteger(1))
	if !s.Generalize(o) {
		t.Errorf("Expected the stack to change")
	}
	if p := s.TopProducerValue(0); !p.Equal(value.NewOffsets(2, 9)) {
		t.Errorf("Expected direct producers {2, 9}, found %s", p)
	}
	if s.Generalize(o) {
		t.Errorf("Expected generalization to be idempotent")
	}
}

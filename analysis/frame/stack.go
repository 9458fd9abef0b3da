package frame

import (
	"strings"

	"github.com/cs-au-dk/jpeval/analysis/value"
)

// Stack is an operand stack. Category 2 values take two slots: the value
// itself on top of a ⊤ slot.
type Stack struct {
	values    []value.Value
	capacity  int
	actualMax int
}

// NewStack creates an empty stack. A capacity of 0 means unbounded.
func NewStack(capacity int) *Stack {
	return &Stack{values: make([]value.Value, 0, capacity), capacity: capacity}
}

// Reset empties the stack and sets a new capacity.
func (s *Stack) Reset(capacity int) {
	s.Clear()
	s.capacity = capacity
	s.actualMax = 0
}

// Clear pops all slots.
func (s *Stack) Clear() {
	for i := range s.values {
		s.values[i] = nil
	}
	s.values = s.values[:0]
}

// Copy returns an independent copy of the stack.
func (s *Stack) Copy() *Stack {
	c := &Stack{capacity: s.capacity, actualMax: s.actualMax}
	c.CopyFrom(s)
	return c
}

// CopyFrom overwrites the stack with the contents of o.
func (s *Stack) CopyFrom(o *Stack) {
	s.values = append(s.values[:0], o.values...)
	s.capacity = o.capacity
	s.actualMax = o.actualMax
}

func (s *Stack) Size() int { return len(s.values) }

// ActualMaxSize is the largest size the stack reached.
func (s *Stack) ActualMaxSize() int { return s.actualMax }

func (s *Stack) Top(i int) value.Value {
	if i < 0 || i >= len(s.values) {
		fail("top", ErrStackUnderflow, "slot %d of %d", i, len(s.values))
	}
	return s.values[len(s.values)-1-i]
}

// Bottom returns slot i, counting from the bottom.
func (s *Stack) Bottom(i int) value.Value {
	if i < 0 || i >= len(s.values) {
		fail("bottom", ErrStackUnderflow, "slot %d of %d", i, len(s.values))
	}
	return s.values[i]
}

// SetTop replaces the slot i positions below the top.
func (s *Stack) SetTop(i int, v value.Value) {
	s.Top(i)
	s.values[len(s.values)-1-i] = v
}

func (s *Stack) pushSlot(v value.Value) {
	if s.capacity > 0 && len(s.values) >= s.capacity {
		fail("push", ErrStackOverflow, "capacity %d", s.capacity)
	}
	s.values = append(s.values, v)
	if len(s.values) > s.actualMax {
		s.actualMax = len(s.values)
	}
}

func (s *Stack) popSlot() value.Value {
	n := len(s.values)
	if n == 0 {
		fail("pop", ErrStackUnderflow, "empty stack")
	}
	v := s.values[n-1]
	s.values[n-1] = nil
	s.values = s.values[:n-1]
	return v
}

func (s *Stack) Push(v value.Value) {
	if v.IsCategory2() {
		s.pushSlot(value.TopValue{})
	}
	s.pushSlot(v)
}

func (s *Stack) Pop() value.Value {
	v := s.popSlot()
	if v.IsCategory2() {
		s.popSlot()
	}
	return v
}

func (s *Stack) IPop() value.IntegerValue {
	v := s.Pop()
	expect("ipop", v, value.TypeInteger)
	return v.(value.IntegerValue)
}

func (s *Stack) LPop() value.LongValue {
	v := s.Pop()
	expect("lpop", v, value.TypeLong)
	return v.(value.LongValue)
}

func (s *Stack) FPop() value.FloatValue {
	v := s.Pop()
	expect("fpop", v, value.TypeFloat)
	return v.(value.FloatValue)
}

func (s *Stack) DPop() value.DoubleValue {
	v := s.Pop()
	expect("dpop", v, value.TypeDouble)
	return v.(value.DoubleValue)
}

func (s *Stack) APop() value.Value {
	v := s.Pop()
	expect("apop", v, value.TypeReference)
	return v
}

func (s *Stack) OPop() value.InstructionOffsetValue {
	v := s.Pop()
	expect("opop", v, value.TypeOffset)
	return v.(value.InstructionOffsetValue)
}

func (s *Stack) Pop1() { s.popSlot() }

func (s *Stack) Pop2() {
	s.popSlot()
	s.popSlot()
}

// permute pops n slots and pushes them back in the given order. Indices
// refer to the popped slots, 0 being the former top.
func (s *Stack) permute(n int, order ...int) {
	popped := make([]value.Value, n)
	for i := range popped {
		popped[i] = s.popSlot()
	}
	for _, i := range order {
		s.pushSlot(popped[i])
	}
}

func (s *Stack) Dup()    { s.permute(1, 0, 0) }
func (s *Stack) DupX1()  { s.permute(2, 0, 1, 0) }
func (s *Stack) DupX2()  { s.permute(3, 0, 2, 1, 0) }
func (s *Stack) Dup2()   { s.permute(2, 1, 0, 1, 0) }
func (s *Stack) Dup2X1() { s.permute(3, 1, 0, 2, 1, 0) }
func (s *Stack) Dup2X2() { s.permute(4, 1, 0, 3, 2, 1, 0) }
func (s *Stack) Swap()   { s.permute(2, 0, 1) }

// Generalize joins o into s slot by slot. Slots of different computational
// types become ⊤. It reports whether s changed.
func (s *Stack) Generalize(o *Stack) bool {
	if len(s.values) != len(o.values) {
		fail("generalize", ErrSizeMismatch, "stack sizes %d and %d", len(s.values), len(o.values))
	}
	changed := false
	for i, v := range s.values {
		g := v.Generalize(o.values[i])
		if !g.Equal(v) {
			s.values[i] = g
			changed = true
		}
	}
	if o.actualMax > s.actualMax {
		s.actualMax = o.actualMax
	}
	return changed
}

func (s *Stack) Equal(o *Stack) bool {
	if len(s.values) != len(o.values) {
		return false
	}
	for i, v := range s.values {
		if !v.Equal(o.values[i]) {
			return false
		}
	}
	return true
}

// Values returns the slots from bottom to top.
func (s *Stack) Values() []value.Value {
	return append([]value.Value(nil), s.values...)
}

func (s *Stack) String() string {
	strs := make([]string, len(s.values))
	for i, v := range s.values {
		strs[i] = slotString(v)
	}
	return "[" + strings.Join(strs, " ") + "]"
}

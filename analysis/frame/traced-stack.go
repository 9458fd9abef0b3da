package frame

import (
	"strings"

	"github.com/cs-au-dk/jpeval/analysis/value"
)

// TracedStack is a stack that also tracks, per slot, the offsets of the
// instructions that produced the value. Producers are tracked twice:
// directly, where dup and swap instructions count as producers, and
// actually, where values keep their producers through dup and swap.
type TracedStack struct {
	Stack
	producerValue value.InstructionOffsetValue
	producers     []value.InstructionOffsetValue
	actual        []value.InstructionOffsetValue
}

func NewTracedStack(capacity int) *TracedStack {
	return &TracedStack{Stack: *NewStack(capacity)}
}

// SetProducerValue sets the producer of all subsequently pushed slots.
func (t *TracedStack) SetProducerValue(p value.InstructionOffsetValue) {
	t.producerValue = p
}

func (t *TracedStack) ProducerValue() value.InstructionOffsetValue {
	return t.producerValue
}

func (t *TracedStack) Reset(capacity int) {
	t.Stack.Reset(capacity)
	t.producers = t.producers[:0]
	t.actual = t.actual[:0]
	t.producerValue = value.EmptyOffsets
}

func (t *TracedStack) Clear() {
	t.Stack.Clear()
	t.producers = t.producers[:0]
	t.actual = t.actual[:0]
}

func (t *TracedStack) Copy() *TracedStack {
	c := &TracedStack{}
	c.CopyFrom(t)
	return c
}

func (t *TracedStack) CopyFrom(o *TracedStack) {
	t.Stack.CopyFrom(&o.Stack)
	t.producers = append(t.producers[:0], o.producers...)
	t.actual = append(t.actual[:0], o.actual...)
	t.producerValue = o.producerValue
}

// TopProducerValue returns the direct producers of the slot i positions
// below the top.
func (t *TracedStack) TopProducerValue(i int) value.InstructionOffsetValue {
	t.Top(i)
	return t.producers[len(t.producers)-1-i]
}

func (t *TracedStack) BottomProducerValue(i int) value.InstructionOffsetValue {
	t.Bottom(i)
	return t.producers[i]
}

// TopActualProducerValue returns the producers of the value in the slot i
// positions below the top, looking through dup and swap instructions.
func (t *TracedStack) TopActualProducerValue(i int) value.InstructionOffsetValue {
	t.Top(i)
	return t.actual[len(t.actual)-1-i]
}

func (t *TracedStack) BottomActualProducerValue(i int) value.InstructionOffsetValue {
	t.Bottom(i)
	return t.actual[i]
}

func (t *TracedStack) Push(v value.Value) {
	t.Stack.Push(v)
	for len(t.producers) < t.Stack.Size() {
		t.producers = append(t.producers, t.producerValue)
		t.actual = append(t.actual, t.producerValue)
	}
}

func (t *TracedStack) truncate() {
	n := t.Stack.Size()
	t.producers = t.producers[:n]
	t.actual = t.actual[:n]
}

func (t *TracedStack) Pop() value.Value {
	v := t.Stack.Pop()
	t.truncate()
	return v
}

func (t *TracedStack) IPop() value.IntegerValue {
	v := t.Pop()
	expect("ipop", v, value.TypeInteger)
	return v.(value.IntegerValue)
}

func (t *TracedStack) LPop() value.LongValue {
	v := t.Pop()
	expect("lpop", v, value.TypeLong)
	return v.(value.LongValue)
}

func (t *TracedStack) FPop() value.FloatValue {
	v := t.Pop()
	expect("fpop", v, value.TypeFloat)
	return v.(value.FloatValue)
}

func (t *TracedStack) DPop() value.DoubleValue {
	v := t.Pop()
	expect("dpop", v, value.TypeDouble)
	return v.(value.DoubleValue)
}

func (t *TracedStack) APop() value.Value {
	v := t.Pop()
	expect("apop", v, value.TypeReference)
	return v
}

func (t *TracedStack) OPop() value.InstructionOffsetValue {
	v := t.Pop()
	expect("opop", v, value.TypeOffset)
	return v.(value.InstructionOffsetValue)
}

func (t *TracedStack) Pop1() {
	t.Stack.Pop1()
	t.truncate()
}

func (t *TracedStack) Pop2() {
	t.Stack.Pop2()
	t.truncate()
}

func (t *TracedStack) permute(n int, order ...int) {
	t.Stack.permute(n, order...)

	m := len(t.actual) - n
	popped := append([]value.InstructionOffsetValue(nil), t.actual[m:]...)
	t.actual = t.actual[:m]
	t.producers = t.producers[:m]
	for _, i := range order {
		t.actual = append(t.actual, popped[n-1-i])
		t.producers = append(t.producers, t.producerValue)
	}
}

func (t *TracedStack) Dup()    { t.permute(1, 0, 0) }
func (t *TracedStack) DupX1()  { t.permute(2, 0, 1, 0) }
func (t *TracedStack) DupX2()  { t.permute(3, 0, 2, 1, 0) }
func (t *TracedStack) Dup2()   { t.permute(2, 1, 0, 1, 0) }
func (t *TracedStack) Dup2X1() { t.permute(3, 1, 0, 2, 1, 0) }
func (t *TracedStack) Dup2X2() { t.permute(4, 1, 0, 3, 2, 1, 0) }
func (t *TracedStack) Swap()   { t.permute(2, 0, 1) }

// Generalize joins o into t. Producer sets are united, so they only grow.
func (t *TracedStack) Generalize(o *TracedStack) bool {
	changed := t.Stack.Generalize(&o.Stack)
	changed = unite(t.producers, o.producers) || changed
	return unite(t.actual, o.actual) || changed
}

func unite(ps, qs []value.InstructionOffsetValue) (changed bool) {
	for i, p := range ps {
		if q := qs[i]; !p.ContainsAll(q) {
			ps[i] = p.Union(q)
			changed = true
		}
	}
	return
}

func (t *TracedStack) Equal(o *TracedStack) bool {
	return t.Stack.Equal(&o.Stack) &&
		equalProducers(t.producers, o.producers) &&
		equalProducers(t.actual, o.actual)
}

func equalProducers(ps, qs []value.InstructionOffsetValue) bool {
	if len(ps) != len(qs) {
		return false
	}
	for i, p := range ps {
		if !p.Equal(qs[i]) {
			return false
		}
	}
	return true
}

func (t *TracedStack) String() string {
	strs := make([]string, len(t.values))
	for i, v := range t.values {
		strs[i] = t.producers[i].String() + slotString(v)
	}
	return "[" + strings.Join(strs, " ") + "]"
}

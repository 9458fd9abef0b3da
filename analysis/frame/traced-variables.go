package frame

import (
	"strings"

	"github.com/cs-au-dk/jpeval/analysis/value"
)

// TracedVariables are local variables that also track, per slot, the
// offsets of the instructions that stored the value.
type TracedVariables struct {
	Variables
	producerValue value.InstructionOffsetValue
	producers     []value.InstructionOffsetValue
}

func NewTracedVariables(size int) *TracedVariables {
	return &TracedVariables{
		Variables: *NewVariables(size),
		producers: make([]value.InstructionOffsetValue, size),
	}
}

// SetProducerValue sets the producer of all subsequent stores.
func (t *TracedVariables) SetProducerValue(p value.InstructionOffsetValue) {
	t.producerValue = p
}

func (t *TracedVariables) ProducerValue() value.InstructionOffsetValue {
	return t.producerValue
}

// StoredProducerValue returns the producers of the value at index.
func (t *TracedVariables) StoredProducerValue(index int) value.InstructionOffsetValue {
	t.check("producer", index)
	return t.producers[index]
}

func (t *TracedVariables) Reset(size int) {
	t.Variables.Reset(size)
	if cap(t.producers) < size {
		t.producers = make([]value.InstructionOffsetValue, size)
	} else {
		t.producers = t.producers[:size]
		for i := range t.producers {
			t.producers[i] = value.EmptyOffsets
		}
	}
	t.producerValue = value.EmptyOffsets
}

func (t *TracedVariables) Copy() *TracedVariables {
	c := &TracedVariables{}
	c.CopyFrom(t)
	return c
}

func (t *TracedVariables) CopyFrom(o *TracedVariables) {
	t.Variables.CopyFrom(&o.Variables)
	t.producers = append(t.producers[:0], o.producers...)
	t.producerValue = o.producerValue
}

func (t *TracedVariables) Store(index int, v value.Value) {
	t.Variables.Store(index, v)
	t.producers[index] = t.producerValue
	if v.IsCategory2() {
		t.producers[index+1] = t.producerValue
	}
}

// Generalize joins o into t. Producer sets are united, also for slots whose
// values are cleared, so they only grow.
func (t *TracedVariables) Generalize(o *TracedVariables, clearConflicting bool) bool {
	changed := t.Variables.Generalize(&o.Variables, clearConflicting)
	return unite(t.producers, o.producers) || changed
}

func (t *TracedVariables) Equal(o *TracedVariables) bool {
	return t.Variables.Equal(&o.Variables) && equalProducers(t.producers, o.producers)
}

func (t *TracedVariables) String() string {
	strs := make([]string, len(t.values))
	for i, v := range t.values {
		strs[i] = t.producers[i].String() + slotString(v)
	}
	return "[" + strings.Join(strs, " ") + "]"
}

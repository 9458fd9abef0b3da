package frame

import (
	"strings"

	"github.com/cs-au-dk/jpeval/analysis/value"
)

// Variables is an array of local variables. Category 2 values take two
// slots; the second one holds ⊤. Empty slots are nil.
type Variables struct {
	values []value.Value
}

// NewVariables creates size empty variables.
func NewVariables(size int) *Variables {
	return &Variables{make([]value.Value, size)}
}

// Reset empties the variables and resizes them.
func (v *Variables) Reset(size int) {
	if cap(v.values) < size {
		v.values = make([]value.Value, size)
		return
	}
	v.values = v.values[:size]
	for i := range v.values {
		v.values[i] = nil
	}
}

// Copy returns an independent copy of the variables.
func (v *Variables) Copy() *Variables {
	return &Variables{append([]value.Value(nil), v.values...)}
}

// CopyFrom overwrites the variables with the contents of o.
func (v *Variables) CopyFrom(o *Variables) {
	v.values = append(v.values[:0], o.values...)
}

func (v *Variables) Size() int { return len(v.values) }

func (v *Variables) check(op string, index int) {
	if index < 0 || index >= len(v.values) {
		fail(op, ErrIndex, "index %d of %d", index, len(v.values))
	}
}

// Get returns the value at index, or nil if the slot is empty.
func (v *Variables) Get(index int) value.Value {
	v.check("get", index)
	return v.values[index]
}

func (v *Variables) Store(index int, val value.Value) {
	v.check("store", index)
	if val.IsCategory2() {
		v.check("store", index+1)
	}
	// Overwriting the second half of a category 2 value invalidates it.
	if index > 0 {
		if prev := v.values[index-1]; prev != nil && prev.IsCategory2() {
			v.values[index-1] = value.TopValue{}
		}
	}
	v.values[index] = val
	if val.IsCategory2() {
		v.values[index+1] = value.TopValue{}
	}
}

func (v *Variables) Load(index int) value.Value {
	v.check("load", index)
	val := v.values[index]
	if val == nil {
		fail("load", ErrUninitialized, "index %d", index)
	}
	return val
}

func (v *Variables) ILoad(index int) value.IntegerValue {
	val := v.Load(index)
	expect("iload", val, value.TypeInteger)
	return val.(value.IntegerValue)
}

func (v *Variables) LLoad(index int) value.LongValue {
	val := v.Load(index)
	expect("lload", val, value.TypeLong)
	return val.(value.LongValue)
}

func (v *Variables) FLoad(index int) value.FloatValue {
	val := v.Load(index)
	expect("fload", val, value.TypeFloat)
	return val.(value.FloatValue)
}

func (v *Variables) DLoad(index int) value.DoubleValue {
	val := v.Load(index)
	expect("dload", val, value.TypeDouble)
	return val.(value.DoubleValue)
}

func (v *Variables) ALoad(index int) value.Value {
	val := v.Load(index)
	expect("aload", val, value.TypeReference)
	return val
}

func (v *Variables) OLoad(index int) value.InstructionOffsetValue {
	val := v.Load(index)
	expect("ret", val, value.TypeOffset)
	return val.(value.InstructionOffsetValue)
}

// Generalize joins o into v slot by slot. Slots that are empty in either
// frame, or hold values of different computational types, become empty in
// v, and also in o if clearConflicting is set. Two locals of different
// types may share a slot outside of their scopes. It reports whether v
// changed.
func (v *Variables) Generalize(o *Variables, clearConflicting bool) bool {
	if len(v.values) != len(o.values) {
		fail("generalize", ErrSizeMismatch, "%d and %d variables", len(v.values), len(o.values))
	}
	changed := false
	for i, a := range v.values {
		b := o.values[i]
		if a != nil && b != nil && a.ComputationalType() == b.ComputationalType() {
			if g := a.Generalize(b); !g.Equal(a) {
				v.values[i] = g
				changed = true
			}
			continue
		}
		if a != nil {
			v.values[i] = nil
			changed = true
		}
		if clearConflicting {
			o.values[i] = nil
		}
	}
	return changed
}

func (v *Variables) Equal(o *Variables) bool {
	if len(v.values) != len(o.values) {
		return false
	}
	for i, a := range v.values {
		b := o.values[i]
		if (a == nil) != (b == nil) || (a != nil && !a.Equal(b)) {
			return false
		}
	}
	return true
}

// Values returns the slots; empty slots are nil.
func (v *Variables) Values() []value.Value {
	return append([]value.Value(nil), v.values...)
}

func (v *Variables) String() string {
	strs := make([]string, len(v.values))
	for i, val := range v.values {
		strs[i] = slotString(val)
	}
	return "[" + strings.Join(strs, " ") + "]"
}

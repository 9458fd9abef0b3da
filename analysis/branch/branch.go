// Package branch records the control transfers of a simulated instruction.
package branch

import "github.com/cs-au-dk/jpeval/analysis/value"

// Unit accumulates the branch targets of one instruction. The processor
// calls it once per arm: the taken and fall-through arms of a conditional
// branch, and every case plus the default of a switch.
type Unit interface {
	// Branch transfers control to target unconditionally.
	Branch(target int)
	// BranchConditionally transfers control to target with the given
	// certainty.
	BranchConditionally(target int, c value.Certainty)
	ReturnFromMethod()
	ThrowException()

	// Reset prepares the unit for the next instruction.
	Reset()
	// WasCalled reports whether the instruction transferred control. If not,
	// it falls through to the next instruction.
	WasCalled() bool
	// Targets are the successors within the method.
	Targets() value.InstructionOffsetValue
}

// Basic accumulates every target it is given, ignoring certainties.
type Basic struct {
	targets value.InstructionOffsetValue
	called  bool
}

func NewBasic() *Basic { return &Basic{} }

func (b *Basic) Branch(target int) {
	b.targets = value.NewOffsets(target)
	b.called = true
}

func (b *Basic) BranchConditionally(target int, c value.Certainty) {
	b.targets = b.targets.Add(value.Origin{Offset: target})
	b.called = true
}

func (b *Basic) ReturnFromMethod() {
	b.targets = value.EmptyOffsets
	b.called = true
}

func (b *Basic) ThrowException() {
	b.targets = value.EmptyOffsets
	b.called = true
}

func (b *Basic) Reset() {
	b.targets = value.EmptyOffsets
	b.called = false
}

func (b *Basic) WasCalled() bool                       { return b.called }
func (b *Basic) Targets() value.InstructionOffsetValue { return b.targets }

// Traced honors certainties. Once an arm is taken with certainty Always,
// the target is fixed for the rest of the instruction.
type Traced struct {
	Basic
	fixed bool
}

func NewTraced() *Traced { return &Traced{} }

func (t *Traced) Branch(target int) {
	t.Basic.Branch(target)
	t.fixed = true
}

func (t *Traced) BranchConditionally(target int, c value.Certainty) {
	t.called = true
	switch {
	case c == value.Always:
		t.Branch(target)
	case c == value.Maybe && !t.fixed:
		t.targets = t.targets.Add(value.Origin{Offset: target})
	}
}

func (t *Traced) ReturnFromMethod() {
	t.Basic.ReturnFromMethod()
	t.fixed = true
}

func (t *Traced) ThrowException() {
	t.Basic.ThrowException()
	t.fixed = true
}

func (t *Traced) Reset() {
	t.Basic.Reset()
	t.fixed = false
}

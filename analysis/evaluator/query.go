package evaluator

import (
	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/frame"
	"github.com/cs-au-dk/jpeval/analysis/invocation"
	"github.com/cs-au-dk/jpeval/analysis/value"
)

// The results of the last evaluation. Frames are shared with the
// evaluator and must not be modified. Queries for offsets that were not
// traced return nil frames and empty sets.

func (e *Evaluator) Method() *cf.Method     { return e.method }
func (e *Evaluator) Program() *cf.Program   { return e.prog }
func (e *Evaluator) Config() Config         { return e.config }
func (e *Evaluator) Stats() Stats           { return e.stats }
func (e *Evaluator) Factory() value.Factory { return e.factory }

// Recordings are the member values observed by a storing or read by a
// loading evaluator.
func (e *Evaluator) Recordings() *invocation.Recordings { return e.config.Recordings }

// Instruction returns the instruction starting at offset, or nil.
func (e *Evaluator) Instruction(offset int) cf.Instruction {
	if offset < 0 || offset >= len(e.index) {
		return nil
	}
	return e.index[offset]
}

func (e *Evaluator) state(offset int) *state {
	if offset < 0 || offset >= len(e.states) {
		return nil
	}
	return e.states[offset]
}

// IsTraced reports whether the instruction at offset is reachable.
func (e *Evaluator) IsTraced(offset int) bool {
	return e.state(offset) != nil
}

// TracedOffsets returns the offsets of all reachable instructions in
// ascending order.
func (e *Evaluator) TracedOffsets() []int {
	var offsets []int
	for offset, st := range e.states {
		if st != nil {
			offsets = append(offsets, offset)
		}
	}
	return offsets
}

func (e *Evaluator) StackBefore(offset int) *frame.TracedStack {
	if st := e.state(offset); st != nil {
		return st.stackBefore
	}
	return nil
}

func (e *Evaluator) StackAfter(offset int) *frame.TracedStack {
	if st := e.state(offset); st != nil {
		return st.stackAfter
	}
	return nil
}

func (e *Evaluator) VariablesBefore(offset int) *frame.TracedVariables {
	if st := e.state(offset); st != nil {
		return st.varsBefore
	}
	return nil
}

func (e *Evaluator) VariablesAfter(offset int) *frame.TracedVariables {
	if st := e.state(offset); st != nil {
		return st.varsAfter
	}
	return nil
}

// BranchTargets are the targets reported by the branch unit for the
// instruction at offset. They are empty for instructions that fall
// through, return or throw.
func (e *Evaluator) BranchTargets(offset int) value.InstructionOffsetValue {
	if st := e.state(offset); st != nil {
		return st.targets
	}
	return value.EmptyOffsets
}

// IsBranch reports whether the instruction at offset transferred control
// through the branch unit.
func (e *Evaluator) IsBranch(offset int) bool {
	st := e.state(offset)
	return st != nil && st.branched
}

// Successors are the offsets control may continue at after offset,
// including fall-through.
func (e *Evaluator) Successors(offset int) value.InstructionOffsetValue {
	if st := e.state(offset); st != nil {
		return st.successors
	}
	return value.EmptyOffsets
}

// BranchOrigins are the offsets of the branching instructions that
// transfer control to offset.
func (e *Evaluator) BranchOrigins(offset int) value.InstructionOffsetValue {
	if st := e.state(offset); st != nil {
		return st.origins
	}
	return value.EmptyOffsets
}

func (e *Evaluator) IsBranchOrExceptionTarget(offset int) bool {
	st := e.state(offset)
	return st != nil && (!st.origins.IsEmpty() || st.handler)
}

func (e *Evaluator) IsExceptionHandler(offset int) bool {
	st := e.state(offset)
	return st != nil && st.handler
}

// Simulations reports how often the instruction at offset was simulated.
func (e *Evaluator) Simulations(offset int) int {
	if st := e.state(offset); st != nil {
		return st.simulations
	}
	return 0
}

func (e *Evaluator) IsSubroutineStart(offset int) bool {
	_, ok := e.subroutines[offset]
	return ok
}

// IsSubroutineReturning reports whether the subroutine starting at offset
// reaches a ret instruction.
func (e *Evaluator) IsSubroutineReturning(offset int) bool {
	sub, ok := e.subroutines[offset]
	return ok && sub.returning()
}

// IsSubroutineInvocation reports whether the instruction at offset is a
// traced jsr.
func (e *Evaluator) IsSubroutineInvocation(offset int) bool {
	if !e.IsTraced(offset) {
		return false
	}
	switch e.index[offset].Opcode() {
	case cf.JSR, cf.JSR_W:
		return true
	}
	return false
}

// SubroutineCallCount is the number of traced jsr instructions that call
// the subroutine starting at offset.
func (e *Evaluator) SubroutineCallCount(offset int) int {
	if sub, ok := e.subroutines[offset]; ok {
		return sub.callers.Len()
	}
	return 0
}

// SubroutineEnd is the offset just past the last instruction of the
// subroutine starting at offset. It is offset itself for offsets that do
// not start a subroutine.
func (e *Evaluator) SubroutineEnd(offset int) int {
	if sub, ok := e.subroutines[offset]; ok {
		return sub.end
	}
	return offset
}

// SubroutineReturns are the offsets of the ret instructions of the
// subroutine starting at offset.
func (e *Evaluator) SubroutineReturns(offset int) value.InstructionOffsetValue {
	if sub, ok := e.subroutines[offset]; ok {
		return sub.rets
	}
	return value.EmptyOffsets
}

// IsSubroutine reports whether the instruction at offset belongs to a
// subroutine.
func (e *Evaluator) IsSubroutine(offset int) bool {
	for _, sub := range e.subroutines {
		if _, ok := sub.body[offset]; ok {
			return true
		}
	}
	return false
}

// SubroutineStarts returns the entry offsets of all subroutines in
// ascending order.
func (e *Evaluator) SubroutineStarts() []int {
	var starts []int
	for offset := range e.states {
		if e.IsSubroutineStart(offset) {
			starts = append(starts, offset)
		}
	}
	return starts
}

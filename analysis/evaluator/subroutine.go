package evaluator

import (
	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/value"
	"github.com/cs-au-dk/jpeval/utils/worklist"
)

// subroutine describes the code entered by jsr instructions at one
// offset. Return addresses of all call sites are merged, so a ret returns
// to every caller, even along paths where only one of the jsr
// instructions executed. The states after the return sites then include
// values from the other callers.
type subroutine struct {
	start int
	// callers are the offsets of the jsr instructions.
	callers value.InstructionOffsetValue
	// rets are the offsets of the ret instructions that return from it.
	rets value.InstructionOffsetValue
	body map[int]struct{}
	end  int
}

func (s *subroutine) returning() bool { return !s.rets.IsEmpty() }

func (e *Evaluator) subroutineAt(start int) *subroutine {
	sub, ok := e.subroutines[start]
	if !ok {
		sub = &subroutine{start: start, end: start}
		e.subroutines[start] = sub
	}
	return sub
}

// subroutineFacts records calls to and returns from subroutines.
func (e *Evaluator) subroutineFacts(offset int, ins cf.Instruction, successors value.InstructionOffsetValue) {
	switch ins.Opcode() {
	case cf.JSR, cf.JSR_W:
		sub := e.subroutineAt(ins.(*cf.BranchInstruction).Target)
		sub.callers = sub.callers.Add(value.Origin{Offset: offset})
		e.returnSites[cf.Next(ins)] = offset
	case cf.RET:
		for _, address := range successors.Offsets() {
			jsr, ok := e.returnSites[address]
			if !ok {
				continue
			}
			sub := e.subroutineAt(e.index[jsr].(*cf.BranchInstruction).Target)
			sub.rets = sub.rets.Add(value.Origin{Offset: offset})
		}
	}
}

// collectSubroutines computes the extent of every subroutine: the traced
// instructions reachable from its start without returning. Nested
// subroutine calls are stepped over.
func (e *Evaluator) collectSubroutines() {
	for _, sub := range e.subroutines {
		sub.body = map[int]struct{}{}
		worklist.StartUnique(sub.start, func(offset int, add func(int)) {
			st := e.states[offset]
			if st == nil {
				return
			}
			sub.body[offset] = struct{}{}

			ins := e.index[offset]
			switch ins.Opcode() {
			case cf.RET:
				return
			case cf.JSR, cf.JSR_W:
				if next := cf.Next(ins); next < len(e.states) {
					add(next)
				}
				return
			}
			st.successors.ForEach(func(o value.Origin) { add(o.Offset) })
		})

		sub.end = sub.start
		for offset := range sub.body {
			if next := cf.Next(e.index[offset]); next > sub.end {
				sub.end = next
			}
		}
	}
}

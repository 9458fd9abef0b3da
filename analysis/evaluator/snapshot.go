package evaluator

import (
	"fmt"
	"io"
	"strings"

	"github.com/cs-au-dk/jpeval/analysis/frame"
	"github.com/cs-au-dk/jpeval/analysis/value"
	"github.com/cs-au-dk/jpeval/utils"
)

type (
	// Slot is the serializable form of a stack or variable slot.
	Slot struct {
		Empty     bool           `cbor:"1,keyasint,omitempty"`
		Value     value.Encoded  `cbor:"2,keyasint"`
		Producers []value.Origin `cbor:"3,keyasint,omitempty"`
		// Actual producers look through dup and swap. They are only
		// tracked for stack slots.
		Actual []value.Origin `cbor:"4,keyasint,omitempty"`
	}

	// InstructionSnapshot is the serializable state of one traced
	// instruction.
	InstructionSnapshot struct {
		Offset          int    `cbor:"1,keyasint"`
		VariablesBefore []Slot `cbor:"2,keyasint"`
		StackBefore     []Slot `cbor:"3,keyasint"`
		VariablesAfter  []Slot `cbor:"4,keyasint"`
		StackAfter      []Slot `cbor:"5,keyasint"`
		Targets         []int  `cbor:"6,keyasint,omitempty"`
		Origins         []int  `cbor:"7,keyasint,omitempty"`
		Handler         bool   `cbor:"8,keyasint,omitempty"`
	}

	SubroutineSnapshot struct {
		Start   int   `cbor:"1,keyasint"`
		End     int   `cbor:"2,keyasint"`
		Callers []int `cbor:"3,keyasint"`
		Returns []int `cbor:"4,keyasint,omitempty"`
	}

	// MethodSnapshot is the serializable result of an evaluation.
	MethodSnapshot struct {
		Method       string                `cbor:"1,keyasint"`
		Instructions []InstructionSnapshot `cbor:"2,keyasint"`
		Subroutines  []SubroutineSnapshot  `cbor:"3,keyasint,omitempty"`
	}
)

func stackSlots(s *frame.TracedStack) []Slot {
	if s == nil {
		return nil
	}
	slots := make([]Slot, s.Size())
	for i := range slots {
		slots[i] = Slot{
			Value:     value.Encode(s.Bottom(i)),
			Producers: s.BottomProducerValue(i).Origins(),
			Actual:    s.BottomActualProducerValue(i).Origins(),
		}
	}
	return slots
}

func variableSlots(v *frame.TracedVariables) []Slot {
	if v == nil {
		return nil
	}
	slots := make([]Slot, v.Size())
	for i := range slots {
		val := v.Get(i)
		slots[i] = Slot{
			Empty:     val == nil,
			Value:     value.Encode(val),
			Producers: v.StoredProducerValue(i).Origins(),
		}
	}
	return slots
}

// MethodSnapshot collects the states of all traced instructions in
// ascending offset order.
func (e *Evaluator) MethodSnapshot() MethodSnapshot {
	snap := MethodSnapshot{}
	if e.method != nil {
		snap.Method = e.method.String()
	}
	for offset, st := range e.states {
		if st == nil {
			continue
		}
		snap.Instructions = append(snap.Instructions, InstructionSnapshot{
			Offset:          offset,
			VariablesBefore: variableSlots(st.varsBefore),
			StackBefore:     stackSlots(st.stackBefore),
			VariablesAfter:  variableSlots(st.varsAfter),
			StackAfter:      stackSlots(st.stackAfter),
			Targets:         st.targets.Offsets(),
			Origins:         st.origins.Offsets(),
			Handler:         st.handler,
		})
	}
	for _, start := range e.SubroutineStarts() {
		sub := e.subroutines[start]
		snap.Subroutines = append(snap.Subroutines, SubroutineSnapshot{
			Start:   start,
			End:     sub.end,
			Callers: sub.callers.Offsets(),
			Returns: sub.rets.Offsets(),
		})
	}
	return snap
}

// Snapshot encodes the result of the last evaluation in canonical CBOR.
// Evaluating the same method with the same configuration gives identical
// bytes.
func (e *Evaluator) Snapshot() ([]byte, error) {
	return utils.CanonicalCBOR.Marshal(e.MethodSnapshot())
}

// Dump writes a listing of the traced state at every instruction.
func (e *Evaluator) Dump(w io.Writer) error {
	m := e.method
	if m == nil {
		return nil
	}
	b := &strings.Builder{}
	fmt.Fprintln(b, utils.MethodString(m.Class, m.Name, m.Descriptor))
	for _, ins := range m.Code {
		offset := ins.Offset()
		st := e.state(offset)
		if st == nil {
			fmt.Fprintf(b, "  %s unreachable\n", utils.InsString(ins))
			continue
		}

		var notes []string
		if st.handler {
			notes = append(notes, "handler")
		}
		if e.IsSubroutineStart(offset) {
			notes = append(notes, fmt.Sprintf("subroutine to %d", e.SubroutineEnd(offset)))
		}
		if !st.origins.IsEmpty() {
			notes = append(notes, "from "+st.origins.String())
		}
		switch {
		case st.branched && st.targets.IsEmpty():
			notes = append(notes, "exits")
		case st.branched:
			notes = append(notes, "to "+st.targets.String())
		}
		fmt.Fprintf(b, "  %s", utils.InsString(ins))
		if len(notes) > 0 {
			fmt.Fprintf(b, " (%s)", strings.Join(notes, ", "))
		}
		fmt.Fprintln(b)
		fmt.Fprintf(b, "      vars  %s -> %s\n", st.varsBefore, st.varsAfter)
		fmt.Fprintf(b, "      stack %s -> %s\n", st.stackBefore, st.stackAfter)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

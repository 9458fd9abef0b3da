package testutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cs-au-dk/jpeval/analysis/frame"
	"github.com/cs-au-dk/jpeval/analysis/value"
)

// Results are the evaluation results that annotations are checked
// against.
type Results interface {
	IsTraced(offset int) bool
	BranchTargets(offset int) value.InstructionOffsetValue
	BranchOrigins(offset int) value.InstructionOffsetValue
	StackAfter(offset int) *frame.TracedStack
	VariablesAfter(offset int) *frame.TracedVariables
	IsExceptionHandler(offset int) bool
	IsSubroutineStart(offset int) bool
	IsSubroutineReturning(offset int) bool
	SubroutineEnd(offset int) int
	IsSubroutine(offset int) bool
}

type Annotation interface {
	// Returns related annotations (created from notes on the same line).
	Related() annList
	String() string
	Note() *Note
	Manager() NotesManager
	FalseNegative() bool

	// Check compares the annotation with the results of evaluating its
	// method, which failed if err is not nil.
	Check(r Results, err error) error
}

// AnnFalseNegative tags the annotations on its line as known imprecisions.
type AnnFalseNegative struct {
	basicAnnotation
}

func (AnnFalseNegative) Check(Results, error) error { return nil }

// AnnFails expects the evaluation of the method to fail, optionally with an
// error containing the given text.
type AnnFails struct {
	basicAnnotation
	contains string
}

func (a AnnFails) Check(_ Results, err error) error {
	switch {
	case err == nil:
		return fmt.Errorf("%s: expected the evaluation to fail", a.note)
	case !strings.Contains(err.Error(), a.contains):
		return fmt.Errorf("%s: expected an error containing %q, found %v", a.note, a.contains, err)
	}
	return nil
}

type AnnReachable struct {
	basicAnnotation
	reachable bool
}

func (a AnnReachable) Check(r Results, err error) error {
	if err := a.instruction(err); err != nil {
		return err
	}
	if r.IsTraced(a.note.Offset) != a.reachable {
		if a.reachable {
			return fmt.Errorf("%s: expected the instruction to be reachable", a.note)
		}
		return fmt.Errorf("%s: expected the instruction to be unreachable", a.note)
	}
	return nil
}

// AnnOffsets expects a set of offsets associated with the instruction:
// its branch targets or the origins of branches to it.
type AnnOffsets struct {
	basicAnnotation
	expected []int
	origins  bool
}

func (a AnnOffsets) Check(r Results, err error) error {
	if err := a.instruction(err); err != nil {
		return err
	}
	found := r.BranchTargets(a.note.Offset)
	if a.origins {
		found = r.BranchOrigins(a.note.Offset)
	}
	if err := sameOffsets(a.expected, found); err != nil {
		return fmt.Errorf("%s: %v", a.note, err)
	}
	return nil
}

// AnnTop expects the top of the stack after the instruction to print as
// the given value, and optionally to be produced by the given offsets.
type AnnTop struct {
	basicAnnotation
	value     string
	producers []int
}

func (a AnnTop) Check(r Results, err error) error {
	if err := a.instruction(err); err != nil {
		return err
	}
	stack := r.StackAfter(a.note.Offset)
	if stack == nil || stack.Size() == 0 {
		return fmt.Errorf("%s: expected a non-empty stack, found %v", a.note, stack)
	}
	if top := stack.Top(0).String(); top != a.value {
		return fmt.Errorf("%s: expected %s on top of the stack, found %s", a.note, a.value, top)
	}
	if a.producers != nil {
		if err := sameOffsets(a.producers, stack.TopProducerValue(0)); err != nil {
			return fmt.Errorf("%s: producers: %v", a.note, err)
		}
	}
	return nil
}

// AnnVar expects the variable after the instruction to print as the
// given value; "_" denotes an empty slot.
type AnnVar struct {
	basicAnnotation
	index int
	value string
}

func (a AnnVar) Check(r Results, err error) error {
	if err := a.instruction(err); err != nil {
		return err
	}
	vars := r.VariablesAfter(a.note.Offset)
	if vars == nil || a.index >= vars.Size() {
		return fmt.Errorf("%s: no variable %d in %v", a.note, a.index, vars)
	}
	found := "_"
	if v := vars.Get(a.index); v != nil {
		found = v.String()
	}
	if found != a.value {
		return fmt.Errorf("%s: expected %s in variable %d, found %s", a.note, a.value, a.index, found)
	}
	return nil
}

type AnnStackSize struct {
	basicAnnotation
	size int
}

func (a AnnStackSize) Check(r Results, err error) error {
	if err := a.instruction(err); err != nil {
		return err
	}
	if stack := r.StackAfter(a.note.Offset); stack == nil || stack.Size() != a.size {
		return fmt.Errorf("%s: expected %d stack slots, found %v", a.note, a.size, stack)
	}
	return nil
}

type AnnHandler struct {
	basicAnnotation
}

func (a AnnHandler) Check(r Results, err error) error {
	if err := a.instruction(err); err != nil {
		return err
	}
	if !r.IsExceptionHandler(a.note.Offset) {
		return fmt.Errorf("%s: expected a reachable exception handler", a.note)
	}
	return nil
}

// AnnSubroutine expects a subroutine to start at the instruction and to
// end at the given offset. Subroutines that never return are marked with
// the argument "exits".
type AnnSubroutine struct {
	basicAnnotation
	end       int
	returning bool
}

func (a AnnSubroutine) Check(r Results, err error) error {
	if err := a.instruction(err); err != nil {
		return err
	}
	offset := a.note.Offset
	switch {
	case !r.IsSubroutineStart(offset):
		return fmt.Errorf("%s: expected a subroutine to start here", a.note)
	case r.SubroutineEnd(offset) != a.end:
		return fmt.Errorf("%s: expected the subroutine to end at %d, found %d", a.note, a.end, r.SubroutineEnd(offset))
	case r.IsSubroutineReturning(offset) != a.returning:
		return fmt.Errorf("%s: expected returning to be %t", a.note, a.returning)
	}
	return nil
}

// AnnInSubroutine expects the instruction to belong to a subroutine, or
// not with the argument false.
type AnnInSubroutine struct {
	basicAnnotation
	inside bool
}

func (a AnnInSubroutine) Check(r Results, err error) error {
	if err := a.instruction(err); err != nil {
		return err
	}
	if r.IsSubroutine(a.note.Offset) != a.inside {
		return fmt.Errorf("%s: expected membership in a subroutine to be %t", a.note, a.inside)
	}
	return nil
}

func sameOffsets(expected []int, found value.InstructionOffsetValue) error {
	offsets := found.Offsets()
	ok := len(offsets) == len(expected)
	for i := 0; ok && i < len(expected); i++ {
		ok = offsets[i] == expected[i]
	}
	if !ok {
		return fmt.Errorf("expected %v, found %s", expected, found)
	}
	return nil
}

func atoiAll(args []string) ([]int, error) {
	ns := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, err
		}
		ns = append(ns, n)
	}
	return ns, nil
}

// Package checks answers the questions optimization passes ask about an
// evaluated method: which instructions certainly fail, which produce
// constants, and which branches are decided.
package checks

import (
	"fmt"

	"github.com/tliron/commonlog"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/evaluator"
	"github.com/cs-au-dk/jpeval/analysis/value"
)

var log = commonlog.GetLogger("jpeval.checks")

type Kind int

const (
	DivisionByZero Kind = iota
	NullDereference
	Constant
	DecidedBranch
	Unreachable
)

func (k Kind) String() string {
	switch k {
	case DivisionByZero:
		return "division by zero"
	case NullDereference:
		return "null dereference"
	case Constant:
		return "constant"
	case DecidedBranch:
		return "decided branch"
	case Unreachable:
		return "unreachable"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Finding is one fact about the instruction at Offset.
type Finding struct {
	Kind   Kind
	Offset int
	// Value is the produced constant, or the certainly null reference.
	Value value.Value
	// Targets are the only successors of a decided branch.
	Targets value.InstructionOffsetValue
	// Rewrite reports whether a certain failure may be replaced by an
	// explicit throw.
	Rewrite bool
}

func (f Finding) String() string {
	str := fmt.Sprintf("%d: %s", f.Offset, f.Kind)
	switch f.Kind {
	case Constant:
		str += " " + f.Value.String()
	case DecidedBranch:
		str += " to " + f.Targets.String()
	case DivisionByZero, NullDereference:
		if f.Rewrite {
			str += " (rewrite)"
		} else {
			str += " (kept)"
		}
	}
	return str
}

func isDivision(op cf.Opcode) bool {
	switch op {
	case cf.IDIV, cf.LDIV, cf.IREM, cf.LREM:
		return true
	}
	return false
}

// CertainDivisionByZero reports whether the integer or long division at
// offset is reached and always divides by zero.
func CertainDivisionByZero(e *evaluator.Evaluator, offset int) bool {
	ins, ok := instruction(e, offset)
	if !ok || !isDivision(ins.Opcode()) {
		return false
	}
	switch divisor := e.StackBefore(offset).Top(0).(type) {
	case value.IntegerValue:
		c, ok := divisor.Constant()
		return ok && c == 0
	case value.LongValue:
		c, ok := divisor.Constant()
		return ok && c == 0
	}
	return false
}

// receiverDepth is the stack slot, counted from the top, of the reference
// dereferenced by ins.
func receiverDepth(ins cf.Instruction) (int, bool) {
	op := ins.Opcode()
	switch {
	case op == cf.GETFIELD, op == cf.ARRAYLENGTH, op == cf.ATHROW,
		op == cf.MONITORENTER, op == cf.MONITOREXIT:
		return 0, true
	case cf.IALOAD <= op && op <= cf.SALOAD:
		return 1, true
	case op == cf.LASTORE, op == cf.DASTORE:
		return 3, true
	case cf.IASTORE <= op && op <= cf.SASTORE:
		return 2, true
	case op == cf.PUTFIELD:
		ref := ins.(*cf.ConstantInstruction).Constant.(cf.FieldRef)
		if cf.IsCategory2Type(ref.Descriptor) {
			return 2, true
		}
		return 1, true
	case op == cf.INVOKEVIRTUAL, op == cf.INVOKESPECIAL, op == cf.INVOKEINTERFACE:
		ref := ins.(*cf.ConstantInstruction).Constant.(cf.MethodRef)
		size, err := cf.ParameterSize(ref.Descriptor, true)
		return size, err == nil
	}
	return 0, false
}

// NullReceiver returns the reference dereferenced by the instruction at
// offset, if the instruction dereferences one.
func NullReceiver(e *evaluator.Evaluator, offset int) (value.ReferenceValue, bool) {
	ins, ok := instruction(e, offset)
	if !ok {
		return value.ReferenceValue{}, false
	}
	depth, ok := receiverDepth(ins)
	stack := e.StackBefore(offset)
	if !ok || depth >= stack.Size() {
		return value.ReferenceValue{}, false
	}
	v := stack.Top(depth)
	if v.ComputationalType() != value.TypeReference {
		return value.ReferenceValue{}, false
	}
	return value.AsReference(v), true
}

// CertainNullDereference reports whether the instruction at offset is
// reached and always dereferences null.
func CertainNullDereference(e *evaluator.Evaluator, offset int) bool {
	ref, ok := NullReceiver(e, offset)
	return ok && ref.IsNull() == value.Always
}

// RewriteCertainFailure reports whether a client may replace the
// instruction at offset by an explicit throw. In conservative mode certain
// failures are kept.
func RewriteCertainFailure(e *evaluator.Evaluator, offset int) bool {
	if e.Config().Conservative {
		return false
	}
	return CertainDivisionByZero(e, offset) || CertainNullDereference(e, offset)
}

// ConstantAt returns the particular value the instruction at offset pushes,
// if any. Instructions that only load constants or move stack slots are
// not reported.
func ConstantAt(e *evaluator.Evaluator, offset int) (value.Value, bool) {
	ins, ok := instruction(e, offset)
	if !ok || isConstantLoad(ins.Opcode()) {
		return nil, false
	}
	stack := e.StackAfter(offset)
	if stack.Size() == 0 {
		return nil, false
	}
	top := stack.Top(0)
	if !value.IsParticular(top) || !stack.TopProducerValue(0).Contains(offset) {
		return nil, false
	}
	if !stack.TopActualProducerValue(0).Contains(offset) {
		return nil, false
	}
	switch top.ComputationalType() {
	case value.TypeInteger, value.TypeLong, value.TypeFloat, value.TypeDouble:
		return top, true
	}
	return nil, false
}

func isConstantLoad(op cf.Opcode) bool {
	return cf.ACONST_NULL <= op && op <= cf.LDC2_W
}

// DecidedBranches returns the traced conditional branches and switches
// that always continue at the same offset.
func DecidedBranches(e *evaluator.Evaluator) []int {
	var offsets []int
	for _, offset := range e.TracedOffsets() {
		ins, _ := instruction(e, offset)
		op := ins.Opcode()
		if !op.IsConditionalBranch() && op != cf.TABLESWITCH && op != cf.LOOKUPSWITCH {
			continue
		}
		if e.BranchTargets(offset).Len() == 1 {
			offsets = append(offsets, offset)
		}
	}
	return offsets
}

// UnreachableCode returns the offsets of all instructions the evaluation
// never reached.
func UnreachableCode(e *evaluator.Evaluator) []int {
	var offsets []int
	for _, ins := range e.Method().Code {
		if !e.IsTraced(ins.Offset()) {
			offsets = append(offsets, ins.Offset())
		}
	}
	return offsets
}

func instruction(e *evaluator.Evaluator, offset int) (cf.Instruction, bool) {
	if !e.IsTraced(offset) {
		return nil, false
	}
	return e.Instruction(offset), true
}

// Analyze collects all findings of the method last evaluated by e, in
// ascending offset order.
func Analyze(e *evaluator.Evaluator) []Finding {
	var findings []Finding
	decided := map[int]bool{}
	for _, offset := range DecidedBranches(e) {
		decided[offset] = true
	}
	unreachable := map[int]bool{}
	for _, offset := range UnreachableCode(e) {
		unreachable[offset] = true
	}

	for _, ins := range e.Method().Code {
		offset := ins.Offset()
		switch {
		case unreachable[offset]:
			findings = append(findings, Finding{Kind: Unreachable, Offset: offset})
		case CertainDivisionByZero(e, offset):
			findings = append(findings, Finding{
				Kind:    DivisionByZero,
				Offset:  offset,
				Rewrite: RewriteCertainFailure(e, offset),
			})
		case CertainNullDereference(e, offset):
			ref, _ := NullReceiver(e, offset)
			findings = append(findings, Finding{
				Kind:    NullDereference,
				Offset:  offset,
				Value:   ref,
				Rewrite: RewriteCertainFailure(e, offset),
			})
		case decided[offset]:
			findings = append(findings, Finding{
				Kind:    DecidedBranch,
				Offset:  offset,
				Targets: e.BranchTargets(offset),
			})
		default:
			if v, ok := ConstantAt(e, offset); ok {
				findings = append(findings, Finding{Kind: Constant, Offset: offset, Value: v})
			}
		}
	}

	log.Debugf("%s: %d findings", e.Method(), len(findings))
	return findings
}

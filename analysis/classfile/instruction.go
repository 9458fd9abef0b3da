package classfile

import (
	"fmt"
	"strconv"
	"strings"
)

// Instruction is a decoded instruction at a fixed offset of a method body.
// The set of implementations is closed: *SimpleInstruction,
// *VariableInstruction, *ConstantInstruction, *BranchInstruction,
// *TableSwitchInstruction and *LookupSwitchInstruction.
type Instruction interface {
	Offset() int
	Opcode() Opcode
	// Length is the encoded size of the instruction in bytes.
	Length() int
	String() string

	isInstruction()
}

type header struct {
	op     Opcode
	offset int
}

func (h header) Offset() int    { return h.offset }
func (h header) Opcode() Opcode { return h.op }
func (header) isInstruction()   {}

type (
	// SimpleInstruction has no operand, or an inline integer operand
	// (iconst_*, bipush, sipush, newarray).
	SimpleInstruction struct {
		header
		Constant int
	}

	// VariableInstruction accesses a local variable slot.
	VariableInstruction struct {
		header
		Index int
		// Constant is the increment of iinc.
		Constant int
		Wide     bool
	}

	// ConstantInstruction references a constant pool entry.
	ConstantInstruction struct {
		header
		Constant Constant
		// Extra is the dimension count of multianewarray, or the argument
		// count byte of invokeinterface.
		Extra int
	}

	// BranchInstruction transfers control to an absolute offset.
	BranchInstruction struct {
		header
		Target int
	}

	// TableSwitchInstruction dispatches on a dense range of keys.
	TableSwitchInstruction struct {
		header
		Default int
		Low     int32
		High    int32
		Targets []int
	}

	// LookupSwitchInstruction dispatches on a sparse set of keys.
	LookupSwitchInstruction struct {
		header
		Default int
		Keys    []int32
		Targets []int
	}
)

// NewSimple creates a simple instruction. The constant is only meaningful
// for iconst_*, bipush, sipush and newarray.
func NewSimple(offset int, op Opcode, constant int) *SimpleInstruction {
	if ICONST_M1 <= op && op <= ICONST_5 {
		constant = int(op) - int(ICONST_0)
	}
	return &SimpleInstruction{header{op, offset}, constant}
}

// NewVariable creates a local variable instruction. Short-form opcodes
// take their index from the opcode.
func NewVariable(offset int, op Opcode, index, constant int) *VariableInstruction {
	if implicit, ok := op.ImplicitIndex(); ok {
		index = implicit
	}
	wide := false
	if _, short := op.ImplicitIndex(); !short {
		wide = index > 0xff || constant < -128 || constant > 127
	}
	return &VariableInstruction{header{op, offset}, index, constant, wide}
}

// NewConstant creates a constant instruction.
func NewConstant(offset int, op Opcode, c Constant, extra int) *ConstantInstruction {
	return &ConstantInstruction{header{op, offset}, c, extra}
}

// NewBranch creates a branch instruction with an absolute target offset.
func NewBranch(offset int, op Opcode, target int) *BranchInstruction {
	return &BranchInstruction{header{op, offset}, target}
}

// NewTableSwitch creates a tableswitch instruction.
func NewTableSwitch(offset, deflt int, low, high int32, targets []int) *TableSwitchInstruction {
	return &TableSwitchInstruction{header{TABLESWITCH, offset}, deflt, low, high, targets}
}

// NewLookupSwitch creates a lookupswitch instruction.
func NewLookupSwitch(offset, deflt int, keys []int32, targets []int) *LookupSwitchInstruction {
	return &LookupSwitchInstruction{header{LOOKUPSWITCH, offset}, deflt, keys, targets}
}

func (i *SimpleInstruction) Length() int { return opcodes[i.op].length }

func (i *VariableInstruction) Length() int {
	if !i.Wide {
		return opcodes[i.op].length
	}
	// wide prefix, opcode, two-byte index and, for iinc, a two-byte increment.
	if i.op == IINC {
		return 6
	}
	return 4
}

func (i *ConstantInstruction) Length() int { return opcodes[i.op].length }

func (i *BranchInstruction) Length() int { return opcodes[i.op].length }

func switchPadding(offset int) int {
	return (4 - (offset+1)%4) % 4
}

func (i *TableSwitchInstruction) Length() int {
	return 1 + switchPadding(i.offset) + 12 + 4*len(i.Targets)
}

func (i *LookupSwitchInstruction) Length() int {
	return 1 + switchPadding(i.offset) + 8 + 8*len(i.Targets)
}

// Next returns the offset of the instruction that follows i in the code.
func Next(i Instruction) int {
	return i.Offset() + i.Length()
}

func (i *SimpleInstruction) String() string {
	switch i.op {
	case BIPUSH, SIPUSH, NEWARRAY:
		return fmt.Sprintf("[%d] %s %d", i.offset, i.op, i.Constant)
	}
	return fmt.Sprintf("[%d] %s", i.offset, i.op)
}

func (i *VariableInstruction) String() string {
	if _, short := i.op.ImplicitIndex(); short {
		return fmt.Sprintf("[%d] %s", i.offset, i.op)
	}
	if i.op == IINC {
		return fmt.Sprintf("[%d] %s v%d, %d", i.offset, i.op, i.Index, i.Constant)
	}
	return fmt.Sprintf("[%d] %s v%d", i.offset, i.op, i.Index)
}

func (i *ConstantInstruction) String() string {
	if i.op == MULTIANEWARRAY {
		return fmt.Sprintf("[%d] %s %s, %d", i.offset, i.op, i.Constant, i.Extra)
	}
	return fmt.Sprintf("[%d] %s %s", i.offset, i.op, i.Constant)
}

func (i *BranchInstruction) String() string {
	return fmt.Sprintf("[%d] %s %d", i.offset, i.op, i.Target)
}

func (i *TableSwitchInstruction) String() string {
	strs := make([]string, 0, len(i.Targets))
	for k, t := range i.Targets {
		strs = append(strs, fmt.Sprintf("%d: %d", int(i.Low)+k, t))
	}
	return fmt.Sprintf("[%d] tableswitch { %s, default: %d }",
		i.offset, strings.Join(strs, ", "), i.Default)
}

func (i *LookupSwitchInstruction) String() string {
	strs := make([]string, 0, len(i.Targets))
	for k, t := range i.Targets {
		strs = append(strs, strconv.Itoa(int(i.Keys[k]))+": "+strconv.Itoa(t))
	}
	return fmt.Sprintf("[%d] lookupswitch { %s, default: %d }",
		i.offset, strings.Join(strs, ", "), i.Default)
}

// Successors lists the static branch targets of an instruction, ignoring
// fall-through.
func Successors(i Instruction) []int {
	switch i := i.(type) {
	case *BranchInstruction:
		return []int{i.Target}
	case *TableSwitchInstruction:
		return append([]int{i.Default}, i.Targets...)
	case *LookupSwitchInstruction:
		return append([]int{i.Default}, i.Targets...)
	}
	return nil
}

// Package processor simulates the effect of single instructions on an
// operand stack and local variables.
package processor

import (
	"errors"
	"fmt"

	"github.com/cs-au-dk/jpeval/analysis/branch"
	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/frame"
	"github.com/cs-au-dk/jpeval/analysis/invocation"
	"github.com/cs-au-dk/jpeval/analysis/value"
)

var ErrUnsupported = errors.New("unsupported instruction")

// Processor dispatches instructions by kind and then by opcode. Values
// are created by the factory, control transfers are reported to the branch
// unit, and member accesses are delegated to the invocation unit.
type Processor struct {
	Factory    value.Factory
	Branch     branch.Unit
	Invocation *invocation.Unit
	// Method is the method being simulated. Return instructions report
	// their value to the invocation unit on its behalf.
	Method *cf.Method
	// DivisionFailures counts divisions by a particular zero that were
	// replaced by generic results.
	DivisionFailures int
}

func New(f value.Factory, b branch.Unit, inv *invocation.Unit) *Processor {
	return &Processor{Factory: f, Branch: b, Invocation: inv}
}

// Process simulates ins. Violated stack and variable contracts panic with
// a *frame.Error.
func (p *Processor) Process(ins cf.Instruction, stack frame.OperandStack, vars frame.LocalVariables) error {
	switch ins := ins.(type) {
	case *cf.SimpleInstruction:
		return p.simple(ins, stack)
	case *cf.VariableInstruction:
		return p.variable(ins, stack, vars)
	case *cf.ConstantInstruction:
		return p.constant(ins, stack)
	case *cf.BranchInstruction:
		return p.jump(ins, stack)
	case *cf.TableSwitchInstruction:
		key := stack.IPop()
		cases := make([]value.Certainty, len(ins.Targets))
		for i := range cases {
			cases[i] = key.Eq(value.ConstantInteger(ins.Low + int32(i)))
		}
		p.switchTargets(cases, ins.Targets, ins.Default)
		return nil
	case *cf.LookupSwitchInstruction:
		key := stack.IPop()
		cases := make([]value.Certainty, len(ins.Targets))
		for i, k := range ins.Keys {
			cases[i] = key.Eq(value.ConstantInteger(k))
		}
		p.switchTargets(cases, ins.Targets, ins.Default)
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnsupported, ins)
}

// switchTargets branches to every case with its certainty. The default
// is taken when no case is, so it is certain only if all cases are
// impossible.
func (p *Processor) switchTargets(cases []value.Certainty, targets []int, deflt int) {
	def := value.Always
	for i, c := range cases {
		p.Branch.BranchConditionally(targets[i], c)
		switch c {
		case value.Always:
			def = value.Never
		case value.Maybe:
			if def == value.Always {
				def = value.Maybe
			}
		}
	}
	p.Branch.BranchConditionally(deflt, def)
}

func (p *Processor) jump(ins *cf.BranchInstruction, stack frame.OperandStack) error {
	zero := value.ConstantInteger(0)

	var c value.Certainty
	switch ins.Opcode() {
	case cf.GOTO, cf.GOTO_W:
		p.Branch.Branch(ins.Target)
		return nil
	case cf.JSR, cf.JSR_W:
		stack.Push(value.NewOffsets(cf.Next(ins)))
		p.Branch.Branch(ins.Target)
		return nil

	case cf.IFEQ:
		c = stack.IPop().Eq(zero)
	case cf.IFNE:
		c = stack.IPop().Eq(zero).Negate()
	case cf.IFLT:
		c = stack.IPop().Lt(zero)
	case cf.IFGE:
		c = stack.IPop().Lt(zero).Negate()
	case cf.IFGT:
		c = zero.Lt(stack.IPop())
	case cf.IFLE:
		c = stack.IPop().Le(zero)

	case cf.IF_ICMPEQ, cf.IF_ICMPNE, cf.IF_ICMPLT, cf.IF_ICMPGE, cf.IF_ICMPGT, cf.IF_ICMPLE:
		// The first popped operand is the right hand side.
		b := stack.IPop()
		a := stack.IPop()
		switch ins.Opcode() {
		case cf.IF_ICMPEQ:
			c = a.Eq(b)
		case cf.IF_ICMPNE:
			c = a.Eq(b).Negate()
		case cf.IF_ICMPLT:
			c = a.Lt(b)
		case cf.IF_ICMPGE:
			c = a.Lt(b).Negate()
		case cf.IF_ICMPGT:
			c = b.Lt(a)
		case cf.IF_ICMPLE:
			c = a.Le(b)
		}

	case cf.IF_ACMPEQ, cf.IF_ACMPNE:
		b := value.AsReference(stack.APop())
		a := value.AsReference(stack.APop())
		c = a.ReferenceEq(b)
		if ins.Opcode() == cf.IF_ACMPNE {
			c = c.Negate()
		}

	case cf.IFNULL:
		c = value.AsReference(stack.APop()).IsNull()
	case cf.IFNONNULL:
		c = value.AsReference(stack.APop()).IsNull().Negate()

	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, ins)
	}

	p.Branch.BranchConditionally(ins.Target, c)
	p.Branch.BranchConditionally(cf.Next(ins), c.Negate())
	return nil
}

func (p *Processor) variable(ins *cf.VariableInstruction, stack frame.OperandStack, vars frame.LocalVariables) error {
	i := ins.Index
	switch ins.Opcode().Canonical() {
	case cf.ILOAD:
		stack.Push(vars.ILoad(i))
	case cf.LLOAD:
		stack.Push(vars.LLoad(i))
	case cf.FLOAD:
		stack.Push(vars.FLoad(i))
	case cf.DLOAD:
		stack.Push(vars.DLoad(i))
	case cf.ALOAD:
		stack.Push(vars.ALoad(i))

	case cf.ISTORE:
		vars.Store(i, stack.IPop())
	case cf.LSTORE:
		vars.Store(i, stack.LPop())
	case cf.FSTORE:
		vars.Store(i, stack.FPop())
	case cf.DSTORE:
		vars.Store(i, stack.DPop())
	case cf.ASTORE:
		// astore also stores the return addresses of subroutines.
		v := stack.Pop()
		if t := v.ComputationalType(); t != value.TypeReference && t != value.TypeOffset {
			return fmt.Errorf("%w: astore of %s", frame.ErrTypeMismatch, v)
		}
		vars.Store(i, v)

	case cf.IINC:
		vars.Store(i, vars.ILoad(i).Add(p.Factory.IntegerConstant(int32(ins.Constant))))

	case cf.RET:
		addresses := vars.OLoad(i)
		if target, ok := addresses.Single(); ok {
			p.Branch.Branch(target)
			break
		}
		for _, target := range addresses.Offsets() {
			p.Branch.BranchConditionally(target, value.Maybe)
		}
		if addresses.IsEmpty() {
			p.Branch.ReturnFromMethod()
		}

	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, ins)
	}
	return nil
}

func (p *Processor) constant(ins *cf.ConstantInstruction, stack frame.OperandStack) error {
	f := p.Factory
	switch op := ins.Opcode(); op {
	case cf.LDC, cf.LDC_W, cf.LDC2_W:
		stack.Push(f.Constant(ins.Constant))

	case cf.GETSTATIC, cf.PUTSTATIC, cf.GETFIELD, cf.PUTFIELD,
		cf.INVOKEVIRTUAL, cf.INVOKESPECIAL, cf.INVOKESTATIC, cf.INVOKEINTERFACE, cf.INVOKEDYNAMIC:
		return p.Invocation.Execute(ins, stack)

	case cf.NEW, cf.ANEWARRAY, cf.CHECKCAST, cf.INSTANCEOF, cf.MULTIANEWARRAY:
		c, ok := ins.Constant.(cf.ClassConstant)
		if !ok {
			return fmt.Errorf("%w: %v", invocation.ErrOperand, ins)
		}
		class := string(c)
		switch op {
		case cf.NEW:
			stack.Push(f.NewInstance(class))
		case cf.ANEWARRAY:
			count := stack.IPop()
			stack.Push(f.NewArray("["+cf.TypeOfClass(class), count))
		case cf.CHECKCAST:
			stack.Push(f.Cast(stack.APop(), class))
		case cf.INSTANCEOF:
			switch value.AsReference(stack.APop()).InstanceOf(class) {
			case value.Always:
				stack.Push(f.IntegerConstant(1))
			case value.Never:
				stack.Push(f.IntegerConstant(0))
			default:
				stack.Push(f.CreateInteger())
			}
		case cf.MULTIANEWARRAY:
			if ins.Extra < 1 || ins.Extra > cf.ArrayDimensions(class) {
				return fmt.Errorf("%w: %v", invocation.ErrOperand, ins)
			}
			var count value.IntegerValue
			for d := 0; d < ins.Extra; d++ {
				count = stack.IPop()
			}
			// The outermost count is the deepest on the stack.
			stack.Push(f.NewArray(class, count))
		}

	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, ins)
	}
	return nil
}

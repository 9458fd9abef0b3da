package processor

import (
	"errors"
	"fmt"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/frame"
	"github.com/cs-au-dk/jpeval/analysis/value"
)

func (p *Processor) simple(ins *cf.SimpleInstruction, stack frame.OperandStack) error {
	f := p.Factory
	switch op := ins.Opcode(); op {
	case cf.NOP:
	case cf.ACONST_NULL:
		stack.Push(f.Null())
	case cf.ICONST_M1, cf.ICONST_0, cf.ICONST_1, cf.ICONST_2, cf.ICONST_3, cf.ICONST_4, cf.ICONST_5,
		cf.BIPUSH, cf.SIPUSH:
		stack.Push(f.IntegerConstant(int32(ins.Constant)))
	case cf.LCONST_0, cf.LCONST_1:
		stack.Push(f.LongConstant(int64(op - cf.LCONST_0)))
	case cf.FCONST_0, cf.FCONST_1, cf.FCONST_2:
		stack.Push(f.FloatConstant(float32(op - cf.FCONST_0)))
	case cf.DCONST_0, cf.DCONST_1:
		stack.Push(f.DoubleConstant(float64(op - cf.DCONST_0)))

	case cf.IALOAD, cf.BALOAD, cf.CALOAD, cf.SALOAD:
		stack.IPop()
		stack.APop()
		stack.Push(f.CreateInteger())
	case cf.LALOAD:
		stack.IPop()
		stack.APop()
		stack.Push(f.CreateLong())
	case cf.FALOAD:
		stack.IPop()
		stack.APop()
		stack.Push(f.CreateFloat())
	case cf.DALOAD:
		stack.IPop()
		stack.APop()
		stack.Push(f.CreateDouble())
	case cf.AALOAD:
		stack.IPop()
		array := value.AsReference(stack.APop())
		elem := cf.TypeOfClass(cf.NameObject)
		if array.IsArray() {
			elem = cf.ElementType(array.Type())
		}
		stack.Push(f.CreateReference(elem, true, true))

	case cf.IASTORE, cf.BASTORE, cf.CASTORE, cf.SASTORE:
		stack.IPop()
		stack.IPop()
		stack.APop()
	case cf.LASTORE:
		stack.LPop()
		stack.IPop()
		stack.APop()
	case cf.FASTORE:
		stack.FPop()
		stack.IPop()
		stack.APop()
	case cf.DASTORE:
		stack.DPop()
		stack.IPop()
		stack.APop()
	case cf.AASTORE:
		stack.APop()
		stack.IPop()
		stack.APop()

	case cf.POP:
		stack.Pop1()
	case cf.POP2:
		stack.Pop2()
	case cf.DUP:
		stack.Dup()
	case cf.DUP_X1:
		stack.DupX1()
	case cf.DUP_X2:
		stack.DupX2()
	case cf.DUP2:
		stack.Dup2()
	case cf.DUP2_X1:
		stack.Dup2X1()
	case cf.DUP2_X2:
		stack.Dup2X2()
	case cf.SWAP:
		stack.Swap()

	case cf.IADD, cf.ISUB, cf.IMUL, cf.IDIV, cf.IREM, cf.ISHL, cf.ISHR, cf.IUSHR, cf.IAND, cf.IOR, cf.IXOR:
		b := stack.IPop()
		a := stack.IPop()
		stack.Push(p.integerOp(op, a, b))
	case cf.LADD, cf.LSUB, cf.LMUL, cf.LDIV, cf.LREM, cf.LAND, cf.LOR, cf.LXOR:
		b := stack.LPop()
		a := stack.LPop()
		stack.Push(p.longOp(op, a, b))
	case cf.LSHL, cf.LSHR, cf.LUSHR:
		s := stack.IPop()
		a := stack.LPop()
		switch op {
		case cf.LSHL:
			stack.Push(a.Shl(s))
		case cf.LSHR:
			stack.Push(a.Shr(s))
		default:
			stack.Push(a.Ushr(s))
		}
	case cf.FADD, cf.FSUB, cf.FMUL, cf.FDIV, cf.FREM:
		b := stack.FPop()
		a := stack.FPop()
		stack.Push(floatOp(op, a, b))
	case cf.DADD, cf.DSUB, cf.DMUL, cf.DDIV, cf.DREM:
		b := stack.DPop()
		a := stack.DPop()
		stack.Push(doubleOp(op, a, b))
	case cf.INEG:
		stack.Push(stack.IPop().Neg())
	case cf.LNEG:
		stack.Push(stack.LPop().Neg())
	case cf.FNEG:
		stack.Push(stack.FPop().Neg())
	case cf.DNEG:
		stack.Push(stack.DPop().Neg())

	case cf.I2L:
		stack.Push(stack.IPop().ToLong())
	case cf.I2F:
		stack.Push(stack.IPop().ToFloat())
	case cf.I2D:
		stack.Push(stack.IPop().ToDouble())
	case cf.L2I:
		stack.Push(stack.LPop().ToInteger())
	case cf.L2F:
		stack.Push(stack.LPop().ToFloat())
	case cf.L2D:
		stack.Push(stack.LPop().ToDouble())
	case cf.F2I:
		stack.Push(stack.FPop().ToInteger())
	case cf.F2L:
		stack.Push(stack.FPop().ToLong())
	case cf.F2D:
		stack.Push(stack.FPop().ToDouble())
	case cf.D2I:
		stack.Push(stack.DPop().ToInteger())
	case cf.D2L:
		stack.Push(stack.DPop().ToLong())
	case cf.D2F:
		stack.Push(stack.DPop().ToFloat())
	case cf.I2B:
		stack.Push(stack.IPop().ToByte())
	case cf.I2C:
		stack.Push(stack.IPop().ToChar())
	case cf.I2S:
		stack.Push(stack.IPop().ToShort())

	case cf.LCMP:
		b := stack.LPop()
		a := stack.LPop()
		stack.Push(a.Compare(b))
	case cf.FCMPL, cf.FCMPG:
		b := stack.FPop()
		a := stack.FPop()
		stack.Push(a.Compare(b, nanResult(op == cf.FCMPG)))
	case cf.DCMPL, cf.DCMPG:
		b := stack.DPop()
		a := stack.DPop()
		stack.Push(a.Compare(b, nanResult(op == cf.DCMPG)))

	case cf.IRETURN:
		p.exit(stack.IPop())
	case cf.LRETURN:
		p.exit(stack.LPop())
	case cf.FRETURN:
		p.exit(stack.FPop())
	case cf.DRETURN:
		p.exit(stack.DPop())
	case cf.ARETURN:
		p.exit(stack.APop())
	case cf.RETURN:
		p.exit(nil)

	case cf.NEWARRAY:
		typ, err := cf.ArrayTypeOfCode(ins.Constant)
		if err != nil {
			return err
		}
		stack.Push(f.NewArray(typ, stack.IPop()))
	case cf.ARRAYLENGTH:
		length := value.AsReference(stack.APop()).ArrayLength()
		if _, ok := length.Constant(); !ok {
			length = f.CreateInteger()
		}
		stack.Push(length)
	case cf.ATHROW:
		stack.APop()
		p.Branch.ThrowException()
	case cf.MONITORENTER, cf.MONITOREXIT:
		stack.APop()

	default:
		return fmt.Errorf("%w: %v", ErrUnsupported, ins)
	}
	return nil
}

func (p *Processor) exit(v value.Value) {
	if p.Invocation != nil && p.Method != nil {
		p.Invocation.ExitMethod(p.Method, v)
	}
	p.Branch.ReturnFromMethod()
}

func nanResult(greater bool) int32 {
	if greater {
		return 1
	}
	return -1
}

// failed substitutes generic results for divisions by a particular zero.
func (p *Processor) failed(err error) bool {
	if errors.Is(err, value.ErrDivisionByZero) {
		p.DivisionFailures++
		return true
	}
	return false
}

func (p *Processor) integerOp(op cf.Opcode, a, b value.IntegerValue) value.IntegerValue {
	switch op {
	case cf.IADD:
		return a.Add(b)
	case cf.ISUB:
		return a.Sub(b)
	case cf.IMUL:
		return a.Mul(b)
	case cf.IDIV, cf.IREM:
		res, err := a.Div(b)
		if op == cf.IREM {
			res, err = a.Rem(b)
		}
		if p.failed(err) {
			return value.GenericInteger()
		}
		return res
	case cf.ISHL:
		return a.Shl(b)
	case cf.ISHR:
		return a.Shr(b)
	case cf.IUSHR:
		return a.Ushr(b)
	case cf.IAND:
		return a.And(b)
	case cf.IOR:
		return a.Or(b)
	}
	return a.Xor(b)
}

func (p *Processor) longOp(op cf.Opcode, a, b value.LongValue) value.LongValue {
	switch op {
	case cf.LADD:
		return a.Add(b)
	case cf.LSUB:
		return a.Sub(b)
	case cf.LMUL:
		return a.Mul(b)
	case cf.LDIV, cf.LREM:
		res, err := a.Div(b)
		if op == cf.LREM {
			res, err = a.Rem(b)
		}
		if p.failed(err) {
			return value.GenericLong()
		}
		return res
	case cf.LAND:
		return a.And(b)
	case cf.LOR:
		return a.Or(b)
	}
	return a.Xor(b)
}

func floatOp(op cf.Opcode, a, b value.FloatValue) value.FloatValue {
	switch op {
	case cf.FADD:
		return a.Add(b)
	case cf.FSUB:
		return a.Sub(b)
	case cf.FMUL:
		return a.Mul(b)
	case cf.FDIV:
		return a.Div(b)
	}
	return a.Rem(b)
}

func doubleOp(op cf.Opcode, a, b value.DoubleValue) value.DoubleValue {
	switch op {
	case cf.DADD:
		return a.Add(b)
	case cf.DSUB:
		return a.Sub(b)
	case cf.DMUL:
		return a.Mul(b)
	case cf.DDIV:
		return a.Div(b)
	}
	return a.Rem(b)
}

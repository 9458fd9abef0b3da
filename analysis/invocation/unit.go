package invocation

import (
	"errors"
	"fmt"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/frame"
	"github.com/cs-au-dk/jpeval/analysis/value"
)

var ErrOperand = errors.New("unexpected operand")

// Unit performs the stack and variable effects of field accesses,
// invocations, method entry and exit, and exception handler entry.
type Unit struct {
	Semantics Semantics
}

func NewUnit(s Semantics) *Unit {
	return &Unit{s}
}

// producerSetter is implemented by traced frames.
type producerSetter interface {
	SetProducerValue(value.InstructionOffsetValue)
	ProducerValue() value.InstructionOffsetValue
}

// Parameters lists the parameters of a method, including the receiver of
// instance methods, with their local variable slots.
func Parameters(ref cf.MethodRef, static bool) ([]Parameter, string, error) {
	types, ret, err := cf.ParseMethodDescriptor(ref.Descriptor)
	if err != nil {
		return nil, "", err
	}
	params := make([]Parameter, 0, len(types)+1)
	slot := 0
	if !static {
		params = append(params, Parameter{Method: ref, Type: cf.TypeOfClass(ref.Class), This: true})
		slot++
	}
	for _, t := range types {
		params = append(params, Parameter{Method: ref, Index: len(params), Slot: slot, Type: t})
		slot++
		if cf.IsCategory2Type(t) {
			slot++
		}
	}
	return params, ret, nil
}

// EnterMethod stores the parameter values in the variables. Traced
// variables record the parameter slot as producer.
func (u *Unit) EnterMethod(m *cf.Method, vars frame.LocalVariables) error {
	params, _, err := Parameters(m.Ref(), m.IsStatic())
	if err != nil {
		return err
	}
	ps, traced := vars.(producerSetter)
	if traced {
		defer ps.SetProducerValue(ps.ProducerValue())
	}
	for _, p := range params {
		if traced {
			ps.SetProducerValue(value.NewOrigins(value.Origin{Offset: p.Slot, Kind: value.OriginParameter}))
		}
		vars.Store(p.Slot, u.Semantics.MethodParameterValue(m, p))
	}
	return nil
}

// ExitMethod observes the value returned by the method. Methods returning
// void pass nil.
func (u *Unit) ExitMethod(m *cf.Method, v value.Value) {
	if v != nil {
		u.Semantics.SetMethodReturnValue(m, v)
	}
}

// EnterExceptionHandler replaces the stack contents with the caught
// exception.
func (u *Unit) EnterExceptionHandler(m *cf.Method, h cf.ExceptionHandler, stack frame.OperandStack) {
	stack.Clear()
	stack.Push(u.Semantics.ExceptionValue(m, h))
}

// Execute simulates a field access or invocation instruction.
func (u *Unit) Execute(ins *cf.ConstantInstruction, stack frame.OperandStack) error {
	switch op := ins.Opcode(); op {
	case cf.GETSTATIC, cf.PUTSTATIC, cf.GETFIELD, cf.PUTFIELD:
		ref, ok := ins.Constant.(cf.FieldRef)
		if !ok {
			return fmt.Errorf("%w: %s", ErrOperand, ins)
		}
		u.field(op, ref, stack)
	case cf.INVOKEVIRTUAL, cf.INVOKESPECIAL, cf.INVOKESTATIC, cf.INVOKEINTERFACE:
		ref, ok := ins.Constant.(cf.MethodRef)
		if !ok {
			return fmt.Errorf("%w: %s", ErrOperand, ins)
		}
		params, ret, err := Parameters(ref, op == cf.INVOKESTATIC)
		if err != nil {
			return err
		}
		u.arguments(params, stack)
		if ret != cf.TypeVoid {
			stack.Push(u.Semantics.MethodReturnValue(ref, ret))
		}
	case cf.INVOKEDYNAMIC:
		ref, ok := ins.Constant.(cf.DynamicRef)
		if !ok {
			return fmt.Errorf("%w: %s", ErrOperand, ins)
		}
		types, ret, err := cf.ParseMethodDescriptor(ref.Descriptor)
		if err != nil {
			return err
		}
		for i := len(types) - 1; i >= 0; i-- {
			pop(stack, types[i])
		}
		if ret != cf.TypeVoid {
			stack.Push(u.Semantics.DynamicReturnValue(ref, ret))
		}
	default:
		return fmt.Errorf("%w: %s is not an invocation", ErrOperand, ins)
	}
	return nil
}

func (u *Unit) field(op cf.Opcode, ref cf.FieldRef, stack frame.OperandStack) {
	class := cf.IsReferenceType(ref.Descriptor)
	switch op {
	case cf.GETFIELD:
		stack.APop()
		fallthrough
	case cf.GETSTATIC:
		if class {
			stack.Push(u.Semantics.FieldClassValue(ref))
		} else {
			stack.Push(u.Semantics.FieldValue(ref))
		}
	case cf.PUTFIELD, cf.PUTSTATIC:
		v := pop(stack, ref.Descriptor)
		if op == cf.PUTFIELD {
			stack.APop()
		}
		if class {
			u.Semantics.SetFieldClassValue(ref, v)
		} else {
			u.Semantics.SetFieldValue(ref, v)
		}
	}
}

// arguments pops the arguments in reverse order, the receiver last, and
// passes them to the semantics in declaration order.
func (u *Unit) arguments(params []Parameter, stack frame.OperandStack) {
	args := make([]value.Value, len(params))
	for i := len(params) - 1; i >= 0; i-- {
		args[i] = pop(stack, params[i].Type)
	}
	for i, p := range params {
		u.Semantics.SetMethodParameterValue(p, args[i])
	}
}

// pop pops a value of the computational type of the internal type typ.
func pop(stack frame.OperandStack, typ string) value.Value {
	switch {
	case cf.IsIntegerLike(typ):
		return stack.IPop()
	case typ == cf.TypeLong:
		return stack.LPop()
	case typ == cf.TypeFloat:
		return stack.FPop()
	case typ == cf.TypeDouble:
		return stack.DPop()
	}
	return stack.APop()
}

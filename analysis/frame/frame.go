// Package frame implements the operand stack and local variables of a
// simulated method frame, with and without tracing of the instructions
// that produced each slot.
package frame

import (
	"errors"
	"fmt"

	"github.com/cs-au-dk/jpeval/analysis/value"
)

var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrIndex          = errors.New("variable index out of range")
	ErrUninitialized  = errors.New("uninitialized variable")
	ErrSizeMismatch   = errors.New("frames of different sizes")
)

// Error describes a violated frame contract. Frames panic with *Error;
// the evaluator recovers it.
type Error struct {
	Op  string
	Err error
	Msg string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(op string, err error, format string, args ...any) {
	panic(&Error{op, err, fmt.Sprintf(format, args...)})
}

// OperandStack is the interface of simulated operand stacks.
type OperandStack interface {
	Size() int
	// Top returns the slot i positions below the top.
	Top(i int) value.Value

	Push(value.Value)
	// Pop removes a value of any type, including return addresses.
	Pop() value.Value
	IPop() value.IntegerValue
	LPop() value.LongValue
	FPop() value.FloatValue
	DPop() value.DoubleValue
	APop() value.Value
	OPop() value.InstructionOffsetValue

	Pop1()
	Pop2()
	Dup()
	DupX1()
	DupX2()
	Dup2()
	Dup2X1()
	Dup2X2()
	Swap()
	Clear()
}

// LocalVariables is the interface of simulated local variable arrays.
type LocalVariables interface {
	Size() int
	Store(index int, v value.Value)
	// Load reads a value of any type.
	Load(index int) value.Value
	ILoad(index int) value.IntegerValue
	LLoad(index int) value.LongValue
	FLoad(index int) value.FloatValue
	DLoad(index int) value.DoubleValue
	ALoad(index int) value.Value
	OLoad(index int) value.InstructionOffsetValue
}

var (
	_ OperandStack   = (*Stack)(nil)
	_ OperandStack   = (*TracedStack)(nil)
	_ LocalVariables = (*Variables)(nil)
	_ LocalVariables = (*TracedVariables)(nil)
)

func expect(op string, v value.Value, t value.ComputationalType) {
	if v.ComputationalType() != t {
		fail(op, ErrTypeMismatch, "expected %s, found %s", t, v)
	}
}

func slotString(v value.Value) string {
	if v == nil {
		return "_"
	}
	return v.String()
}

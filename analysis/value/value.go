// Package value implements the abstract values manipulated by the partial
// evaluator. Every value has a computational type and a precision tier:
//
//	generic    nothing is known beyond the computational type
//	specific   the value is unknown but identified: equal identities
//	           denote equal runtime values
//	particular the concrete constant is known
//
// Specific values are only created by factories, for unknown inputs.
// Copies keep their identity, and so do operations that return an operand
// unchanged, like adding a particular zero. Operations that compute a new
// value from operands that are not both particular return a generic value.
//
// Values are immutable.
package value

import (
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/cs-au-dk/jpeval/utils"
)

// ComputationalType is the type of a value as seen by the virtual machine.
type ComputationalType int

const (
	TypeInteger ComputationalType = iota
	TypeLong
	TypeFloat
	TypeDouble
	TypeReference
	// TypeTop is the type of unusable slots, e. g. the second half of a
	// category 2 value, or a slot with conflicting contents after a merge.
	TypeTop
	// TypeOffset is the type of return addresses pushed by jsr.
	TypeOffset
)

func (t ComputationalType) String() string {
	switch t {
	case TypeInteger:
		return "int"
	case TypeLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeReference:
		return "ref"
	case TypeTop:
		return "top"
	case TypeOffset:
		return "offset"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Precision is the precision tier of a value.
type Precision int

const (
	Generic Precision = iota
	Specific
	Particular
)

func (p Precision) String() string {
	switch p {
	case Generic:
		return "generic"
	case Specific:
		return "specific"
	case Particular:
		return "particular"
	}
	return fmt.Sprintf("precision(%d)", int(p))
}

// ErrDivisionByZero is returned by integer and long division and remainder
// when the divisor is a particular zero.
var ErrDivisionByZero = errors.New("division by zero")

// Value is implemented by all abstract values.
type Value interface {
	ComputationalType() ComputationalType
	Precision() Precision
	// IsCategory2 reports whether the value occupies two slots.
	IsCategory2() bool
	// Generalize computes the least upper bound of two values. Values of
	// different computational types generalize to ⊤.
	Generalize(Value) Value
	// Equal is structural equality. Floating point constants are compared by
	// their bit patterns.
	Equal(Value) bool
	String() string
}

// Type returns the internal type descriptor of the computational type
// of v, as used when a local or stack slot is described to clients.
func Type(v Value) string {
	switch v.ComputationalType() {
	case TypeInteger:
		return "I"
	case TypeLong:
		return "J"
	case TypeFloat:
		return "F"
	case TypeDouble:
		return "D"
	case TypeReference:
		return AsReference(v).Type()
	}
	return ""
}

// IsParticular reports whether v carries a known constant.
func IsParticular(v Value) bool {
	return v != nil && v.Precision() == Particular
}

var (
	particularColor = func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiGreen).SprintFunc())(is...)
	}
	specificColor = func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiMagenta).SprintFunc())(is...)
	}
	typeColor = func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgYellow).SprintFunc())(is...)
	}
	offsetColor = func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
	}
)

// describe renders the common prefix of a scalar value.
func describe(t ComputationalType, p Precision, id uint32, constant string) string {
	switch p {
	case Particular:
		return typeColor(t.String()) + ":" + particularColor(constant)
	case Specific:
		return typeColor(t.String()) + ":" + specificColor(fmt.Sprintf("#%d", id))
	}
	return typeColor(t.String())
}

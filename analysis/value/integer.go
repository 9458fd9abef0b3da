package value

import "strconv"

// IntegerValue is a value of computational type int. Booleans, bytes,
// chars and shorts are represented as ints.
type IntegerValue struct {
	prec Precision
	id   uint32
	v    int32
}

// GenericInteger returns the unknown int.
func GenericInteger() IntegerValue { return IntegerValue{} }

// ConstantInteger returns the particular int v.
func ConstantInteger(v int32) IntegerValue { return IntegerValue{prec: Particular, v: v} }

func (IntegerValue) ComputationalType() ComputationalType { return TypeInteger }
func (i IntegerValue) Precision() Precision               { return i.prec }
func (IntegerValue) IsCategory2() bool                    { return false }

// Constant returns the concrete value, if known.
func (i IntegerValue) Constant() (int32, bool) { return i.v, i.prec == Particular }

// ID returns the identity of a specific value.
func (i IntegerValue) ID() (uint32, bool) { return i.id, i.prec == Specific }

func (i IntegerValue) Equal(o Value) bool {
	j, ok := o.(IntegerValue)
	return ok && i == j
}

func (i IntegerValue) Generalize(o Value) Value {
	j, ok := o.(IntegerValue)
	switch {
	case !ok:
		return TopValue{}
	case i == j:
		return i
	}
	return GenericInteger()
}

func (i IntegerValue) String() string {
	return describe(TypeInteger, i.prec, i.id, strconv.Itoa(int(i.v)))
}

func (i IntegerValue) is(c int32) bool { return i.prec == Particular && i.v == c }

func (i IntegerValue) sameIdentity(o IntegerValue) bool {
	return i.prec == Specific && i == o
}

func (i IntegerValue) binop(o IntegerValue, f func(a, b int32) int32) IntegerValue {
	if i.prec == Particular && o.prec == Particular {
		return ConstantInteger(f(i.v, o.v))
	}
	return GenericInteger()
}

func (i IntegerValue) Add(o IntegerValue) IntegerValue {
	switch {
	case o.is(0):
		return i
	case i.is(0):
		return o
	}
	return i.binop(o, func(a, b int32) int32 { return a + b })
}

func (i IntegerValue) Sub(o IntegerValue) IntegerValue {
	switch {
	case i.sameIdentity(o):
		return ConstantInteger(0)
	case o.is(0):
		return i
	}
	return i.binop(o, func(a, b int32) int32 { return a - b })
}

func (i IntegerValue) Mul(o IntegerValue) IntegerValue {
	switch {
	case i.is(0) || o.is(0):
		return ConstantInteger(0)
	case o.is(1):
		return i
	case i.is(1):
		return o
	}
	return i.binop(o, func(a, b int32) int32 { return a * b })
}

// Div is integer division. The division of the most negative int by -1
// overflows to itself.
func (i IntegerValue) Div(o IntegerValue) (IntegerValue, error) {
	switch {
	case o.is(0):
		return GenericInteger(), ErrDivisionByZero
	case o.is(1):
		return i, nil
	}
	return i.binop(o, func(a, b int32) int32 { return a / b }), nil
}

func (i IntegerValue) Rem(o IntegerValue) (IntegerValue, error) {
	switch {
	case o.is(0):
		return GenericInteger(), ErrDivisionByZero
	case o.is(1) || o.is(-1):
		return ConstantInteger(0), nil
	}
	return i.binop(o, func(a, b int32) int32 { return a % b }), nil
}

func (i IntegerValue) Neg() IntegerValue {
	return i.binop(i, func(a, _ int32) int32 { return -a })
}

// Shift amounts are masked to their five lowest bits.
func (i IntegerValue) Shl(o IntegerValue) IntegerValue {
	return i.binop(o, func(a, b int32) int32 { return a << (b & 0x1f) })
}

func (i IntegerValue) Shr(o IntegerValue) IntegerValue {
	return i.binop(o, func(a, b int32) int32 { return a >> (b & 0x1f) })
}

func (i IntegerValue) Ushr(o IntegerValue) IntegerValue {
	return i.binop(o, func(a, b int32) int32 { return int32(uint32(a) >> (b & 0x1f)) })
}

func (i IntegerValue) And(o IntegerValue) IntegerValue {
	switch {
	case i.is(0) || o.is(0):
		return ConstantInteger(0)
	case i.sameIdentity(o), o.is(-1):
		return i
	case i.is(-1):
		return o
	}
	return i.binop(o, func(a, b int32) int32 { return a & b })
}

func (i IntegerValue) Or(o IntegerValue) IntegerValue {
	switch {
	case i.is(-1) || o.is(-1):
		return ConstantInteger(-1)
	case i.sameIdentity(o), o.is(0):
		return i
	case i.is(0):
		return o
	}
	return i.binop(o, func(a, b int32) int32 { return a | b })
}

func (i IntegerValue) Xor(o IntegerValue) IntegerValue {
	switch {
	case i.sameIdentity(o):
		return ConstantInteger(0)
	case o.is(0):
		return i
	case i.is(0):
		return o
	}
	return i.binop(o, func(a, b int32) int32 { return a ^ b })
}

func (i IntegerValue) ToLong() LongValue {
	if c, ok := i.Constant(); ok {
		return ConstantLong(int64(c))
	}
	return GenericLong()
}

func (i IntegerValue) ToFloat() FloatValue {
	if c, ok := i.Constant(); ok {
		return ConstantFloat(float32(c))
	}
	return GenericFloat()
}

func (i IntegerValue) ToDouble() DoubleValue {
	if c, ok := i.Constant(); ok {
		return ConstantDouble(float64(c))
	}
	return GenericDouble()
}

func (i IntegerValue) ToByte() IntegerValue {
	return i.binop(i, func(a, _ int32) int32 { return int32(int8(a)) })
}

func (i IntegerValue) ToChar() IntegerValue {
	return i.binop(i, func(a, _ int32) int32 { return int32(uint16(a)) })
}

func (i IntegerValue) ToShort() IntegerValue {
	return i.binop(i, func(a, _ int32) int32 { return int32(int16(a)) })
}

// Eq is the certainty of i == o.
func (i IntegerValue) Eq(o IntegerValue) Certainty {
	switch {
	case i.prec == Particular && o.prec == Particular:
		return CertaintyOf(i.v == o.v)
	case i.sameIdentity(o):
		return Always
	}
	return Maybe
}

// Lt is the certainty of i < o.
func (i IntegerValue) Lt(o IntegerValue) Certainty {
	switch {
	case i.prec == Particular && o.prec == Particular:
		return CertaintyOf(i.v < o.v)
	case i.sameIdentity(o):
		return Never
	}
	return Maybe
}

// Le is the certainty of i <= o.
func (i IntegerValue) Le(o IntegerValue) Certainty {
	return o.Lt(i).Negate()
}

package value

import "strconv"

// LongValue is a value of computational type long.
type LongValue struct {
	prec Precision
	id   uint32
	v    int64
}

// GenericLong returns the unknown long.
func GenericLong() LongValue { return LongValue{} }

// ConstantLong returns the particular long v.
func ConstantLong(v int64) LongValue { return LongValue{prec: Particular, v: v} }

func (LongValue) ComputationalType() ComputationalType { return TypeLong }
func (l LongValue) Precision() Precision               { return l.prec }
func (LongValue) IsCategory2() bool                    { return true }

func (l LongValue) Constant() (int64, bool) { return l.v, l.prec == Particular }
func (l LongValue) ID() (uint32, bool)      { return l.id, l.prec == Specific }

func (l LongValue) Equal(o Value) bool {
	m, ok := o.(LongValue)
	return ok && l == m
}

func (l LongValue) Generalize(o Value) Value {
	m, ok := o.(LongValue)
	switch {
	case !ok:
		return TopValue{}
	case l == m:
		return l
	}
	return GenericLong()
}

func (l LongValue) String() string {
	return describe(TypeLong, l.prec, l.id, strconv.FormatInt(l.v, 10))
}

func (l LongValue) is(c int64) bool { return l.prec == Particular && l.v == c }

func (l LongValue) sameIdentity(o LongValue) bool {
	return l.prec == Specific && l == o
}

func (l LongValue) binop(o LongValue, f func(a, b int64) int64) LongValue {
	if l.prec == Particular && o.prec == Particular {
		return ConstantLong(f(l.v, o.v))
	}
	return GenericLong()
}

func (l LongValue) shift(o IntegerValue, f func(a int64, s uint) int64) LongValue {
	if c, ok := o.Constant(); ok && l.prec == Particular {
		return ConstantLong(f(l.v, uint(c&0x3f)))
	}
	return GenericLong()
}

func (l LongValue) Add(o LongValue) LongValue {
	switch {
	case o.is(0):
		return l
	case l.is(0):
		return o
	}
	return l.binop(o, func(a, b int64) int64 { return a + b })
}

func (l LongValue) Sub(o LongValue) LongValue {
	switch {
	case l.sameIdentity(o):
		return ConstantLong(0)
	case o.is(0):
		return l
	}
	return l.binop(o, func(a, b int64) int64 { return a - b })
}

func (l LongValue) Mul(o LongValue) LongValue {
	switch {
	case l.is(0) || o.is(0):
		return ConstantLong(0)
	case o.is(1):
		return l
	case l.is(1):
		return o
	}
	return l.binop(o, func(a, b int64) int64 { return a * b })
}

func (l LongValue) Div(o LongValue) (LongValue, error) {
	switch {
	case o.is(0):
		return GenericLong(), ErrDivisionByZero
	case o.is(1):
		return l, nil
	}
	return l.binop(o, func(a, b int64) int64 { return a / b }), nil
}

func (l LongValue) Rem(o LongValue) (LongValue, error) {
	switch {
	case o.is(0):
		return GenericLong(), ErrDivisionByZero
	case o.is(1) || o.is(-1):
		return ConstantLong(0), nil
	}
	return l.binop(o, func(a, b int64) int64 { return a % b }), nil
}

func (l LongValue) Neg() LongValue {
	return l.binop(l, func(a, _ int64) int64 { return -a })
}

// Shift amounts are masked to their six lowest bits.
func (l LongValue) Shl(o IntegerValue) LongValue {
	return l.shift(o, func(a int64, s uint) int64 { return a << s })
}

func (l LongValue) Shr(o IntegerValue) LongValue {
	return l.shift(o, func(a int64, s uint) int64 { return a >> s })
}

func (l LongValue) Ushr(o IntegerValue) LongValue {
	return l.shift(o, func(a int64, s uint) int64 { return int64(uint64(a) >> s) })
}

func (l LongValue) And(o LongValue) LongValue {
	switch {
	case l.is(0) || o.is(0):
		return ConstantLong(0)
	case l.sameIdentity(o), o.is(-1):
		return l
	case l.is(-1):
		return o
	}
	return l.binop(o, func(a, b int64) int64 { return a & b })
}

func (l LongValue) Or(o LongValue) LongValue {
	switch {
	case l.is(-1) || o.is(-1):
		return ConstantLong(-1)
	case l.sameIdentity(o), o.is(0):
		return l
	case l.is(0):
		return o
	}
	return l.binop(o, func(a, b int64) int64 { return a | b })
}

func (l LongValue) Xor(o LongValue) LongValue {
	switch {
	case l.sameIdentity(o):
		return ConstantLong(0)
	case o.is(0):
		return l
	case l.is(0):
		return o
	}
	return l.binop(o, func(a, b int64) int64 { return a ^ b })
}

// Compare implements lcmp.
func (l LongValue) Compare(o LongValue) IntegerValue {
	switch {
	case l.prec == Particular && o.prec == Particular:
		switch {
		case l.v < o.v:
			return ConstantInteger(-1)
		case l.v > o.v:
			return ConstantInteger(1)
		}
		return ConstantInteger(0)
	case l.sameIdentity(o):
		return ConstantInteger(0)
	}
	return GenericInteger()
}

func (l LongValue) ToInteger() IntegerValue {
	if c, ok := l.Constant(); ok {
		return ConstantInteger(int32(c))
	}
	return GenericInteger()
}

func (l LongValue) ToFloat() FloatValue {
	if c, ok := l.Constant(); ok {
		return ConstantFloat(float32(c))
	}
	return GenericFloat()
}

func (l LongValue) ToDouble() DoubleValue {
	if c, ok := l.Constant(); ok {
		return ConstantDouble(float64(c))
	}
	return GenericDouble()
}

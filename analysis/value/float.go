package value

import (
	"math"
	"strconv"
)

// FloatValue is a value of computational type float.
type FloatValue struct {
	prec Precision
	id   uint32
	v    float32
}

// GenericFloat returns the unknown float.
func GenericFloat() FloatValue { return FloatValue{} }

// ConstantFloat returns the particular float v.
func ConstantFloat(v float32) FloatValue { return FloatValue{prec: Particular, v: v} }

func (FloatValue) ComputationalType() ComputationalType { return TypeFloat }
func (f FloatValue) Precision() Precision               { return f.prec }
func (FloatValue) IsCategory2() bool                    { return false }

func (f FloatValue) Constant() (float32, bool) { return f.v, f.prec == Particular }
func (f FloatValue) ID() (uint32, bool)        { return f.id, f.prec == Specific }

// Equal compares bit patterns, so +0.0 and -0.0 differ while NaN equals NaN.
func (f FloatValue) Equal(o Value) bool {
	g, ok := o.(FloatValue)
	return ok && f.prec == g.prec && f.id == g.id &&
		math.Float32bits(f.v) == math.Float32bits(g.v)
}

func (f FloatValue) Generalize(o Value) Value {
	if _, ok := o.(FloatValue); !ok {
		return TopValue{}
	}
	if f.Equal(o) {
		return f
	}
	return GenericFloat()
}

func (f FloatValue) String() string {
	return describe(TypeFloat, f.prec, f.id, strconv.FormatFloat(float64(f.v), 'g', -1, 32)+"f")
}

func (f FloatValue) binop(o FloatValue, op func(a, b float32) float32) FloatValue {
	if f.prec == Particular && o.prec == Particular {
		return ConstantFloat(op(f.v, o.v))
	}
	return GenericFloat()
}

func (f FloatValue) Add(o FloatValue) FloatValue {
	return f.binop(o, func(a, b float32) float32 { return a + b })
}

func (f FloatValue) Sub(o FloatValue) FloatValue {
	return f.binop(o, func(a, b float32) float32 { return a - b })
}

func (f FloatValue) Mul(o FloatValue) FloatValue {
	return f.binop(o, func(a, b float32) float32 { return a * b })
}

func (f FloatValue) Div(o FloatValue) FloatValue {
	return f.binop(o, func(a, b float32) float32 { return a / b })
}

// Rem truncates the quotient, like C fmod. The remainder is exact in
// double precision, so rounding it back to float is lossless.
func (f FloatValue) Rem(o FloatValue) FloatValue {
	return f.binop(o, func(a, b float32) float32 { return float32(math.Mod(float64(a), float64(b))) })
}

func (f FloatValue) Neg() FloatValue {
	return f.binop(f, func(a, _ float32) float32 { return -a })
}

// Compare implements fcmpl and fcmpg, which differ in the result of
// comparisons involving NaN.
func (f FloatValue) Compare(o FloatValue, nan int32) IntegerValue {
	if f.prec != Particular || o.prec != Particular {
		return GenericInteger()
	}
	return ConstantInteger(compareFloats(float64(f.v), float64(o.v), nan))
}

func (f FloatValue) ToInteger() IntegerValue {
	if c, ok := f.Constant(); ok {
		return ConstantInteger(saturateInt32(float64(c)))
	}
	return GenericInteger()
}

func (f FloatValue) ToLong() LongValue {
	if c, ok := f.Constant(); ok {
		return ConstantLong(saturateInt64(float64(c)))
	}
	return GenericLong()
}

func (f FloatValue) ToDouble() DoubleValue {
	if c, ok := f.Constant(); ok {
		return ConstantDouble(float64(c))
	}
	return GenericDouble()
}

func compareFloats(a, b float64, nan int32) int32 {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return nan
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// saturateInt32 converts like d2i: NaN becomes 0 and out of range values
// clamp to the nearest bound.
func saturateInt32(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

func saturateInt64(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

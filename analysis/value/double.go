package value

import (
	"math"
	"strconv"
)

// DoubleValue is a value of computational type double.
type DoubleValue struct {
	prec Precision
	id   uint32
	v    float64
}

// GenericDouble returns the unknown double.
func GenericDouble() DoubleValue { return DoubleValue{} }

// ConstantDouble returns the particular double v.
func ConstantDouble(v float64) DoubleValue { return DoubleValue{prec: Particular, v: v} }

func (DoubleValue) ComputationalType() ComputationalType { return TypeDouble }
func (d DoubleValue) Precision() Precision               { return d.prec }
func (DoubleValue) IsCategory2() bool                    { return true }

func (d DoubleValue) Constant() (float64, bool) { return d.v, d.prec == Particular }
func (d DoubleValue) ID() (uint32, bool)        { return d.id, d.prec == Specific }

func (d DoubleValue) Equal(o Value) bool {
	e, ok := o.(DoubleValue)
	return ok && d.prec == e.prec && d.id == e.id &&
		math.Float64bits(d.v) == math.Float64bits(e.v)
}

func (d DoubleValue) Generalize(o Value) Value {
	if _, ok := o.(DoubleValue); !ok {
		return TopValue{}
	}
	if d.Equal(o) {
		return d
	}
	return GenericDouble()
}

func (d DoubleValue) String() string {
	return describe(TypeDouble, d.prec, d.id, strconv.FormatFloat(d.v, 'g', -1, 64)+"d")
}

func (d DoubleValue) binop(o DoubleValue, op func(a, b float64) float64) DoubleValue {
	if d.prec == Particular && o.prec == Particular {
		return ConstantDouble(op(d.v, o.v))
	}
	return GenericDouble()
}

func (d DoubleValue) Add(o DoubleValue) DoubleValue {
	return d.binop(o, func(a, b float64) float64 { return a + b })
}

func (d DoubleValue) Sub(o DoubleValue) DoubleValue {
	return d.binop(o, func(a, b float64) float64 { return a - b })
}

func (d DoubleValue) Mul(o DoubleValue) DoubleValue {
	return d.binop(o, func(a, b float64) float64 { return a * b })
}

func (d DoubleValue) Div(o DoubleValue) DoubleValue {
	return d.binop(o, func(a, b float64) float64 { return a / b })
}

func (d DoubleValue) Rem(o DoubleValue) DoubleValue {
	return d.binop(o, math.Mod)
}

func (d DoubleValue) Neg() DoubleValue {
	return d.binop(d, func(a, _ float64) float64 { return -a })
}

// Compare implements dcmpl and dcmpg.
func (d DoubleValue) Compare(o DoubleValue, nan int32) IntegerValue {
	if d.prec != Particular || o.prec != Particular {
		return GenericInteger()
	}
	return ConstantInteger(compareFloats(d.v, o.v, nan))
}

func (d DoubleValue) ToInteger() IntegerValue {
	if c, ok := d.Constant(); ok {
		return ConstantInteger(saturateInt32(c))
	}
	return GenericInteger()
}

func (d DoubleValue) ToLong() LongValue {
	if c, ok := d.Constant(); ok {
		return ConstantLong(saturateInt64(c))
	}
	return GenericLong()
}

func (d DoubleValue) ToFloat() FloatValue {
	if c, ok := d.Constant(); ok {
		return ConstantFloat(float32(c))
	}
	return GenericFloat()
}

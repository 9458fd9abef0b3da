package value

import (
	"errors"
	"math"
	"testing"
)

func TestIntegerArithmetic(t *testing.T) {
	c := ConstantInteger
	tests := []struct {
		name     string
		res      IntegerValue
		expected IntegerValue
	}{
		{"1 + 2", c(1).Add(c(2)), c(3)},
		{"max + 1", c(math.MaxInt32).Add(c(1)), c(math.MinInt32)},
		{"3 - 5", c(3).Sub(c(5)), c(-2)},
		{"7 * -3", c(7).Mul(c(-3)), c(-21)},
		{"-7 / 2", must(c(-7).Div(c(2))), c(-3)},
		{"min / -1", must(c(math.MinInt32).Div(c(-1))), c(math.MinInt32)},
		{"-7 % 2", must(c(-7).Rem(c(2))), c(-1)},
		{"1 << 33", c(1).Shl(c(33)), c(2)},
		{"-8 >> 1", c(-8).Shr(c(1)), c(-4)},
		{"-1 >>> 28", c(-1).Ushr(c(28)), c(15)},
		{"-1 >>> 32", c(-1).Ushr(c(32)), c(-1)},
		{"6 & 3", c(6).And(c(3)), c(2)},
		{"6 | 3", c(6).Or(c(3)), c(7)},
		{"6 ^ 3", c(6).Xor(c(3)), c(5)},
		{"-(min)", c(math.MinInt32).Neg(), c(math.MinInt32)},
		{"(byte) 200", c(200).ToByte(), c(-56)},
		{"(char) -1", c(-1).ToChar(), c(0xffff)},
		{"(short) 65535", c(65535).ToShort(), c(-1)},
		{"? * 0", GenericInteger().Mul(c(0)), c(0)},
		{"? + 1", GenericInteger().Add(c(1)), GenericInteger()},
		{"? & 0", GenericInteger().And(c(0)), c(0)},
	}

	for _, test := range tests {
		if !test.res.Equal(test.expected) {
			t.Errorf("%s = %s, expected %s", test.name, test.res, test.expected)
		}
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestDivisionByZero(t *testing.T) {
	if _, err := ConstantInteger(3).Div(ConstantInteger(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("Expected ErrDivisionByZero for 3 / 0, got %v", err)
	}
	if _, err := GenericInteger().Rem(ConstantInteger(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("Expected ErrDivisionByZero for ? %% 0, got %v", err)
	}
	if _, err := ConstantLong(3).Div(ConstantLong(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("Expected ErrDivisionByZero for 3L / 0L, got %v", err)
	}
	if _, err := ConstantInteger(3).Div(GenericInteger()); err != nil {
		t.Errorf("Unexpected error for 3 / ?: %v", err)
	}
	// Floating point division by zero is well defined.
	if v, _ := ConstantDouble(1).Div(ConstantDouble(0)).Constant(); !math.IsInf(v, 1) {
		t.Errorf("Expected 1d / 0d = +Inf, found %v", v)
	}
}

func TestLongArithmetic(t *testing.T) {
	c := ConstantLong
	tests := []struct {
		name     string
		res      Value
		expected Value
	}{
		{"1 << 65", c(1).Shl(ConstantInteger(65)), c(2)},
		{"-1 >>> 60", c(-1).Ushr(ConstantInteger(60)), c(15)},
		{"max + 1", c(math.MaxInt64).Add(c(1)), c(math.MinInt64)},
		{"lcmp 1 2", c(1).Compare(c(2)), ConstantInteger(-1)},
		{"lcmp 2 2", c(2).Compare(c(2)), ConstantInteger(0)},
		{"(int) 2^32+5", c(1<<32 + 5).ToInteger(), ConstantInteger(5)},
		{"(float) 3", c(3).ToFloat(), ConstantFloat(3)},
		{"? lcmp 1", GenericLong().Compare(c(1)), GenericInteger()},
	}

	for _, test := range tests {
		if !test.res.Equal(test.expected) {
			t.Errorf("%s = %s, expected %s", test.name, test.res, test.expected)
		}
	}
}

func TestFloatingPoint(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name     string
		res      Value
		expected Value
	}{
		{"1.5f + 2f", ConstantFloat(1.5).Add(ConstantFloat(2)), ConstantFloat(3.5)},
		{"5.5f % 2f", ConstantFloat(5.5).Rem(ConstantFloat(2)), ConstantFloat(1.5)},
		{"-5.5d % 2d", ConstantDouble(-5.5).Rem(ConstantDouble(2)), ConstantDouble(-1.5)},
		{"fcmpl NaN", ConstantFloat(nan).Compare(ConstantFloat(0), -1), ConstantInteger(-1)},
		{"fcmpg NaN", ConstantFloat(nan).Compare(ConstantFloat(0), 1), ConstantInteger(1)},
		{"dcmpl 1 0", ConstantDouble(1).Compare(ConstantDouble(0), -1), ConstantInteger(1)},
		{"(int) NaN", ConstantFloat(nan).ToInteger(), ConstantInteger(0)},
		{"(int) 1e20", ConstantDouble(1e20).ToInteger(), ConstantInteger(math.MaxInt32)},
		{"(long) -1e30", ConstantFloat(-1e30).ToLong(), ConstantLong(math.MinInt64)},
		{"(int) -2.9", ConstantDouble(-2.9).ToInteger(), ConstantInteger(-2)},
		{"-(0d)", ConstantDouble(0).Neg(), ConstantDouble(math.Copysign(0, -1))},
	}

	for _, test := range tests {
		if !test.res.Equal(test.expected) {
			t.Errorf("%s = %s, expected %s", test.name, test.res, test.expected)
		}
	}

	negZero := ConstantFloat(float32(math.Copysign(0, -1)))
	if negZero.Equal(ConstantFloat(0)) {
		t.Errorf("Expected -0.0f to differ from +0.0f")
	}
	if !ConstantFloat(nan).Equal(ConstantFloat(nan)) {
		t.Errorf("Expected NaN to equal itself")
	}
	if g := negZero.Generalize(ConstantFloat(0)); g.Precision() != Generic {
		t.Errorf("Expected -0.0f ⊔ +0.0f to be generic, found %s", g)
	}
}

func TestIntegerComparisons(t *testing.T) {
	c := ConstantInteger
	tests := []struct {
		name     string
		res      Certainty
		expected Certainty
	}{
		{"1 == 1", c(1).Eq(c(1)), Always},
		{"1 == 2", c(1).Eq(c(2)), Never},
		{"1 < 2", c(1).Lt(c(2)), Always},
		{"2 <= 1", c(2).Le(c(1)), Never},
		{"? == 1", GenericInteger().Eq(c(1)), Maybe},
		{"? < ?", GenericInteger().Lt(GenericInteger()), Maybe},
	}

	for _, test := range tests {
		if test.res != test.expected {
			t.Errorf("%s is %s, expected %s", test.name, test.res, test.expected)
		}
	}
}

func TestIdentities(t *testing.T) {
	f := NewIdentified(nil)
	x, y := f.CreateInteger(), f.CreateInteger()

	if x.Equal(y) {
		t.Fatalf("Expected fresh identities, found %s and %s", x, y)
	}
	for _, test := range []struct {
		name     string
		res      Value
		expected Value
	}{
		{"x - x", x.Sub(x), ConstantInteger(0)},
		{"x ^ x", x.Xor(x), ConstantInteger(0)},
		{"x & x", x.And(x), x},
		{"x + 0", x.Add(ConstantInteger(0)), x},
		{"x - y", x.Sub(y), GenericInteger()},
		{"x + 1", x.Add(ConstantInteger(1)), GenericInteger()},
	} {
		if !test.res.Equal(test.expected) {
			t.Errorf("%s = %s, expected %s", test.name, test.res, test.expected)
		}
	}

	if c := x.Eq(x); c != Always {
		t.Errorf("x == x is %s", c)
	}
	if c := x.Lt(x); c != Never {
		t.Errorf("x < x is %s", c)
	}
	if c := x.Eq(y); c != Maybe {
		t.Errorf("x == y is %s", c)
	}

	f.Reset()
	if z := f.CreateInteger(); !z.Equal(x) {
		t.Errorf("Expected identities to restart after Reset, found %s", z)
	}
}

func TestScalarGeneralize(t *testing.T) {
	tests := []struct {
		a, b, expected Value
	}{
		{ConstantInteger(5), ConstantInteger(5), ConstantInteger(5)},
		{ConstantInteger(5), ConstantInteger(6), GenericInteger()},
		{ConstantInteger(5), ConstantLong(5), TopValue{}},
		{ConstantLong(1), GenericLong(), GenericLong()},
		{TopValue{}, ConstantInteger(1), TopValue{}},
		{ConstantDouble(2), ConstantDouble(2), ConstantDouble(2)},
	}

	for _, test := range tests {
		res := test.a.Generalize(test.b)
		if !res.Equal(test.expected) {
			t.Errorf("%s ⊔ %s = %s, expected %s", test.a, test.b, res, test.expected)
		} else {
			t.Logf("%s ⊔ %s = %s", test.a, test.b, res)
		}
	}
}

func TestCertainty(t *testing.T) {
	if Always.Negate() != Never || Never.Negate() != Always || Maybe.Negate() != Maybe {
		t.Errorf("Negate is not an involution on the definite certainties")
	}
	if Always.Join(Never) != Maybe || Always.Join(Always) != Always {
		t.Errorf("Unexpected certainty join")
	}
	if Always.And(Maybe) != Maybe || Never.And(Maybe) != Never {
		t.Errorf("Unexpected certainty conjunction")
	}
}

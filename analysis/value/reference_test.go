package value

import (
	"testing"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
)

func hierarchy(t *testing.T) *cf.Program {
	prog, err := cf.NewProgram(
		&cf.Class{Name: "A", Super: cf.NameObject},
		&cf.Class{Name: "B", Super: "A"},
		&cf.Class{Name: "C", Super: "A", Flags: cf.AccFinal},
		&cf.Class{Name: "D", Super: cf.NameObject, Flags: cf.AccFinal},
	)
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func TestInstanceOf(t *testing.T) {
	h := hierarchy(t)
	ref := func(class string, ext bool, null Certainty) ReferenceValue {
		return GenericReference(cf.TypeOfClass(class), ext, null, h)
	}

	tests := []struct {
		ref      ReferenceValue
		class    string
		expected Certainty
	}{
		{ref("B", false, Never), "A", Always},
		{ref("B", true, Never), "A", Always},
		{ref("B", false, Maybe), "A", Maybe},
		{ref("A", true, Never), "B", Maybe},
		{ref("A", false, Never), "B", Never},
		{ref("D", false, Never), "A", Never},
		{ref("Unknown", false, Never), "A", Maybe},
		{NullReference(), "A", Never},
		{GenericReference("[I", false, Never, h), cf.NameCloneable, Always},
	}

	for _, test := range tests {
		if res := test.ref.InstanceOf(test.class); res != test.expected {
			t.Errorf("%s instanceof %s is %s, expected %s", test.ref, test.class, res, test.expected)
		}
	}
}

func TestReferenceGeneralize(t *testing.T) {
	h := hierarchy(t)
	b := GenericReference("LB;", false, Never, h)
	c := GenericReference("LC;", false, Never, h)

	res := AsReference(b.Generalize(c))
	if res.Type() != "LA;" || !res.MayBeExtension() || res.IsNull() != Never {
		t.Errorf("B ⊔ C = %s, expected a non-null A+", res)
	}

	res = AsReference(b.Generalize(NullReference()))
	if res.Type() != "LB;" || res.IsNull() != Maybe {
		t.Errorf("B ⊔ null = %s, expected a nullable B", res)
	}

	if g := b.Generalize(ConstantInteger(1)); !g.Equal(TopValue{}) {
		t.Errorf("B ⊔ 1 = %s, expected ⊤", g)
	}

	f := NewParticular(h)
	s1 := f.Constant(cf.StringConstant("a"))
	s2 := f.Constant(cf.StringConstant("b"))
	if !s1.Equal(f.Constant(cf.StringConstant("a"))) {
		t.Errorf("Expected equal string constants")
	}
	if g := s1.Generalize(s2); g.Precision() != Generic || AsReference(g).IsNull() != Never {
		t.Errorf("\"a\" ⊔ \"b\" = %s, expected a generic non-null string", g)
	}
}

func TestReferenceCast(t *testing.T) {
	h := hierarchy(t)
	a := GenericReference("LA;", true, Maybe, h)

	if res := a.Cast(cf.NameObject); !res.Equal(a) {
		t.Errorf("Cast to a supertype changed %s into %s", a, res)
	}
	res := a.Cast("C")
	if res.Type() != "LC;" || res.MayBeExtension() || res.IsNull() != Maybe {
		t.Errorf("(C) %s = %s, expected an exact nullable C", a, res)
	}
	if null := NullReference(); !null.Cast("C").Equal(null) {
		t.Errorf("Casting null should be the identity")
	}
}

func TestReferenceEq(t *testing.T) {
	f := NewIdentified(nil)
	x := AsReference(f.CreateReference("LA;", true, true))
	y := AsReference(f.CreateReference("LA;", true, true))
	nonNull := AsReference(f.NewInstance("A"))

	tests := []struct {
		a, b     ReferenceValue
		expected Certainty
	}{
		{NullReference(), NullReference(), Always},
		{nonNull, NullReference(), Never},
		{x, x, Always},
		{x, y, Maybe},
		{x, NullReference(), Maybe},
	}
	for _, test := range tests {
		if res := test.a.ReferenceEq(test.b); res != test.expected {
			t.Errorf("%s == %s is %s, expected %s", test.a, test.b, res, test.expected)
		}
	}
}

func TestArrayLength(t *testing.T) {
	f := NewParticular(nil)
	arr := AsReference(f.NewArray("[I", ConstantInteger(4)))
	if l, ok := arr.ArrayLength().Constant(); !ok || l != 4 {
		t.Errorf("Expected length 4, found %s", arr.ArrayLength())
	}
	if l := AsReference(NewGeneric(nil).NewArray("[I", ConstantInteger(4))).ArrayLength(); IsParticular(l) {
		t.Errorf("Generic factory produced a particular length %s", l)
	}
}

func TestReferenceTracing(t *testing.T) {
	f := NewReferenceTracing(NewParticular(hierarchy(t)))
	f.SetTraceOffset(7)

	obj := f.NewInstance("B")
	if tr := TraceOf(obj); !tr.ContainsOrigin(Origin{7, OriginNewInstance}) || tr.Len() != 1 {
		t.Errorf("Expected new instance traced to 7n, found %s", obj)
	}

	f.SetTraceOffset(9)
	if up := f.Cast(obj, "A"); !up.Equal(obj) {
		t.Errorf("Upcast should keep the trace, found %s", up)
	}
	down := f.Cast(f.CreateReference("LA;", true, true), "B")
	if tr := TraceOf(down); !tr.ContainsOrigin(Origin{9, OriginCast}) {
		t.Errorf("Expected downcast traced to 9c, found %s", down)
	}

	merged := obj.Generalize(Trace(f.NewInstance("C"), Origin{12, OriginNewInstance}))
	if offs := TraceOf(merged).Offsets(); len(offs) != 2 || offs[0] != 7 || offs[1] != 12 {
		t.Errorf("Expected trace {7, 12}, found %s", merged)
	}
}

func TestFactoryTiers(t *testing.T) {
	for _, test := range []struct {
		f        Factory
		constant Precision
		unknown  Precision
	}{
		{NewGeneric(nil), Generic, Generic},
		{NewParticular(nil), Particular, Generic},
		{NewIdentified(nil), Particular, Specific},
	} {
		if p := test.f.IntegerConstant(3).Precision(); p != test.constant {
			t.Errorf("%T created a %s constant, expected %s", test.f, p, test.constant)
		}
		if p := test.f.CreateValue(cf.TypeLong, false, false).Precision(); p != test.unknown {
			t.Errorf("%T created a %s unknown long, expected %s", test.f, p, test.unknown)
		}
		if v := test.f.CreateValue("Ljava/lang/String;", false, true); v.ComputationalType() != TypeReference {
			t.Errorf("%T created %s for a reference type", test.f, v)
		}
		if v := test.f.Constant(cf.DoubleConstant(1)); !v.IsCategory2() {
			t.Errorf("%T created %s for a double constant", test.f, v)
		}
	}
}

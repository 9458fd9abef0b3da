package invocation

import (
	"bytes"
	"testing"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/frame"
	"github.com/cs-au-dk/jpeval/analysis/value"
)

func program(t *testing.T) *cf.Program {
	prog, err := cf.NewProgram(
		&cf.Class{Name: "A", Super: cf.NameObject},
		&cf.Class{Name: "F", Super: cf.NameObject, Flags: cf.AccFinal},
	)
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func TestParameters(t *testing.T) {
	ref := cf.MethodRef{Class: "A", Name: "m", Descriptor: "(IJLjava/lang/String;)V"}
	params, ret, err := Parameters(ref, false)
	if err != nil {
		t.Fatal(err)
	}
	if ret != cf.TypeVoid {
		t.Errorf("Expected void return type, found %s", ret)
	}

	expected := []Parameter{
		{ref, 0, 0, "LA;", true},
		{ref, 1, 1, "I", false},
		{ref, 2, 2, "J", false},
		{ref, 3, 4, "Ljava/lang/String;", false},
	}
	if len(params) != len(expected) {
		t.Fatalf("Expected %d parameters, found %v", len(expected), params)
	}
	for i, p := range expected {
		if params[i] != p {
			t.Errorf("Expected parameter %d to be %+v, found %+v", i, p, params[i])
		}
	}

	static, _, _ := Parameters(ref, true)
	if len(static) != 3 || static[0].Slot != 0 || static[0].This {
		t.Errorf("Unexpected static parameters %v", static)
	}
}

func TestExecute(t *testing.T) {
	prog := program(t)
	f := value.NewParticular(prog)
	unit := NewUnit(NewBasic(f))
	obj := f.NewInstance("A")

	tests := []struct {
		ins      *cf.ConstantInstruction
		before   []value.Value
		expected []value.ComputationalType
	}{
		{
			cf.NewConstant(0, cf.INVOKEVIRTUAL, cf.MethodRef{Class: "A", Name: "m", Descriptor: "(IJ)D"}, 0),
			[]value.Value{obj, value.ConstantInteger(1), value.ConstantLong(2)},
			[]value.ComputationalType{value.TypeTop, value.TypeDouble},
		},
		{
			cf.NewConstant(0, cf.INVOKESTATIC, cf.MethodRef{Class: "A", Name: "s", Descriptor: "(F)V"}, 0),
			[]value.Value{value.ConstantFloat(1)},
			nil,
		},
		{
			cf.NewConstant(0, cf.GETFIELD, cf.FieldRef{Class: "A", Name: "x", Descriptor: "I"}, 0),
			[]value.Value{obj},
			[]value.ComputationalType{value.TypeInteger},
		},
		{
			cf.NewConstant(0, cf.PUTFIELD, cf.FieldRef{Class: "A", Name: "o", Descriptor: "LA;"}, 0),
			[]value.Value{obj, f.Null()},
			nil,
		},
		{
			cf.NewConstant(0, cf.GETSTATIC, cf.FieldRef{Class: "A", Name: "l", Descriptor: "J"}, 0),
			nil,
			[]value.ComputationalType{value.TypeTop, value.TypeLong},
		},
		{
			cf.NewConstant(0, cf.INVOKEDYNAMIC, cf.DynamicRef{Name: "run", Descriptor: "(LA;)Ljava/lang/Runnable;"}, 0),
			[]value.Value{obj},
			[]value.ComputationalType{value.TypeReference},
		},
	}

	for _, test := range tests {
		stack := frame.NewStack(0)
		for _, v := range test.before {
			stack.Push(v)
		}
		if err := unit.Execute(test.ins, stack); err != nil {
			t.Errorf("%s: unexpected error %v", test.ins, err)
			continue
		}
		if stack.Size() != len(test.expected) {
			t.Errorf("%s: expected %d slots, found %s", test.ins, len(test.expected), stack)
			continue
		}
		for i, typ := range test.expected {
			if ct := stack.Bottom(i).ComputationalType(); ct != typ {
				t.Errorf("%s: expected slot %d to be of type %s, found %s", test.ins, i, typ, ct)
			}
		}
	}

	bad := cf.NewConstant(0, cf.GETFIELD, cf.MethodRef{Class: "A", Name: "m", Descriptor: "()V"}, 0)
	if err := unit.Execute(bad, frame.NewStack(0)); err == nil {
		t.Errorf("Expected an error for %s", bad)
	}
}

func TestEnterMethod(t *testing.T) {
	prog := program(t)
	unit := NewUnit(NewBasic(value.NewParticular(prog)))

	m := &cf.Method{Class: "F", Name: "m", Descriptor: "(JLA;)V", MaxLocals: 4}
	vars := frame.NewTracedVariables(4)
	if err := unit.EnterMethod(m, vars); err != nil {
		t.Fatal(err)
	}

	this := value.AsReference(vars.Load(0))
	if this.IsNull() != value.Never || this.MayBeExtension() {
		t.Errorf("Expected an exact non-null receiver, found %s", this)
	}
	if vars.Load(1).ComputationalType() != value.TypeLong {
		t.Errorf("Expected a long in slot 1, found %s", vars.Load(1))
	}
	if arg := value.AsReference(vars.Load(3)); arg.IsNull() != value.Maybe || !arg.MayBeExtension() {
		t.Errorf("Expected an unknown argument in slot 3, found %s", arg)
	}
	for _, slot := range []int{0, 1, 3} {
		p := vars.StoredProducerValue(slot)
		if !p.ContainsOrigin(value.Origin{Offset: slot, Kind: value.OriginParameter}) {
			t.Errorf("Expected slot %d to be produced by parameter, found %s", slot, p)
		}
	}
	if !vars.ProducerValue().IsEmpty() {
		t.Errorf("Expected the producer value to be restored, found %s", vars.ProducerValue())
	}

	a := &cf.Method{Class: "A", Name: "m", Descriptor: "()V", MaxLocals: 1}
	vars = frame.NewTracedVariables(1)
	unit.EnterMethod(a, vars)
	if this := value.AsReference(vars.Load(0)); !this.MayBeExtension() {
		t.Errorf("Expected the receiver of a non-final class to be extensible, found %s", this)
	}
}

func TestTracing(t *testing.T) {
	prog := program(t)
	sem := NewTracing(NewBasic(value.NewParticular(prog)))
	sem.SetTraceOffset(7)

	m := &cf.Method{Class: "A", Name: "m", Descriptor: "(LA;)LA;", Flags: cf.AccStatic, MaxLocals: 1}
	field := cf.FieldRef{Class: "A", Name: "f", Descriptor: "LA;"}
	handler := cf.ExceptionHandler{Start: 0, End: 3, Handler: 9, CatchType: "java/io/IOException"}

	tests := []struct {
		v        value.Value
		expected value.Origin
	}{
		{sem.FieldClassValue(field), value.Origin{Offset: 7, Kind: value.OriginField}},
		{sem.MethodReturnValue(m.Ref(), "LA;"), value.Origin{Offset: 7, Kind: value.OriginReturn}},
		{sem.MethodParameterValue(m, Parameter{Method: m.Ref(), Slot: 0, Type: "LA;"}), value.Origin{Offset: 0, Kind: value.OriginParameter}},
		{sem.ExceptionValue(m, handler), value.Origin{Offset: 9, Kind: value.OriginExceptionHandler}},
	}
	for _, test := range tests {
		if trace := value.TraceOf(test.v); !trace.Equal(value.NewOrigins(test.expected)) {
			t.Errorf("Expected %s to be traced to %s", test.v, test.expected)
		}
	}

	if exc := value.AsReference(tests[3].v); exc.Type() != "Ljava/io/IOException;" || exc.IsNull() != value.Never {
		t.Errorf("Expected a non-null IOException, found %s", exc)
	}
	if v := sem.FieldValue(cf.FieldRef{Class: "A", Name: "i", Descriptor: "I"}); v.ComputationalType() != value.TypeInteger {
		t.Errorf("Expected primitive fields to stay untraced, found %s", v)
	}
}

func TestRecordings(t *testing.T) {
	prog := program(t)
	f := value.NewParticular(prog)
	rec := NewRecordings()
	storing := NewUnit(NewStoring(NewBasic(f), rec, prog))

	put := func(field string, v value.Value) {
		stack := frame.NewStack(0)
		stack.Push(v)
		ins := cf.NewConstant(0, cf.PUTSTATIC, cf.FieldRef{Class: "A", Name: field, Descriptor: value.Type(v)}, 0)
		if err := storing.Execute(ins, stack); err != nil {
			t.Fatal(err)
		}
	}
	put("five", value.ConstantInteger(5))
	put("five", value.ConstantInteger(5))
	put("some", value.ConstantInteger(1))
	put("some", value.ConstantInteger(2))
	put("str", f.Constant(cf.StringConstant("s")))

	call := cf.NewConstant(0, cf.INVOKESTATIC, cf.MethodRef{Class: "A", Name: "g", Descriptor: "(J)V"}, 0)
	stack := frame.NewStack(0)
	stack.Push(value.ConstantLong(3))
	if err := storing.Execute(call, stack); err != nil {
		t.Fatal(err)
	}

	expected := []string{
		"field A.five:I",
		"field A.some:I",
		"field A.str:Ljava/lang/String;",
		"param A.g(J)V#0",
	}
	keys := rec.Keys()
	if len(keys) != len(expected) {
		t.Fatalf("Expected %v, found %v", expected, keys)
	}
	for i, k := range expected {
		if keys[i] != k {
			t.Errorf("Expected key %d to be %q, found %q", i, k, keys[i])
		}
	}

	data, err := rec.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	again, _ := rec.Marshal()
	if !bytes.Equal(data, again) {
		t.Errorf("Expected deterministic encodings")
	}

	loaded, err := UnmarshalRecordings(data, prog)
	if err != nil {
		t.Fatal(err)
	}
	loading := NewLoading(NewBasic(f), loaded, prog)

	if v := loading.FieldValue(cf.FieldRef{Class: "A", Name: "five", Descriptor: "I"}); !v.Equal(value.ConstantInteger(5)) {
		t.Errorf("Expected the recorded constant 5, found %s", v)
	}
	if v := loading.FieldValue(cf.FieldRef{Class: "A", Name: "some", Descriptor: "I"}); value.IsParticular(v) {
		t.Errorf("Expected a generalized value, found %s", v)
	}
	if v := loading.FieldClassValue(cf.FieldRef{Class: "A", Name: "str", Descriptor: "Ljava/lang/String;"}); !value.IsParticular(v) {
		t.Errorf("Expected the recorded string constant, found %s", v)
	}
	g := &cf.Method{Class: "A", Name: "g", Descriptor: "(J)V", Flags: cf.AccStatic}
	params, _, _ := Parameters(g.Ref(), true)
	if v := loading.MethodParameterValue(g, params[0]); !v.Equal(value.ConstantLong(3)) {
		t.Errorf("Expected the recorded argument 3L, found %s", v)
	}
	if v := loading.FieldValue(cf.FieldRef{Class: "A", Name: "missing", Descriptor: "I"}); value.IsParticular(v) {
		t.Errorf("Expected an unknown value for a field without recordings, found %s", v)
	}
}

func TestRecordingsConflict(t *testing.T) {
	rec := NewRecordings()
	rec.Record("k", value.ConstantInteger(1))
	rec.Record("k", value.ConstantFloat(1))
	if v, ok := rec.Lookup("k"); ok {
		t.Errorf("Expected conflicting recordings to be dropped, found %s", v)
	}

	f := value.NewParticular(nil)
	loading := NewLoading(NewBasic(f), rec, nil)
	rec.Record(FieldKey(cf.FieldRef{Class: "A", Name: "x", Descriptor: "J"}), value.ConstantInteger(1))
	if v := loading.FieldValue(cf.FieldRef{Class: "A", Name: "x", Descriptor: "J"}); v.ComputationalType() != value.TypeLong {
		t.Errorf("Expected recordings of the wrong type to be ignored, found %s", v)
	}
}

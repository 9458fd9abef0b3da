// Package invocation simulates field accesses, method invocations, method
// entry and exit, and exception handler entry. The stack effects are
// performed by Unit; what values flow in and out of the method is decided
// by a Semantics.
package invocation

import (
	"strconv"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/value"
)

// Parameter identifies a parameter of a method. Index counts parameters,
// including the receiver of instance methods; Slot is the local variable
// the parameter is passed in.
type Parameter struct {
	Method cf.MethodRef
	Index  int
	Slot   int
	Type   string
	This   bool
}

func (p Parameter) String() string {
	return p.Method.Key() + "#" + strconv.Itoa(p.Index)
}

// Semantics decides the values read from fields, passed into the
// evaluated method, returned by invoked methods and caught by exception
// handlers. The setters observe the values flowing the other way.
type Semantics interface {
	// FieldClassValue is the value read from a field of reference type.
	FieldClassValue(ref cf.FieldRef) value.Value
	SetFieldClassValue(ref cf.FieldRef, v value.Value)
	// FieldValue is the value read from a field of primitive type.
	FieldValue(ref cf.FieldRef) value.Value
	SetFieldValue(ref cf.FieldRef, v value.Value)

	// MethodParameterValue is the value of a parameter on entry of the
	// evaluated method.
	MethodParameterValue(m *cf.Method, p Parameter) value.Value
	// SetMethodParameterValue observes an argument passed at an invocation.
	SetMethodParameterValue(p Parameter, v value.Value)

	// MethodReturnValue is the value returned by an invoked method with
	// return type ret.
	MethodReturnValue(ref cf.MethodRef, ret string) value.Value
	DynamicReturnValue(ref cf.DynamicRef, ret string) value.Value
	// SetMethodReturnValue observes a value returned by the evaluated method.
	SetMethodReturnValue(m *cf.Method, v value.Value)

	// ExceptionValue is the exception caught by the handler.
	ExceptionValue(m *cf.Method, h cf.ExceptionHandler) value.Value
}

// OffsetTracer is implemented by semantics and value factories that
// annotate values with the offset of the instruction being simulated.
type OffsetTracer interface {
	SetTraceOffset(offset int)
}

var (
	_ Semantics    = (*Basic)(nil)
	_ Semantics    = (*Tracing)(nil)
	_ Semantics    = (*Storing)(nil)
	_ Semantics    = (*Loading)(nil)
	_ OffsetTracer = (*Tracing)(nil)
	_ OffsetTracer = (*value.ReferenceTracing)(nil)
)

// Basic derives all values from declared types.
type Basic struct {
	Factory value.Factory
}

func NewBasic(f value.Factory) *Basic {
	return &Basic{f}
}

func (b *Basic) FieldClassValue(ref cf.FieldRef) value.Value {
	return b.Factory.CreateValue(ref.Descriptor, true, true)
}

func (b *Basic) FieldValue(ref cf.FieldRef) value.Value {
	return b.Factory.CreateValue(ref.Descriptor, true, true)
}

func (*Basic) SetFieldClassValue(cf.FieldRef, value.Value)   {}
func (*Basic) SetFieldValue(cf.FieldRef, value.Value)        {}
func (*Basic) SetMethodParameterValue(Parameter, value.Value) {}
func (*Basic) SetMethodReturnValue(*cf.Method, value.Value)   {}

// MethodParameterValue creates unknown parameter values. The receiver is
// never null, and is of exactly the declaring class if that class is final.
func (b *Basic) MethodParameterValue(m *cf.Method, p Parameter) value.Value {
	if p.This {
		exact := b.Factory.Hierarchy() != nil && b.Factory.Hierarchy().IsExactType(m.Class)
		return b.Factory.CreateReference(p.Type, !exact, false)
	}
	return b.Factory.CreateValue(p.Type, true, true)
}

func (b *Basic) MethodReturnValue(_ cf.MethodRef, ret string) value.Value {
	return b.Factory.CreateValue(ret, true, true)
}

func (b *Basic) DynamicReturnValue(_ cf.DynamicRef, ret string) value.Value {
	return b.Factory.CreateValue(ret, true, true)
}

// ExceptionValue creates a non-null exception of the catch type, or of
// java/lang/Throwable for handlers that catch everything.
func (b *Basic) ExceptionValue(_ *cf.Method, h cf.ExceptionHandler) value.Value {
	catch := h.CatchType
	if catch == "" {
		catch = cf.NameThrowable
	}
	return b.Factory.CreateReference(cf.TypeOfClass(catch), true, false)
}

// Tracing annotates the references entering the evaluated method with
// their origin: fields, invocations, parameters and exception handlers.
type Tracing struct {
	Semantics
	offset int
}

func NewTracing(s Semantics) *Tracing {
	return &Tracing{Semantics: s}
}

// SetTraceOffset sets the offset of the instruction being simulated.
func (t *Tracing) SetTraceOffset(offset int) { t.offset = offset }

func (t *Tracing) FieldClassValue(ref cf.FieldRef) value.Value {
	return value.Trace(t.Semantics.FieldClassValue(ref), value.Origin{Offset: t.offset, Kind: value.OriginField})
}

func (t *Tracing) FieldValue(ref cf.FieldRef) value.Value {
	return value.Trace(t.Semantics.FieldValue(ref), value.Origin{Offset: t.offset, Kind: value.OriginField})
}

func (t *Tracing) MethodParameterValue(m *cf.Method, p Parameter) value.Value {
	return value.Trace(t.Semantics.MethodParameterValue(m, p), value.Origin{Offset: p.Slot, Kind: value.OriginParameter})
}

func (t *Tracing) MethodReturnValue(ref cf.MethodRef, ret string) value.Value {
	return value.Trace(t.Semantics.MethodReturnValue(ref, ret), value.Origin{Offset: t.offset, Kind: value.OriginReturn})
}

func (t *Tracing) DynamicReturnValue(ref cf.DynamicRef, ret string) value.Value {
	return value.Trace(t.Semantics.DynamicReturnValue(ref, ret), value.Origin{Offset: t.offset, Kind: value.OriginReturn})
}

func (t *Tracing) ExceptionValue(m *cf.Method, h cf.ExceptionHandler) value.Value {
	return value.Trace(t.Semantics.ExceptionValue(m, h), value.Origin{Offset: h.Handler, Kind: value.OriginExceptionHandler})
}

// Storing records the values written to fields, passed as arguments and
// returned by the evaluated method. Member references are resolved to
// their declarations in Program first, so an access through a subclass is
// recorded for the inherited member.
type Storing struct {
	Semantics
	Recordings *Recordings
	Program    *cf.Program
}

func NewStoring(s Semantics, r *Recordings, prog *cf.Program) *Storing {
	return &Storing{s, r, prog}
}

func (s *Storing) SetFieldClassValue(ref cf.FieldRef, v value.Value) {
	s.Recordings.Record(FieldKey(s.Program.Declaration(ref)), v)
	s.Semantics.SetFieldClassValue(ref, v)
}

func (s *Storing) SetFieldValue(ref cf.FieldRef, v value.Value) {
	s.Recordings.Record(FieldKey(s.Program.Declaration(ref)), v)
	s.Semantics.SetFieldValue(ref, v)
}

func (s *Storing) SetMethodParameterValue(p Parameter, v value.Value) {
	key := p
	if m, ok := s.Program.ResolveMethod(p.Method); ok {
		key.Method = m.Ref()
	}
	s.Recordings.Record(ParameterKey(key), v)
	s.Semantics.SetMethodParameterValue(p, v)
}

func (s *Storing) SetMethodReturnValue(m *cf.Method, v value.Value) {
	s.Recordings.Record(ReturnKey(m.Ref()), v)
	s.Semantics.SetMethodReturnValue(m, v)
}

// Loading substitutes recorded values for the values of fields,
// parameters and invocation results. Recordings of a conflicting
// computational type are ignored.
//
// Parameter recordings are only used for methods that no unrelated
// reference can dispatch to, and return recordings only for invocations
// whose target cannot be overridden. Otherwise the recordings may miss
// the arguments or results of another method.
type Loading struct {
	Semantics
	Recordings *Recordings
	Program    *cf.Program
}

func NewLoading(s Semantics, r *Recordings, prog *cf.Program) *Loading {
	return &Loading{s, r, prog}
}

func (l *Loading) load(key string, fallback value.Value) value.Value {
	if v, ok := l.Recordings.Lookup(key); ok && v.ComputationalType() == fallback.ComputationalType() {
		return v
	}
	return fallback
}

func (l *Loading) FieldClassValue(ref cf.FieldRef) value.Value {
	return l.load(FieldKey(l.Program.Declaration(ref)), l.Semantics.FieldClassValue(ref))
}

func (l *Loading) FieldValue(ref cf.FieldRef) value.Value {
	return l.load(FieldKey(l.Program.Declaration(ref)), l.Semantics.FieldValue(ref))
}

// MethodParameterValue keeps the receiver, which is known to be non-null.
func (l *Loading) MethodParameterValue(m *cf.Method, p Parameter) value.Value {
	v := l.Semantics.MethodParameterValue(m, p)
	if p.This || !l.Program.IsOnlyTarget(m) {
		return v
	}
	p.Method = m.Ref()
	return l.load(ParameterKey(p), v)
}

func (l *Loading) MethodReturnValue(ref cf.MethodRef, ret string) value.Value {
	v := l.Semantics.MethodReturnValue(ref, ret)
	m, ok := l.Program.ResolveMethod(ref)
	if !ok || !l.Program.IsExactTarget(m) {
		return v
	}
	return l.load(ReturnKey(m.Ref()), v)
}

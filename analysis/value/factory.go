package value

import (
	"math"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
)

// Factory creates values at the highest precision tier it supports.
type Factory interface {
	Hierarchy() Hierarchy

	// CreateValue creates an unknown value of the internal type typ.
	// Reference types use the nullness and extension hints.
	CreateValue(typ string, mayBeExtension, mayBeNull bool) Value
	CreateReference(typ string, mayBeExtension, mayBeNull bool) Value

	CreateInteger() IntegerValue
	CreateLong() LongValue
	CreateFloat() FloatValue
	CreateDouble() DoubleValue

	IntegerConstant(int32) IntegerValue
	LongConstant(int64) LongValue
	FloatConstant(float32) FloatValue
	DoubleConstant(float64) DoubleValue
	Null() Value

	// Constant creates the value pushed by ldc.
	Constant(cf.Constant) Value
	// NewInstance creates the object allocated by new.
	NewInstance(class string) Value
	// NewArray creates an array of the internal array type typ.
	NewArray(typ string, length IntegerValue) Value
	// Cast narrows a reference for checkcast.
	Cast(ref Value, class string) Value

	// Reset restarts identity numbering. Evaluations reset their factory
	// so that results do not depend on earlier runs.
	Reset()
}

// generic only creates values of the generic tier.
type generic struct {
	h Hierarchy
}

// NewGeneric returns a factory that never tracks constants.
func NewGeneric(h Hierarchy) Factory { return &generic{h} }

func (f *generic) Hierarchy() Hierarchy { return f.h }
func (f *generic) Reset()               {}

func (f *generic) CreateValue(typ string, mayBeExtension, mayBeNull bool) Value {
	return createValue(f, typ, mayBeExtension, mayBeNull)
}

func createValue(f Factory, typ string, mayBeExtension, mayBeNull bool) Value {
	switch {
	case cf.IsIntegerLike(typ):
		return f.CreateInteger()
	case typ == cf.TypeLong:
		return f.CreateLong()
	case typ == cf.TypeFloat:
		return f.CreateFloat()
	case typ == cf.TypeDouble:
		return f.CreateDouble()
	}
	return f.CreateReference(typ, mayBeExtension, mayBeNull)
}

func (f *generic) CreateReference(typ string, mayBeExtension, _ bool) Value {
	return GenericReference(typ, mayBeExtension, Maybe, f.h)
}

func (*generic) CreateInteger() IntegerValue        { return GenericInteger() }
func (*generic) CreateLong() LongValue              { return GenericLong() }
func (*generic) CreateFloat() FloatValue            { return GenericFloat() }
func (*generic) CreateDouble() DoubleValue          { return GenericDouble() }
func (*generic) IntegerConstant(int32) IntegerValue { return GenericInteger() }
func (*generic) LongConstant(int64) LongValue       { return GenericLong() }
func (*generic) FloatConstant(float32) FloatValue   { return GenericFloat() }
func (*generic) DoubleConstant(float64) DoubleValue { return GenericDouble() }

func (f *generic) Null() Value {
	return GenericReference("", true, Maybe, f.h)
}

func (f *generic) Constant(c cf.Constant) Value {
	return constantValue(f, c)
}

func constantValue(f Factory, c cf.Constant) Value {
	switch c := c.(type) {
	case cf.IntegerConstant:
		return f.IntegerConstant(int32(c))
	case cf.LongConstant:
		return f.LongConstant(int64(c))
	case cf.FloatConstant:
		return f.FloatConstant(float32(c))
	case cf.DoubleConstant:
		return f.DoubleConstant(float64(c))
	case cf.StringConstant:
		return f.CreateReference(cf.TypeOfClass(cf.NameString), false, false)
	case cf.ClassConstant:
		return f.CreateReference(cf.TypeOfClass(cf.NameClass), false, false)
	case cf.MethodTypeConstant:
		return f.CreateReference(cf.TypeOfClass(cf.NameMethodType), false, false)
	case cf.MethodHandleConstant:
		return f.CreateReference(cf.TypeOfClass(cf.NameHandle), true, false)
	case cf.DynamicRef:
		return f.CreateValue(c.Descriptor, true, true)
	}
	return f.CreateReference("", true, true)
}

func (f *generic) NewInstance(class string) Value {
	return f.CreateReference(cf.TypeOfClass(class), false, false)
}

func (f *generic) NewArray(typ string, _ IntegerValue) Value {
	return f.CreateReference(typ, false, false)
}

func (f *generic) Cast(ref Value, class string) Value {
	return AsReference(ref).Cast(class)
}

// particular tracks constants.
type particular struct {
	generic
}

// NewParticular returns a factory that tracks constants and nullness.
func NewParticular(h Hierarchy) Factory { return &particular{generic{h}} }

func (f *particular) CreateValue(typ string, mayBeExtension, mayBeNull bool) Value {
	return createValue(f, typ, mayBeExtension, mayBeNull)
}

func (f *particular) CreateReference(typ string, mayBeExtension, mayBeNull bool) Value {
	null := Never
	if mayBeNull {
		null = Maybe
	}
	return GenericReference(typ, mayBeExtension, null, f.h)
}

func (*particular) IntegerConstant(v int32) IntegerValue { return ConstantInteger(v) }
func (*particular) LongConstant(v int64) LongValue       { return ConstantLong(v) }
func (*particular) FloatConstant(v float32) FloatValue   { return ConstantFloat(v) }
func (*particular) DoubleConstant(v float64) DoubleValue { return ConstantDouble(v) }
func (*particular) Null() Value                          { return NullReference() }

func (f *particular) Constant(c cf.Constant) Value {
	switch c := c.(type) {
	case cf.StringConstant:
		return ReferenceValue{prec: Particular, typ: cf.TypeOfClass(cf.NameString), null: Never, constant: c, h: f.h}
	case cf.ClassConstant:
		return ReferenceValue{prec: Particular, typ: cf.TypeOfClass(cf.NameClass), null: Never, constant: c, h: f.h}
	}
	return constantValue(f, c)
}

func (f *particular) NewInstance(class string) Value {
	return f.CreateReference(cf.TypeOfClass(class), false, false)
}

func (f *particular) NewArray(typ string, length IntegerValue) Value {
	r := AsReference(f.CreateReference(typ, false, false))
	if c, ok := length.Constant(); ok && c >= 0 {
		r.length = length
	}
	return r
}

// identified additionally gives every unknown value a fresh identity.
type identified struct {
	particular
	next uint32
}

// NewIdentified returns a factory that tracks constants and identities.
func NewIdentified(h Hierarchy) Factory { return &identified{particular: particular{generic{h}}} }

func (f *identified) Reset() { f.next = 0 }

func (f *identified) fresh() uint32 {
	if f.next == math.MaxUint32 {
		panic("identified value counter overflow")
	}
	f.next++
	return f.next
}

func (f *identified) CreateValue(typ string, mayBeExtension, mayBeNull bool) Value {
	return createValue(f, typ, mayBeExtension, mayBeNull)
}

func (f *identified) CreateInteger() IntegerValue {
	return IntegerValue{prec: Specific, id: f.fresh()}
}

func (f *identified) CreateLong() LongValue {
	return LongValue{prec: Specific, id: f.fresh()}
}

func (f *identified) CreateFloat() FloatValue {
	return FloatValue{prec: Specific, id: f.fresh()}
}

func (f *identified) CreateDouble() DoubleValue {
	return DoubleValue{prec: Specific, id: f.fresh()}
}

func (f *identified) CreateReference(typ string, mayBeExtension, mayBeNull bool) Value {
	r := AsReference(f.particular.CreateReference(typ, mayBeExtension, mayBeNull))
	r.prec, r.id = Specific, f.fresh()
	return r
}

func (f *identified) Constant(c cf.Constant) Value {
	switch c.(type) {
	case cf.StringConstant, cf.ClassConstant:
		return f.particular.Constant(c)
	}
	return constantValue(f, c)
}

func (f *identified) NewInstance(class string) Value {
	return f.CreateReference(cf.TypeOfClass(class), false, false)
}

func (f *identified) NewArray(typ string, length IntegerValue) Value {
	r := AsReference(f.CreateReference(typ, false, false))
	if c, ok := length.Constant(); ok && c >= 0 {
		r.length = length
	}
	return r
}

// ReferenceTracing decorates a factory. Allocated objects and cast results
// are traced to the offset set with SetTraceOffset.
type ReferenceTracing struct {
	Factory
	offset int
}

// NewReferenceTracing wraps the given factory.
func NewReferenceTracing(f Factory) *ReferenceTracing {
	return &ReferenceTracing{Factory: f}
}

// SetTraceOffset sets the offset of the instruction being simulated.
func (f *ReferenceTracing) SetTraceOffset(offset int) { f.offset = offset }

// TraceOffset returns the offset of the instruction being simulated.
func (f *ReferenceTracing) TraceOffset() int { return f.offset }

func (f *ReferenceTracing) NewInstance(class string) Value {
	return Trace(f.Factory.NewInstance(class), Origin{f.offset, OriginNewInstance})
}

func (f *ReferenceTracing) NewArray(typ string, length IntegerValue) Value {
	return Trace(f.Factory.NewArray(typ, length), Origin{f.offset, OriginNewInstance})
}

func (f *ReferenceTracing) Constant(c cf.Constant) Value {
	v := f.Factory.Constant(c)
	if v.ComputationalType() == TypeReference {
		return Trace(v, Origin{f.offset, OriginPlain})
	}
	return v
}

func (f *ReferenceTracing) Cast(ref Value, class string) Value {
	r := AsReference(ref)
	if c := f.Factory.Cast(r, class); !c.Equal(r) {
		return Trace(c, Origin{f.offset, OriginCast})
	}
	return ref
}

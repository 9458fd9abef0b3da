package value

import (
	"fmt"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
)

// Hierarchy answers subtyping questions about internal class names and
// array types. It is implemented by *classfile.Program.
type Hierarchy interface {
	IsSubtype(sub, super string) (is, known bool)
	CommonSupertype(a, b string) string
	IsExactType(name string) bool
}

var _ Hierarchy = (*cf.Program)(nil)

// ReferenceValue is a value of computational type reference.
type ReferenceValue struct {
	prec Precision
	id   uint32
	// typ is the internal type of the reference. The empty string is the
	// type of null.
	typ string
	// ext is set when the runtime type may be a proper subtype of typ.
	ext  bool
	null Certainty
	// length is the length of arrays allocated at a known size.
	length   IntegerValue
	constant cf.Constant
	h        Hierarchy
}

// NullReference returns the particular null reference.
func NullReference() ReferenceValue {
	return ReferenceValue{prec: Particular, null: Always}
}

// GenericReference returns an unknown reference of the internal type typ.
func GenericReference(typ string, mayBeExtension bool, null Certainty, h Hierarchy) ReferenceValue {
	if typ == "" {
		typ = cf.TypeOfClass(cf.NameObject)
	}
	return ReferenceValue{typ: typ, ext: mayBeExtension, null: null, h: h}
}

func (ReferenceValue) ComputationalType() ComputationalType { return TypeReference }
func (r ReferenceValue) Precision() Precision               { return r.prec }
func (ReferenceValue) IsCategory2() bool                    { return false }

// Type returns the internal type of the reference, or the empty string for
// the null type.
func (r ReferenceValue) Type() string { return r.typ }

// ClassName returns the internal class name of the type, or the array type.
func (r ReferenceValue) ClassName() string { return cf.ClassName(r.typ) }

func (r ReferenceValue) MayBeExtension() bool { return r.ext }

// IsNull is the certainty of the reference being null.
func (r ReferenceValue) IsNull() Certainty { return r.null }

func (r ReferenceValue) ID() (uint32, bool) { return r.id, r.prec == Specific }

// Constant returns the constant pool entry a string or class reference was
// loaded from.
func (r ReferenceValue) Constant() (cf.Constant, bool) {
	return r.constant, r.prec == Particular && r.constant != nil
}

// IsArray reports whether the reference is definitely an array.
func (r ReferenceValue) IsArray() bool { return cf.IsArrayType(r.typ) }

// ArrayLength returns the length of an array allocated with a known size.
func (r ReferenceValue) ArrayLength() IntegerValue {
	if r.IsArray() {
		return r.length
	}
	return GenericInteger()
}

// WithNull returns the same reference with a refined nullness.
func (r ReferenceValue) WithNull(c Certainty) ReferenceValue {
	r.null = c
	return r
}

func (r ReferenceValue) Equal(o Value) bool {
	s, ok := o.(ReferenceValue)
	return ok && r.equal(s)
}

func (r ReferenceValue) equal(s ReferenceValue) bool {
	return r.prec == s.prec && r.id == s.id && r.typ == s.typ && r.ext == s.ext &&
		r.null == s.null && r.length == s.length && r.constant == s.constant
}

func (r ReferenceValue) Generalize(o Value) Value {
	switch o := o.(type) {
	case ReferenceValue:
		return r.generalize(o)
	case TracedReferenceValue:
		return o.Generalize(r)
	}
	return TopValue{}
}

func (r ReferenceValue) generalize(o ReferenceValue) ReferenceValue {
	if r.equal(o) {
		return r
	}
	h := r.h
	if h == nil {
		h = o.h
	}

	res := ReferenceValue{null: r.null.Join(o.null), h: h}
	switch {
	case r.typ == "":
		res.typ, res.ext = o.typ, o.ext
	case o.typ == "":
		res.typ, res.ext = r.typ, r.ext
	case r.typ == o.typ:
		res.typ, res.ext = r.typ, r.ext || o.ext
	default:
		common := cf.NameObject
		if h != nil {
			common = h.CommonSupertype(r.ClassName(), o.ClassName())
		}
		res.typ = cf.TypeOfClass(common)
		res.ext = h == nil || !h.IsExactType(common)
	}
	if r.typ != "" && o.typ != "" && r.length == o.length {
		res.length = r.length
	}
	// The same object with different nullness or type refinements.
	if r.prec == Specific && o.prec == Specific && r.id == o.id {
		res.prec, res.id = Specific, r.id
	}
	return res
}

func (r ReferenceValue) isSubtypeOf(class string) (is, known bool) {
	if r.h == nil {
		sub := r.ClassName()
		return sub == class || class == cf.NameObject, sub == class || class == cf.NameObject
	}
	return r.h.IsSubtype(r.ClassName(), class)
}

// InstanceOf is the certainty of the reference being a non-null instance
// of the internal class name (or array type) class. References that may
// be extensions are only known to be instances when their declared type
// already is a subtype.
func (r ReferenceValue) InstanceOf(class string) Certainty {
	if r.null == Always || r.typ == "" {
		return Never
	}
	is, known := r.isSubtypeOf(class)
	switch {
	case is && known:
		if r.null == Never {
			return Always
		}
		return Maybe
	case known && !r.ext:
		return Never
	}
	return Maybe
}

// Cast narrows the reference to the internal class name class. Casts to a
// supertype leave the reference unchanged.
func (r ReferenceValue) Cast(class string) ReferenceValue {
	if r.null == Always {
		return r
	}
	if is, known := r.isSubtypeOf(class); is && known {
		return r
	}
	res := r
	res.typ = cf.TypeOfClass(class)
	res.ext = r.h == nil || !r.h.IsExactType(class)
	res.constant = nil
	res.length = GenericInteger()
	if res.prec == Particular {
		res.prec = Generic
	}
	return res
}

// ReferenceEq is the certainty of two references being identical.
func (r ReferenceValue) ReferenceEq(o ReferenceValue) Certainty {
	switch {
	case r.null == Always && o.null == Always:
		return Always
	case (r.null == Always && o.null == Never) || (r.null == Never && o.null == Always):
		return Never
	case r.prec == Specific && o.prec == Specific && r.id == o.id:
		return Always
	}
	return Maybe
}

func (r ReferenceValue) String() string {
	if r.typ == "" {
		return typeColor("ref") + ":" + particularColor("null")
	}
	str := typeColor("ref") + ":" + r.typ
	if r.ext {
		str += "+"
	}
	switch r.null {
	case Never:
		str += "!"
	case Maybe:
		str += "?"
	}
	if c, ok := r.length.Constant(); ok && r.IsArray() {
		str += fmt.Sprintf("[%d]", c)
	}
	switch r.prec {
	case Specific:
		str += specificColor(fmt.Sprintf("#%d", r.id))
	case Particular:
		if r.constant != nil {
			str += "=" + particularColor(r.constant.String())
		}
	}
	return str
}

// AsReference returns the reference underlying a reference value. It panics
// on values of other computational types.
func AsReference(v Value) ReferenceValue {
	switch v := v.(type) {
	case ReferenceValue:
		return v
	case TracedReferenceValue:
		return v.ReferenceValue
	}
	panic(fmt.Errorf("%v is not a reference", v))
}

package value

import (
	"errors"
	"fmt"
	"math"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
)

var ErrEncoding = errors.New("malformed encoded value")

const (
	constantString uint8 = iota + 1
	constantClass
)

// Encoded is the serializable form of a value.
type Encoded struct {
	Type      ComputationalType `cbor:"1,keyasint"`
	Precision Precision         `cbor:"2,keyasint,omitempty"`
	ID        uint32            `cbor:"3,keyasint,omitempty"`
	// Bits holds integer and long constants, and the IEEE 754 bits of
	// float and double constants.
	Bits     uint64           `cbor:"4,keyasint,omitempty"`
	Class    string           `cbor:"5,keyasint,omitempty"`
	Ext      bool             `cbor:"6,keyasint,omitempty"`
	Null     Certainty        `cbor:"7,keyasint,omitempty"`
	Length   *int32           `cbor:"8,keyasint,omitempty"`
	Constant *EncodedConstant `cbor:"9,keyasint,omitempty"`
	// Origins are the elements of offset sets and the traces of references.
	Origins []Origin `cbor:"10,keyasint,omitempty"`
	Traced  bool     `cbor:"11,keyasint,omitempty"`
}

// EncodedConstant is a string or class constant of a reference.
type EncodedConstant struct {
	Kind uint8  `cbor:"1,keyasint"`
	Text string `cbor:"2,keyasint"`
}

// Encode converts v into its serializable form. A nil value encodes as
// ⊤.
func Encode(v Value) Encoded {
	if v == nil {
		return Encoded{Type: TypeTop}
	}
	e := Encoded{Type: v.ComputationalType(), Precision: v.Precision()}
	switch v := v.(type) {
	case IntegerValue:
		e.ID, e.Bits = v.id, uint64(int64(v.v))
	case LongValue:
		e.ID, e.Bits = v.id, uint64(v.v)
	case FloatValue:
		e.ID, e.Bits = v.id, uint64(math.Float32bits(v.v))
	case DoubleValue:
		e.ID, e.Bits = v.id, math.Float64bits(v.v)
	case ReferenceValue:
		encodeReference(&e, v)
	case TracedReferenceValue:
		encodeReference(&e, v.ReferenceValue)
		e.Traced, e.Origins = true, v.Trace.Origins()
	case InstructionOffsetValue:
		e.Origins = v.Origins()
	}
	return e
}

func encodeReference(e *Encoded, r ReferenceValue) {
	e.ID, e.Class, e.Ext, e.Null = r.id, r.typ, r.ext, r.null
	if c, ok := r.length.Constant(); ok {
		e.Length = &c
	}
	switch c := r.constant.(type) {
	case cf.StringConstant:
		e.Constant = &EncodedConstant{constantString, string(c)}
	case cf.ClassConstant:
		e.Constant = &EncodedConstant{constantClass, string(c)}
	}
}

// Decode rebuilds the encoded value. References are attached to the given
// class hierarchy.
func (e Encoded) Decode(h Hierarchy) (Value, error) {
	switch e.Type {
	case TypeInteger:
		return IntegerValue{e.Precision, e.ID, int32(int64(e.Bits))}, nil
	case TypeLong:
		return LongValue{e.Precision, e.ID, int64(e.Bits)}, nil
	case TypeFloat:
		return FloatValue{e.Precision, e.ID, math.Float32frombits(uint32(e.Bits))}, nil
	case TypeDouble:
		return DoubleValue{e.Precision, e.ID, math.Float64frombits(e.Bits)}, nil
	case TypeTop:
		return TopValue{}, nil
	case TypeOffset:
		return NewOrigins(e.Origins...), nil
	case TypeReference:
		r := ReferenceValue{prec: e.Precision, id: e.ID, typ: e.Class, ext: e.Ext, null: e.Null, h: h}
		if e.Length != nil {
			r.length = ConstantInteger(*e.Length)
		}
		if c := e.Constant; c != nil {
			switch c.Kind {
			case constantString:
				r.constant = cf.StringConstant(c.Text)
			case constantClass:
				r.constant = cf.ClassConstant(c.Text)
			default:
				return nil, fmt.Errorf("%w: constant kind %d", ErrEncoding, c.Kind)
			}
		}
		if e.Traced {
			return TracedReferenceValue{r, NewOrigins(e.Origins...)}, nil
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: computational type %d", ErrEncoding, int(e.Type))
}

// Portable strips the parts of v that only have a meaning within one
// evaluation: identities become generic and traces are dropped.
func Portable(v Value) Value {
	switch v := v.(type) {
	case IntegerValue:
		if v.prec == Specific {
			return GenericInteger()
		}
	case LongValue:
		if v.prec == Specific {
			return GenericLong()
		}
	case FloatValue:
		if v.prec == Specific {
			return GenericFloat()
		}
	case DoubleValue:
		if v.prec == Specific {
			return GenericDouble()
		}
	case TracedReferenceValue:
		return Portable(v.ReferenceValue)
	case ReferenceValue:
		if v.prec == Specific {
			v.prec, v.id = Generic, 0
		}
		return v
	}
	return v
}

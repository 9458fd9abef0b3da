package value

// TracedReferenceValue is a reference annotated with the origins of the
// object it points to.
type TracedReferenceValue struct {
	ReferenceValue
	Trace InstructionOffsetValue
}

// Trace attaches an origin to reference values. Other values are returned
// unchanged.
func Trace(v Value, o Origin) Value {
	switch v := v.(type) {
	case ReferenceValue:
		return TracedReferenceValue{v, NewOrigins(o)}
	case TracedReferenceValue:
		return TracedReferenceValue{v.ReferenceValue, NewOrigins(o)}
	}
	return v
}

// TraceOf returns the origins of a traced reference, or the empty set.
func TraceOf(v Value) InstructionOffsetValue {
	if t, ok := v.(TracedReferenceValue); ok {
		return t.Trace
	}
	return EmptyOffsets
}

func (t TracedReferenceValue) Equal(o Value) bool {
	u, ok := o.(TracedReferenceValue)
	return ok && t.ReferenceValue.equal(u.ReferenceValue) && t.Trace.Equal(u.Trace)
}

func (t TracedReferenceValue) Generalize(o Value) Value {
	switch o := o.(type) {
	case TracedReferenceValue:
		return TracedReferenceValue{
			t.ReferenceValue.generalize(o.ReferenceValue),
			t.Trace.Union(o.Trace),
		}
	case ReferenceValue:
		return TracedReferenceValue{t.ReferenceValue.generalize(o), t.Trace}
	}
	return TopValue{}
}

func (t TracedReferenceValue) String() string {
	return t.ReferenceValue.String() + "@" + t.Trace.String()
}

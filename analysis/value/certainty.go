package value

// Certainty is a three-valued truth value.
type Certainty int

const (
	Never Certainty = iota
	Maybe
	Always
)

// CertaintyOf lifts a definite boolean.
func CertaintyOf(b bool) Certainty {
	if b {
		return Always
	}
	return Never
}

// Negate swaps Always and Never.
func (c Certainty) Negate() Certainty {
	return Always - c
}

// Join is Maybe unless both certainties agree.
func (c Certainty) Join(o Certainty) Certainty {
	if c == o {
		return c
	}
	return Maybe
}

// And combines the certainties of two independent conditions that must
// both hold.
func (c Certainty) And(o Certainty) Certainty {
	switch {
	case c == Never || o == Never:
		return Never
	case c == Always && o == Always:
		return Always
	}
	return Maybe
}

// IsDefinite reports whether c is Always or Never.
func (c Certainty) IsDefinite() bool {
	return c != Maybe
}

func (c Certainty) String() string {
	switch c {
	case Never:
		return "never"
	case Always:
		return "always"
	}
	return "maybe"
}

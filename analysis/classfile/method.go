package classfile

import (
	"errors"
	"fmt"
)

var ErrMalformedCode = errors.New("malformed code")

// ExceptionHandler is one entry of the exception table of a method. The
// try range [Start, End) is guarded; an empty CatchType catches everything.
type ExceptionHandler struct {
	Start     int
	End       int
	Handler   int
	CatchType string
}

// Covers reports whether the instruction offset lies in the try range.
func (h ExceptionHandler) Covers(offset int) bool {
	return h.Start <= offset && offset < h.End
}

func (h ExceptionHandler) String() string {
	catch := h.CatchType
	if catch == "" {
		catch = "any"
	}
	return fmt.Sprintf("[%d, %d) -> %d (%s)", h.Start, h.End, h.Handler, catch)
}

// Method is a method declaration together with its decoded code.
type Method struct {
	Class          string
	Name           string
	Descriptor     string
	Flags          AccessFlags
	MaxStack       int
	MaxLocals      int
	Code           []Instruction
	ExceptionTable []ExceptionHandler
}

// IsStatic reports whether the method has no receiver.
func (m *Method) IsStatic() bool {
	return m.Flags.Has(AccStatic)
}

// IsInitializer reports whether the method is an instance initializer.
func (m *Method) IsInitializer() bool {
	return m.Name == "<init>"
}

// Ref returns a symbolic reference to the method.
func (m *Method) Ref() MethodRef {
	return MethodRef{Class: m.Class, Name: m.Name, Descriptor: m.Descriptor}
}

func (m *Method) String() string {
	return m.Class + "." + m.Name + m.Descriptor
}

// CodeLength is the size of the code in bytes.
func (m *Method) CodeLength() int {
	if len(m.Code) == 0 {
		return 0
	}
	return Next(m.Code[len(m.Code)-1])
}

// Index maps every instruction offset to its instruction. Offsets inside
// an instruction map to nil.
func (m *Method) Index() []Instruction {
	index := make([]Instruction, m.CodeLength())
	for _, ins := range m.Code {
		index[ins.Offset()] = ins
	}
	return index
}

// Validate checks the structural well-formedness of the code: contiguous
// offsets, branch targets and exception handlers at instruction boundaries,
// and a descriptor that can be parsed.
func (m *Method) Validate() error {
	if _, _, err := ParseMethodDescriptor(m.Descriptor); err != nil {
		return err
	}
	size, _ := ParameterSize(m.Descriptor, m.IsStatic())
	if size > m.MaxLocals {
		return fmt.Errorf("%w: %s: parameters need %d locals, max is %d",
			ErrMalformedCode, m, size, m.MaxLocals)
	}
	if len(m.Code) == 0 {
		return fmt.Errorf("%w: %s: empty code", ErrMalformedCode, m)
	}

	boundary := make(map[int]bool, len(m.Code))
	at := 0
	for _, ins := range m.Code {
		if ins.Offset() != at {
			return fmt.Errorf("%w: %s: expected instruction at %d, found %s",
				ErrMalformedCode, m, at, ins)
		}
		if k := ins.Opcode().Kind(); k == KindReserved || k == KindWide {
			return fmt.Errorf("%w: %s: unsupported opcode %s", ErrMalformedCode, m, ins)
		}
		boundary[at] = true
		at = Next(ins)
	}

	for _, ins := range m.Code {
		for _, t := range Successors(ins) {
			if !boundary[t] {
				return fmt.Errorf("%w: %s: branch target %d of %s", ErrMalformedCode, m, t, ins)
			}
		}
	}
	for _, h := range m.ExceptionTable {
		if !boundary[h.Start] || !(boundary[h.End] || h.End == at) || !boundary[h.Handler] || h.Start >= h.End {
			return fmt.Errorf("%w: %s: exception handler %s", ErrMalformedCode, m, h)
		}
	}
	return nil
}

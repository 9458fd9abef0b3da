package classfile

import (
	"fmt"
	"strconv"
)

// Constant is an operand of a constant instruction, as resolved from the
// constant pool of the enclosing class.
type Constant interface {
	String() string
	isConstant()
}

type (
	IntegerConstant int32
	LongConstant    int64
	FloatConstant   float32
	DoubleConstant  float64
	StringConstant  string
	// ClassConstant holds an internal class name, e. g. java/lang/String or [I.
	ClassConstant string
	// MethodTypeConstant holds a method descriptor.
	MethodTypeConstant string

	// MethodHandleConstant references a field or method through a handle.
	MethodHandleConstant struct {
		Kind      int
		Reference Member
	}

	// FieldRef is a symbolic reference to a field.
	FieldRef struct {
		Class      string
		Name       string
		Descriptor string
	}

	// MethodRef is a symbolic reference to a method.
	MethodRef struct {
		Class      string
		Name       string
		Descriptor string
		Interface  bool
	}

	// DynamicRef is a dynamically-computed call site or constant.
	DynamicRef struct {
		Bootstrap  int
		Name       string
		Descriptor string
	}
)

// Member is implemented by symbolic field and method references.
type Member interface {
	Constant
	Owner() string
	MemberName() string
	MemberDescriptor() string
	// Key uniquely identifies the referenced member.
	Key() string
}

func (IntegerConstant) isConstant()      {}
func (LongConstant) isConstant()         {}
func (FloatConstant) isConstant()        {}
func (DoubleConstant) isConstant()       {}
func (StringConstant) isConstant()       {}
func (ClassConstant) isConstant()        {}
func (MethodTypeConstant) isConstant()   {}
func (MethodHandleConstant) isConstant() {}
func (FieldRef) isConstant()             {}
func (MethodRef) isConstant()            {}
func (DynamicRef) isConstant()           {}

func (c IntegerConstant) String() string { return strconv.Itoa(int(c)) }
func (c LongConstant) String() string    { return strconv.FormatInt(int64(c), 10) + "L" }
func (c FloatConstant) String() string {
	return strconv.FormatFloat(float64(c), 'g', -1, 32) + "f"
}
func (c DoubleConstant) String() string {
	return strconv.FormatFloat(float64(c), 'g', -1, 64) + "d"
}
func (c StringConstant) String() string     { return strconv.Quote(string(c)) }
func (c ClassConstant) String() string      { return string(c) }
func (c MethodTypeConstant) String() string { return string(c) }
func (c MethodHandleConstant) String() string {
	return fmt.Sprintf("handle(%d, %s)", c.Kind, c.Reference)
}

func (r FieldRef) Owner() string            { return r.Class }
func (r FieldRef) MemberName() string       { return r.Name }
func (r FieldRef) MemberDescriptor() string { return r.Descriptor }
func (r FieldRef) Key() string              { return r.Class + "." + r.Name + ":" + r.Descriptor }
func (r FieldRef) String() string           { return r.Key() }

func (r MethodRef) Owner() string            { return r.Class }
func (r MethodRef) MemberName() string       { return r.Name }
func (r MethodRef) MemberDescriptor() string { return r.Descriptor }
func (r MethodRef) Key() string              { return r.Class + "." + r.Name + r.Descriptor }
func (r MethodRef) String() string           { return r.Key() }

func (r DynamicRef) String() string {
	return fmt.Sprintf("#%d:%s%s", r.Bootstrap, r.Name, r.Descriptor)
}

// ReferencedClasses lists the class names mentioned by the descriptor of
// the call site, in order of appearance.
func (r DynamicRef) ReferencedClasses() []string {
	return DescriptorClasses(r.Descriptor)
}

var (
	_ Member = FieldRef{}
	_ Member = MethodRef{}
)

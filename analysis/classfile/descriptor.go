package classfile

import (
	"errors"
	"fmt"
	"strings"
)

// Internal type descriptors of primitive types.
const (
	TypeBoolean = "Z"
	TypeByte    = "B"
	TypeChar    = "C"
	TypeShort   = "S"
	TypeInt     = "I"
	TypeLong    = "J"
	TypeFloat   = "F"
	TypeDouble  = "D"
	TypeVoid    = "V"
)

const (
	NameObject     = "java/lang/Object"
	NameThrowable  = "java/lang/Throwable"
	NameString     = "java/lang/String"
	NameClass      = "java/lang/Class"
	NameCloneable  = "java/lang/Cloneable"
	NameSerialize  = "java/io/Serializable"
	NameMethodType = "java/lang/invoke/MethodType"
	NameHandle     = "java/lang/invoke/MethodHandle"
)

var ErrDescriptor = errors.New("malformed descriptor")

// IsCategory2Type reports whether values of the internal type occupy two slots.
func IsCategory2Type(t string) bool {
	return t == TypeLong || t == TypeDouble
}

// IsArrayType reports whether the internal type is an array type.
func IsArrayType(t string) bool {
	return strings.HasPrefix(t, "[")
}

// IsClassType reports whether the internal type is a class type (L...;).
func IsClassType(t string) bool {
	return strings.HasPrefix(t, "L") && strings.HasSuffix(t, ";")
}

// IsReferenceType reports whether the internal type denotes a reference.
func IsReferenceType(t string) bool {
	return IsArrayType(t) || IsClassType(t)
}

// IsIntegerLike reports whether the internal type is computed as an int.
func IsIntegerLike(t string) bool {
	switch t {
	case TypeBoolean, TypeByte, TypeChar, TypeShort, TypeInt:
		return true
	}
	return false
}

// ClassName strips the class type wrapper: Ljava/lang/String; becomes
// java/lang/String. Array types are returned unchanged.
func ClassName(t string) string {
	if IsClassType(t) {
		return t[1 : len(t)-1]
	}
	return t
}

// TypeOfClass converts an internal class name, as found in class constants,
// to an internal type.
func TypeOfClass(name string) string {
	if IsArrayType(name) {
		return name
	}
	return "L" + name + ";"
}

// ElementType returns the component type of an array type.
func ElementType(t string) string {
	if IsArrayType(t) {
		return t[1:]
	}
	return t
}

// ArrayDimensions counts the leading '[' of an array type.
func ArrayDimensions(t string) (n int) {
	for n < len(t) && t[n] == '[' {
		n++
	}
	return
}

// ArrayTypeOfCode maps a newarray type code to an internal array type.
func ArrayTypeOfCode(code int) (string, error) {
	switch code {
	case 4:
		return "[Z", nil
	case 5:
		return "[C", nil
	case 6:
		return "[F", nil
	case 7:
		return "[D", nil
	case 8:
		return "[B", nil
	case 9:
		return "[S", nil
	case 10:
		return "[I", nil
	case 11:
		return "[J", nil
	}
	return "", fmt.Errorf("%w: newarray type code %d", ErrDescriptor, code)
}

// nextType splits the first field type off a descriptor fragment.
func nextType(desc string) (string, string, error) {
	i := 0
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i == len(desc) {
		return "", "", fmt.Errorf("%w: %q", ErrDescriptor, desc)
	}
	switch desc[i] {
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
		return desc[:i+1], desc[i+1:], nil
	case 'V':
		if i > 0 {
			return "", "", fmt.Errorf("%w: array of void in %q", ErrDescriptor, desc)
		}
		return desc[:1], desc[1:], nil
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return "", "", fmt.Errorf("%w: unterminated class type in %q", ErrDescriptor, desc)
		}
		return desc[:i+end+1], desc[i+end+1:], nil
	}
	return "", "", fmt.Errorf("%w: unexpected %q in %q", ErrDescriptor, desc[i], desc)
}

// ParseMethodDescriptor splits a method descriptor into the parameter and
// return types.
func ParseMethodDescriptor(desc string) (params []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("%w: %q", ErrDescriptor, desc)
	}
	rest := desc[1:]
	for !strings.HasPrefix(rest, ")") {
		var t string
		if t, rest, err = nextType(rest); err != nil {
			return nil, "", err
		}
		if t == TypeVoid {
			return nil, "", fmt.Errorf("%w: void parameter in %q", ErrDescriptor, desc)
		}
		params = append(params, t)
	}
	if ret, rest, err = nextType(rest[1:]); err != nil {
		return nil, "", err
	}
	if rest != "" {
		return nil, "", fmt.Errorf("%w: trailing %q in %q", ErrDescriptor, rest, desc)
	}
	return params, ret, nil
}

// ValidFieldType reports whether t is a single, non-void field type.
func ValidFieldType(t string) bool {
	ft, rest, err := nextType(t)
	return err == nil && rest == "" && ft != TypeVoid
}

// ParameterSize returns the number of local variable slots taken by the
// parameters of a method descriptor, including `this` for instance methods.
func ParameterSize(desc string, static bool) (int, error) {
	params, _, err := ParseMethodDescriptor(desc)
	if err != nil {
		return 0, err
	}
	size := 0
	if !static {
		size++
	}
	for _, p := range params {
		size++
		if IsCategory2Type(p) {
			size++
		}
	}
	return size, nil
}

// DescriptorClasses lists the class names referenced by a field or method
// descriptor, in order of appearance.
func DescriptorClasses(desc string) (classes []string) {
	for {
		i := strings.IndexByte(desc, 'L')
		if i < 0 {
			return
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return
		}
		classes = append(classes, desc[i+1:i+end])
		desc = desc[i+end+1:]
	}
}

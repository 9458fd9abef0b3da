package classfile

import "fmt"

// AccessFlags are the access and property flags of classes and members.
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSynchronized AccessFlags = 0x0020
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
)

// Has checks whether all the given flags are set.
func (f AccessFlags) Has(flags AccessFlags) bool {
	return f&flags == flags
}

// ClassID addresses a class record in a Program.
type ClassID int

// NoClass is the ClassID of classes that are not part of the program.
const NoClass ClassID = -1

type (
	// Class is an immutable class record.
	Class struct {
		ID         ClassID
		Name       string
		Super      string
		Interfaces []string
		Flags      AccessFlags
		Fields     []*Field
		Methods    []*Method
	}

	// Field is a field declaration.
	Field struct {
		Name       string
		Descriptor string
		Flags      AccessFlags
	}

	// Program is an arena of class records, addressed by ClassID or by
	// interned name. It is built once and never mutated afterwards, so it can
	// be shared between concurrently running evaluations.
	Program struct {
		classes []*Class
		ids     map[string]ClassID
	}
)

// IsFinal reports whether the class cannot be extended.
func (c *Class) IsFinal() bool {
	return c.Flags.Has(AccFinal)
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool {
	return c.Flags.Has(AccInterface)
}

// Method returns the declared method with the given name and descriptor.
func (c *Class) Method(name, desc string) (*Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == desc {
			return m, true
		}
	}
	return nil, false
}

// Field returns the declared field with the given name and descriptor.
func (c *Class) Field(name, desc string) (*Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name && f.Descriptor == desc {
			return f, true
		}
	}
	return nil, false
}

// NewProgram freezes the given class records into a program. Class IDs are
// assigned in order, and the methods of each class are linked back to it.
func NewProgram(classes ...*Class) (*Program, error) {
	p := &Program{
		classes: make([]*Class, 0, len(classes)),
		ids:     make(map[string]ClassID, len(classes)),
	}
	for _, c := range classes {
		if _, dup := p.ids[c.Name]; dup {
			return nil, fmt.Errorf("duplicate class %s", c.Name)
		}
		c.ID = ClassID(len(p.classes))
		p.ids[c.Name] = c.ID
		p.classes = append(p.classes, c)
		for _, m := range c.Methods {
			m.Class = c.Name
		}
	}
	return p, nil
}

// Class looks up a class record by name.
func (p *Program) Class(name string) (*Class, bool) {
	if p == nil {
		return nil, false
	}
	id, ok := p.ids[name]
	if !ok {
		return nil, false
	}
	return p.classes[id], true
}

// ID returns the ClassID of the named class, or NoClass.
func (p *Program) ID(name string) ClassID {
	if c, ok := p.Class(name); ok {
		return c.ID
	}
	return NoClass
}

// ByID returns the class record with the given ID.
func (p *Program) ByID(id ClassID) *Class {
	if p == nil || id < 0 || int(id) >= len(p.classes) {
		return nil
	}
	return p.classes[id]
}

// Classes returns all class records in ID order.
func (p *Program) Classes() []*Class {
	if p == nil {
		return nil
	}
	return p.classes
}

// Methods returns every method of every class, in ID order.
func (p *Program) Methods() (ms []*Method) {
	for _, c := range p.Classes() {
		ms = append(ms, c.Methods...)
	}
	return
}

// superTypes lists the direct supertypes of a class name.
func (p *Program) superTypes(name string) ([]string, bool) {
	if name == NameObject {
		return nil, true
	}
	c, ok := p.Class(name)
	if !ok {
		return nil, false
	}
	sups := make([]string, 0, 1+len(c.Interfaces))
	if c.Super != "" {
		sups = append(sups, c.Super)
	} else {
		sups = append(sups, NameObject)
	}
	return append(sups, c.Interfaces...), true
}

// IsSubtype decides whether internal class name (or array type) sub is
// assignable to super. The second result is false when the hierarchy
// is incomplete and the answer could not be determined.
func (p *Program) IsSubtype(sub, super string) (is bool, known bool) {
	if sub == super || super == NameObject {
		return true, true
	}
	if IsArrayType(sub) {
		if super == NameCloneable || super == NameSerialize {
			return true, true
		}
		if !IsArrayType(super) {
			return false, true
		}
		se, pe := ElementType(sub), ElementType(super)
		if !IsReferenceType(se) || !IsReferenceType(pe) {
			return se == pe, true
		}
		return p.IsSubtype(ClassName(se), ClassName(pe))
	}
	if IsArrayType(super) {
		return false, true
	}

	known = true
	visited := map[string]bool{sub: true}
	queue := []string{sub}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		sups, ok := p.superTypes(next)
		if !ok {
			known = false
			continue
		}
		for _, s := range sups {
			if s == super {
				return true, true
			}
			if !visited[s] {
				visited[s] = true
				queue = append(queue, s)
			}
		}
	}
	return false, known
}

// CommonSupertype returns the most specific common superclass of two
// internal class names (or array types). Unknown hierarchies resolve to
// java/lang/Object.
func (p *Program) CommonSupertype(a, b string) string {
	if a == b {
		return a
	}
	if IsArrayType(a) || IsArrayType(b) {
		if IsArrayType(a) && IsArrayType(b) {
			ae, be := ElementType(a), ElementType(b)
			if IsReferenceType(ae) && IsReferenceType(be) {
				return "[" + TypeOfClass(p.CommonSupertype(ClassName(ae), ClassName(be)))
			}
		}
		return NameObject
	}

	chain := map[string]bool{}
	for c := a; c != ""; {
		chain[c] = true
		cls, ok := p.Class(c)
		if !ok {
			break
		}
		c = cls.Super
	}
	for c := b; c != ""; {
		if chain[c] {
			return c
		}
		cls, ok := p.Class(c)
		if !ok {
			break
		}
		c = cls.Super
	}
	return NameObject
}

// IsExactType reports whether a value declared with the given class name
// can only ever be an instance of exactly that class.
func (p *Program) IsExactType(name string) bool {
	if IsArrayType(name) {
		el := ElementType(name)
		return !IsReferenceType(el) || p.IsExactType(ClassName(el))
	}
	c, ok := p.Class(name)
	return ok && c.IsFinal()
}

// supertypesOf lists the supertypes of a class in breadth-first order,
// superclasses before interfaces at each level. The second result is false
// when some supertype other than java/lang/Object is not in the program.
func (p *Program) supertypesOf(name string) ([]string, bool) {
	var order []string
	known := true
	visited := map[string]bool{name: true}
	queue := []string{name}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		sups, ok := p.superTypes(next)
		if !ok {
			known = false
			continue
		}
		for _, s := range sups {
			if !visited[s] {
				visited[s] = true
				order = append(order, s)
				queue = append(queue, s)
			}
		}
	}
	return order, known
}

// ResolveField finds the class declaring the field a reference denotes:
// the referenced class, then its supertypes. References that cannot be
// resolved within the program are returned unchanged with false.
func (p *Program) ResolveField(ref FieldRef) (FieldRef, bool) {
	c, ok := p.Class(ref.Class)
	if !ok {
		return ref, false
	}
	if _, found := c.Field(ref.Name, ref.Descriptor); found {
		return ref, true
	}
	sups, _ := p.supertypesOf(ref.Class)
	for _, s := range sups {
		if sc, ok := p.Class(s); ok {
			if _, found := sc.Field(ref.Name, ref.Descriptor); found {
				ref.Class = s
				return ref, true
			}
		}
	}
	return ref, false
}

// Declaration is ResolveField without the result flag. Unresolved
// references denote themselves.
func (p *Program) Declaration(ref FieldRef) FieldRef {
	decl, _ := p.ResolveField(ref)
	return decl
}

// ResolveMethod finds the method declaration a reference denotes. Instance
// initializers are never inherited.
func (p *Program) ResolveMethod(ref MethodRef) (*Method, bool) {
	c, ok := p.Class(ref.Class)
	if !ok {
		return nil, false
	}
	if m, found := c.Method(ref.Name, ref.Descriptor); found {
		return m, true
	}
	if ref.Name == "<init>" {
		return nil, false
	}
	sups, _ := p.supertypesOf(ref.Class)
	for _, s := range sups {
		if sc, ok := p.Class(s); ok {
			if m, found := sc.Method(ref.Name, ref.Descriptor); found && !m.Flags.Has(AccPrivate) {
				return m, true
			}
		}
	}
	return nil, false
}

// objectMethods are the overridable methods of java/lang/Object.
var objectMethods = map[string]bool{
	"equals(Ljava/lang/Object;)Z":  true,
	"hashCode()I":                  true,
	"toString()Ljava/lang/String;": true,
	"clone()Ljava/lang/Object;":    true,
	"finalize()V":                  true,
}

// IsExactTarget reports whether an invocation resolving to m always runs m,
// i.e. m cannot be overridden.
func (p *Program) IsExactTarget(m *Method) bool {
	if m.IsStatic() || m.IsInitializer() || m.Flags.Has(AccPrivate) || m.Flags.Has(AccFinal) {
		return true
	}
	c, ok := p.Class(m.Class)
	return ok && c.IsFinal()
}

// IsOnlyTarget reports whether every invocation that runs m at run time
// also resolves to m. Inheritance through a subclass that implements an
// interface can make a method the target of an unrelated reference, so
// instance methods qualify only in final classes, and only when they
// override nothing.
func (p *Program) IsOnlyTarget(m *Method) bool {
	if m.IsStatic() || m.IsInitializer() || m.Flags.Has(AccPrivate) {
		return true
	}
	c, ok := p.Class(m.Class)
	if !ok || !c.IsFinal() || objectMethods[m.Name+m.Descriptor] {
		return false
	}
	sups, known := p.supertypesOf(m.Class)
	if !known {
		return false
	}
	for _, s := range sups {
		if sc, ok := p.Class(s); ok {
			if sm, found := sc.Method(m.Name, m.Descriptor); found && !sm.IsStatic() && !sm.Flags.Has(AccPrivate) {
				return false
			}
		}
	}
	return true
}

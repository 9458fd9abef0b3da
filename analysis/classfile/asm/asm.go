// Package asm reads a small textual assembly language for method bodies.
// It exists so that methods can be written by hand, in tests and on the
// command line, without a class-file reader.
//
//	.class final Point extends java/lang/Object
//	.field x I
//	.method static sum(II)I
//	    iload_0
//	    iload_1
//	    iadd
//	  L1:
//	    ireturn
//	.catch java/lang/Exception from L0 to L1 using L2
//	.end method
//	.end class
//
// A .method outside of a .class block belongs to the implicit class Main.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
)

// ImplicitClass names the class of methods declared outside a .class block.
const ImplicitClass = "Main"

var ErrSyntax = errors.New("syntax error")

type (
	// pendingInstruction holds an instruction whose branch targets are
	// still symbolic.
	pendingInstruction struct {
		ins     cf.Instruction
		target  string
		deflt   string
		targets []string
		line    int
	}

	pendingCatch struct {
		from, to, using string
		catchType       string
		line            int
	}

	methodBuilder struct {
		method   *cf.Method
		code     []pendingInstruction
		labels   map[string]int
		pending  []string
		catches  []pendingCatch
		offset   int
		maxLocal int
		stackSet bool
		localSet bool
	}

	parser struct {
		file    string
		line    int
		classes []*cf.Class
		byName  map[string]*cf.Class
		class   *cf.Class
		method  *methodBuilder
		lines   map[*cf.Method][]int
	}
)

// ParseFile assembles the classes in the given file.
func ParseFile(path string) (*cf.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(path, f)
}

// Parse assembles the classes in src.
func Parse(src string) (*cf.Program, error) {
	return parse("<input>", strings.NewReader(src))
}

// ParseMethod assembles src, which must declare exactly one method.
func ParseMethod(src string) (*cf.Method, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	ms := prog.Methods()
	if len(ms) != 1 {
		return nil, fmt.Errorf("%w: expected one method, found %d", ErrSyntax, len(ms))
	}
	return ms[0], nil
}

func parse(file string, r io.Reader) (*cf.Program, error) {
	l, err := ParseListing(file, r)
	if err != nil {
		return nil, err
	}
	return l.Program, nil
}

// Listing is an assembled program together with the source line of every
// instruction.
type Listing struct {
	Program *cf.Program
	// Lines maps every method to the lines of its instructions, in code
	// order.
	Lines map[*cf.Method][]int
}

// ParseListing assembles the classes read from r. The file name is only
// used in error messages.
func ParseListing(file string, r io.Reader) (*Listing, error) {
	p := &parser{file: file, byName: map[string]*cf.Class{}, lines: map[*cf.Method][]int{}}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.line++
		if err := p.parseLine(stripComment(sc.Text())); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if p.method != nil {
		return nil, p.errorf("unterminated method %s", p.method.method.Name)
	}
	prog, err := cf.NewProgram(p.classes...)
	if err != nil {
		return nil, err
	}
	return &Listing{prog, p.lines}, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%s:%d: %w: %s", p.file, p.line, ErrSyntax, fmt.Sprintf(format, args...))
}

// stripComment removes a comment, which starts with ; or # after
// whitespace. Semicolons in descriptors are kept.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && inString:
			i++
		case c == '"':
			inString = !inString
		case (c == ';' || c == '#') && !inString && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t'):
			return strings.TrimSpace(line[:i])
		}
	}
	return strings.TrimSpace(line)
}

func (p *parser) parseLine(line string) error {
	if line == "" {
		return nil
	}
	if p.method != nil {
		for {
			colon := strings.IndexByte(line, ':')
			if colon <= 0 || strings.ContainsAny(line[:colon], " \t\"") {
				break
			}
			p.method.pending = append(p.method.pending, line[:colon])
			line = strings.TrimSpace(line[colon+1:])
			if line == "" {
				return nil
			}
		}
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case ".class":
		return p.parseClass(fields[1:])
	case ".end":
		return p.parseEnd(fields[1:])
	case ".field":
		return p.parseField(fields[1:])
	case ".method":
		return p.parseMethod(fields[1:])
	case ".limit":
		return p.parseLimit(fields[1:])
	case ".catch":
		return p.parseCatch(fields[1:])
	}
	if p.method == nil {
		return p.errorf("instruction %q outside of a method", fields[0])
	}
	return p.parseInstruction(line)
}

func parseFlags(fields []string) (cf.AccessFlags, []string) {
	var flags cf.AccessFlags
	for len(fields) > 0 {
		switch fields[0] {
		case "public":
			flags |= cf.AccPublic
		case "private":
			flags |= cf.AccPrivate
		case "protected":
			flags |= cf.AccProtected
		case "static":
			flags |= cf.AccStatic
		case "final":
			flags |= cf.AccFinal
		case "synchronized":
			flags |= cf.AccSynchronized
		case "interface":
			flags |= cf.AccInterface
		case "abstract":
			flags |= cf.AccAbstract
		default:
			return flags, fields
		}
		fields = fields[1:]
	}
	return flags, fields
}

func (p *parser) parseClass(fields []string) error {
	if p.class != nil && p.class.Name != ImplicitClass {
		return p.errorf("nested .class")
	}
	flags, fields := parseFlags(fields)
	if len(fields) == 0 {
		return p.errorf(".class without a name")
	}
	c := &cf.Class{Name: fields[0], Flags: flags, Super: cf.NameObject}
	if c.Name == cf.NameObject {
		c.Super = ""
	}
	for rest := fields[1:]; len(rest) > 0; {
		switch {
		case rest[0] == "extends" && len(rest) > 1:
			c.Super = rest[1]
			rest = rest[2:]
		case rest[0] == "implements":
			c.Interfaces = append(c.Interfaces, rest[1:]...)
			rest = nil
		default:
			return p.errorf("unexpected %q in .class", rest[0])
		}
	}
	if _, dup := p.byName[c.Name]; dup {
		return p.errorf("duplicate class %s", c.Name)
	}
	p.byName[c.Name] = c
	p.classes = append(p.classes, c)
	p.class = c
	return nil
}

func (p *parser) currentClass() *cf.Class {
	if p.class == nil {
		if c, ok := p.byName[ImplicitClass]; ok {
			p.class = c
		} else {
			p.class = &cf.Class{Name: ImplicitClass, Super: cf.NameObject}
			p.byName[ImplicitClass] = p.class
			p.classes = append(p.classes, p.class)
		}
	}
	return p.class
}

func (p *parser) parseEnd(fields []string) error {
	if len(fields) != 1 {
		return p.errorf("malformed .end")
	}
	switch fields[0] {
	case "method":
		if p.method == nil {
			return p.errorf(".end method outside of a method")
		}
		m, err := p.method.finish()
		if err != nil {
			return p.errorf("%v", err)
		}
		for _, pi := range p.method.code {
			p.lines[m] = append(p.lines[m], pi.line)
		}
		c := p.currentClass()
		m.Class = c.Name
		c.Methods = append(c.Methods, m)
		p.method = nil
		if c.Name == ImplicitClass {
			p.class = nil
		}
	case "class":
		if p.class == nil || p.method != nil {
			return p.errorf("unexpected .end class")
		}
		p.class = nil
	default:
		return p.errorf("unknown .end %s", fields[0])
	}
	return nil
}

func (p *parser) parseField(fields []string) error {
	if p.method != nil {
		return p.errorf(".field inside a method")
	}
	flags, fields := parseFlags(fields)
	if len(fields) != 2 || !cf.ValidFieldType(fields[1]) {
		return p.errorf("malformed .field")
	}
	c := p.currentClass()
	c.Fields = append(c.Fields, &cf.Field{Name: fields[0], Descriptor: fields[1], Flags: flags})
	return nil
}

func (p *parser) parseMethod(fields []string) error {
	if p.method != nil {
		return p.errorf("nested .method")
	}
	flags, fields := parseFlags(fields)
	if len(fields) != 1 {
		return p.errorf("malformed .method")
	}
	paren := strings.IndexByte(fields[0], '(')
	if paren <= 0 {
		return p.errorf("malformed method signature %q", fields[0])
	}
	m := &cf.Method{Name: fields[0][:paren], Descriptor: fields[0][paren:], Flags: flags}
	size, err := cf.ParameterSize(m.Descriptor, m.IsStatic())
	if err != nil {
		return p.errorf("%v", err)
	}
	p.currentClass()
	p.method = &methodBuilder{method: m, labels: map[string]int{}, maxLocal: size}
	return nil
}

func (p *parser) parseLimit(fields []string) error {
	if p.method == nil || len(fields) != 2 {
		return p.errorf("malformed .limit")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return p.errorf("malformed .limit: %v", err)
	}
	switch fields[0] {
	case "stack":
		p.method.method.MaxStack, p.method.stackSet = n, true
	case "locals":
		p.method.method.MaxLocals, p.method.localSet = n, true
	default:
		return p.errorf("unknown .limit %s", fields[0])
	}
	return nil
}

// .catch <type|any> from <label> to <label> using <label>
func (p *parser) parseCatch(fields []string) error {
	if p.method == nil || len(fields) != 7 ||
		fields[1] != "from" || fields[3] != "to" || fields[5] != "using" {
		return p.errorf("malformed .catch")
	}
	catchType := fields[0]
	if catchType == "any" {
		catchType = ""
	}
	p.method.catches = append(p.method.catches, pendingCatch{
		fields[2], fields[4], fields[6], catchType, p.line,
	})
	return nil
}

func (b *methodBuilder) add(pi pendingInstruction) {
	for _, l := range b.pending {
		b.labels[l] = b.offset
	}
	b.code = append(b.code, pi)
	b.pending = nil
	b.offset = cf.Next(pi.ins)
}

func (b *methodBuilder) resolve(label string) (int, error) {
	if off, ok := b.labels[label]; ok {
		return off, nil
	}
	if off, err := strconv.Atoi(label); err == nil {
		return off, nil
	}
	return 0, fmt.Errorf("undefined label %q", label)
}

func (b *methodBuilder) resolveAll(deflt string, labels []string) (int, []int, error) {
	d, err := b.resolve(deflt)
	if err != nil {
		return 0, nil, err
	}
	targets := make([]int, len(labels))
	for i, l := range labels {
		if targets[i], err = b.resolve(l); err != nil {
			return 0, nil, err
		}
	}
	return d, targets, nil
}

func (b *methodBuilder) finish() (*cf.Method, error) {
	// Labels at the very end of the code mark the end offset.
	for _, l := range b.pending {
		b.labels[l] = b.offset
	}
	m := b.method
	m.Code = make([]cf.Instruction, 0, len(b.code))
	for _, pi := range b.code {
		var err error
		switch ins := pi.ins.(type) {
		case *cf.BranchInstruction:
			ins.Target, err = b.resolve(pi.target)
		case *cf.TableSwitchInstruction:
			ins.Default, ins.Targets, err = b.resolveAll(pi.deflt, pi.targets)
		case *cf.LookupSwitchInstruction:
			ins.Default, ins.Targets, err = b.resolveAll(pi.deflt, pi.targets)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", pi.line, err)
		}
		m.Code = append(m.Code, pi.ins)
	}
	for _, c := range b.catches {
		var h cf.ExceptionHandler
		var err error
		if h.Start, err = b.resolve(c.from); err == nil {
			if h.End, err = b.resolve(c.to); err == nil {
				h.Handler, err = b.resolve(c.using)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", c.line, err)
		}
		h.CatchType = c.catchType
		m.ExceptionTable = append(m.ExceptionTable, h)
	}
	if !b.localSet {
		m.MaxLocals = b.maxLocal
	}
	if !b.stackSet {
		// No instruction grows the stack by more than two slots.
		m.MaxStack = 2*len(m.Code) + 2
	}
	return m, nil
}

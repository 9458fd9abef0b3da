package asm

import (
	"math"
	"strconv"
	"strings"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
)

var arrayTypeCodes = map[string]int{
	"boolean": 4, "char": 5, "float": 6, "double": 7,
	"byte": 8, "short": 9, "int": 10, "long": 11,
}

func splitFirst(s string) (string, string) {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

func (p *parser) parseInstruction(line string) error {
	mnemonic, operand := splitFirst(line)
	op, ok := cf.Lookup(mnemonic)
	if !ok {
		return p.errorf("unknown instruction %q", mnemonic)
	}

	b := p.method
	at := b.offset
	pi := pendingInstruction{line: p.line}

	switch op.Kind() {
	case cf.KindSimple:
		c := 0
		switch op {
		case cf.BIPUSH, cf.SIPUSH:
			n, err := strconv.ParseInt(operand, 0, 32)
			if err != nil {
				return p.errorf("%s: %v", op, err)
			}
			if (op == cf.BIPUSH && (n < math.MinInt8 || n > math.MaxInt8)) ||
				(n < math.MinInt16 || n > math.MaxInt16) {
				return p.errorf("%s: operand %d out of range", op, n)
			}
			c = int(n)
		case cf.NEWARRAY:
			code, known := arrayTypeCodes[operand]
			if !known {
				n, err := strconv.Atoi(operand)
				if err != nil {
					return p.errorf("newarray: unknown element type %q", operand)
				}
				code = n
			}
			if _, err := cf.ArrayTypeOfCode(code); err != nil {
				return p.errorf("%v", err)
			}
			c = code
		default:
			if operand != "" {
				return p.errorf("%s takes no operand", op)
			}
		}
		pi.ins = cf.NewSimple(at, op, c)

	case cf.KindVariable:
		index, c := 0, 0
		if _, short := op.ImplicitIndex(); !short {
			args := strings.Fields(strings.ReplaceAll(operand, ",", " "))
			want := 1
			if op == cf.IINC {
				want = 2
			}
			if len(args) != want {
				return p.errorf("%s: expected %d operand(s)", op, want)
			}
			var err error
			if index, err = parseIndex(args[0]); err != nil {
				return p.errorf("%s: %v", op, err)
			}
			if op == cf.IINC {
				n, err := strconv.ParseInt(args[1], 0, 16)
				if err != nil {
					return p.errorf("iinc: %v", err)
				}
				c = int(n)
			}
		} else if operand != "" {
			return p.errorf("%s takes no operand", op)
		}
		vi := cf.NewVariable(at, op, index, c)
		width := 1
		switch op.Canonical() {
		case cf.LLOAD, cf.DLOAD, cf.LSTORE, cf.DSTORE:
			width = 2
		}
		if vi.Index+width > b.maxLocal {
			b.maxLocal = vi.Index + width
		}
		pi.ins = vi

	case cf.KindConstant:
		c, extra, err := parseConstantOperand(op, operand)
		if err != nil {
			return p.errorf("%s: %v", op, err)
		}
		pi.ins = cf.NewConstant(at, op, c, extra)

	case cf.KindBranch:
		if operand == "" || strings.ContainsAny(operand, " \t") {
			return p.errorf("%s: expected a single label", op)
		}
		pi.ins, pi.target = cf.NewBranch(at, op, 0), operand

	case cf.KindTableSwitch:
		args := strings.Fields(operand)
		if len(args) < 4 || args[len(args)-2] != "default" {
			return p.errorf("tableswitch: expected <low> <labels...> default <label>")
		}
		low, err := strconv.ParseInt(args[0], 0, 32)
		if err != nil {
			return p.errorf("tableswitch: %v", err)
		}
		pi.targets = args[1 : len(args)-2]
		pi.deflt = args[len(args)-1]
		high := int32(low) + int32(len(pi.targets)) - 1
		pi.ins = cf.NewTableSwitch(at, 0, int32(low), high, make([]int, len(pi.targets)))

	case cf.KindLookupSwitch:
		args := strings.Fields(operand)
		if len(args) < 2 || args[len(args)-2] != "default" {
			return p.errorf("lookupswitch: expected <key:label...> default <label>")
		}
		var keys []int32
		for _, arg := range args[:len(args)-2] {
			k, l, found := strings.Cut(arg, ":")
			if !found {
				return p.errorf("lookupswitch: malformed case %q", arg)
			}
			key, err := strconv.ParseInt(k, 0, 32)
			if err != nil {
				return p.errorf("lookupswitch: %v", err)
			}
			if len(keys) > 0 && int32(key) <= keys[len(keys)-1] {
				return p.errorf("lookupswitch: keys must be ascending")
			}
			keys = append(keys, int32(key))
			pi.targets = append(pi.targets, l)
		}
		pi.deflt = args[len(args)-1]
		pi.ins = cf.NewLookupSwitch(at, 0, keys, make([]int, len(keys)))

	default:
		return p.errorf("%s cannot be assembled", op)
	}

	b.add(pi)
	return nil
}

func parseIndex(s string) (int, error) {
	s = strings.TrimPrefix(s, "v")
	n, err := strconv.ParseUint(s, 0, 16)
	return int(n), err
}

// parseFieldRef accepts both "Class.name Desc" and "Class.name:Desc".
func parseFieldRef(operand string) (cf.FieldRef, error) {
	var member, desc string
	if args := strings.Fields(operand); len(args) == 2 {
		member, desc = args[0], args[1]
	} else if colon := strings.LastIndexByte(operand, ':'); len(args) == 1 && colon >= 0 {
		member, desc = operand[:colon], operand[colon+1:]
	} else {
		return cf.FieldRef{}, ErrSyntax
	}

	dot := strings.LastIndexByte(member, '.')
	if dot <= 0 || dot == len(member)-1 || !cf.ValidFieldType(desc) {
		return cf.FieldRef{}, ErrSyntax
	}
	return cf.FieldRef{
		Class:      member[:dot],
		Name:       member[dot+1:],
		Descriptor: desc,
	}, nil
}

func parseConstantOperand(op cf.Opcode, operand string) (cf.Constant, int, error) {
	switch op {
	case cf.LDC, cf.LDC_W, cf.LDC2_W:
		c, err := parseLiteral(operand)
		if err != nil {
			return nil, 0, err
		}
		_, long := c.(cf.LongConstant)
		_, double := c.(cf.DoubleConstant)
		if (op == cf.LDC2_W) != (long || double) {
			return nil, 0, ErrSyntax
		}
		return c, 0, nil

	case cf.GETSTATIC, cf.PUTSTATIC, cf.GETFIELD, cf.PUTFIELD:
		ref, err := parseFieldRef(operand)
		return ref, 0, err

	case cf.INVOKEVIRTUAL, cf.INVOKESPECIAL, cf.INVOKESTATIC, cf.INVOKEINTERFACE:
		paren := strings.IndexByte(operand, '(')
		dot := strings.LastIndexByte(operand[:max(paren, 0)], '.')
		if paren < 0 || dot <= 0 {
			return nil, 0, ErrSyntax
		}
		desc := operand[paren:]
		size, err := cf.ParameterSize(desc, false)
		if err != nil {
			return nil, 0, err
		}
		ref := cf.MethodRef{
			Class:      operand[:dot],
			Name:       operand[dot+1 : paren],
			Descriptor: desc,
			Interface:  op == cf.INVOKEINTERFACE,
		}
		if op == cf.INVOKEINTERFACE {
			return ref, size, nil
		}
		return ref, 0, nil

	case cf.INVOKEDYNAMIC:
		bootstrap := 0
		if strings.HasPrefix(operand, "#") {
			idx, rest, found := strings.Cut(operand[1:], ":")
			n, err := strconv.Atoi(idx)
			if !found || err != nil {
				return nil, 0, ErrSyntax
			}
			bootstrap, operand = n, rest
		}
		paren := strings.IndexByte(operand, '(')
		if paren <= 0 {
			return nil, 0, ErrSyntax
		}
		if _, _, err := cf.ParseMethodDescriptor(operand[paren:]); err != nil {
			return nil, 0, err
		}
		return cf.DynamicRef{Bootstrap: bootstrap, Name: operand[:paren], Descriptor: operand[paren:]}, 0, nil

	case cf.NEW, cf.ANEWARRAY, cf.CHECKCAST, cf.INSTANCEOF:
		if operand == "" || strings.ContainsAny(operand, " \t") {
			return nil, 0, ErrSyntax
		}
		return cf.ClassConstant(operand), 0, nil

	case cf.MULTIANEWARRAY:
		class, dims := splitFirst(operand)
		n, err := strconv.Atoi(dims)
		if err != nil || n < 1 || n > cf.ArrayDimensions(class) {
			return nil, 0, ErrSyntax
		}
		return cf.ClassConstant(class), n, nil
	}
	return nil, 0, ErrSyntax
}

func parseLiteral(s string) (cf.Constant, error) {
	switch {
	case strings.HasPrefix(s, "\""):
		str, err := strconv.Unquote(s)
		if err != nil {
			return nil, err
		}
		return cf.StringConstant(str), nil
	case strings.HasPrefix(s, "class "):
		return cf.ClassConstant(strings.TrimSpace(s[len("class "):])), nil
	case strings.HasPrefix(s, "methodtype "):
		desc := strings.TrimSpace(s[len("methodtype "):])
		if _, _, err := cf.ParseMethodDescriptor(desc); err != nil {
			return nil, err
		}
		return cf.MethodTypeConstant(desc), nil
	case strings.HasSuffix(s, "L"):
		n, err := strconv.ParseInt(s[:len(s)-1], 0, 64)
		return cf.LongConstant(n), err
	case strings.HasPrefix(strings.TrimPrefix(s, "-"), "0x"):
		n, err := strconv.ParseInt(s, 0, 32)
		return cf.IntegerConstant(n), err
	case strings.HasSuffix(s, "f") || strings.HasSuffix(s, "F"):
		f, err := strconv.ParseFloat(s[:len(s)-1], 32)
		return cf.FloatConstant(f), err
	case strings.HasSuffix(s, "d") || strings.HasSuffix(s, "D"):
		f, err := strconv.ParseFloat(s[:len(s)-1], 64)
		return cf.DoubleConstant(f), err
	}
	if n, err := strconv.ParseInt(s, 0, 32); err == nil {
		return cf.IntegerConstant(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	return cf.DoubleConstant(f), err
}

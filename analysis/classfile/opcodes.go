package classfile

import "fmt"

// Opcode is a single byte instruction code of the virtual machine.
type Opcode byte

const (
	NOP Opcode = iota
	ACONST_NULL
	ICONST_M1
	ICONST_0
	ICONST_1
	ICONST_2
	ICONST_3
	ICONST_4
	ICONST_5
	LCONST_0
	LCONST_1
	FCONST_0
	FCONST_1
	FCONST_2
	DCONST_0
	DCONST_1
	BIPUSH
	SIPUSH
	LDC
	LDC_W
	LDC2_W
	ILOAD
	LLOAD
	FLOAD
	DLOAD
	ALOAD
	ILOAD_0
	ILOAD_1
	ILOAD_2
	ILOAD_3
	LLOAD_0
	LLOAD_1
	LLOAD_2
	LLOAD_3
	FLOAD_0
	FLOAD_1
	FLOAD_2
	FLOAD_3
	DLOAD_0
	DLOAD_1
	DLOAD_2
	DLOAD_3
	ALOAD_0
	ALOAD_1
	ALOAD_2
	ALOAD_3
	IALOAD
	LALOAD
	FALOAD
	DALOAD
	AALOAD
	BALOAD
	CALOAD
	SALOAD
	ISTORE
	LSTORE
	FSTORE
	DSTORE
	ASTORE
	ISTORE_0
	ISTORE_1
	ISTORE_2
	ISTORE_3
	LSTORE_0
	LSTORE_1
	LSTORE_2
	LSTORE_3
	FSTORE_0
	FSTORE_1
	FSTORE_2
	FSTORE_3
	DSTORE_0
	DSTORE_1
	DSTORE_2
	DSTORE_3
	ASTORE_0
	ASTORE_1
	ASTORE_2
	ASTORE_3
	IASTORE
	LASTORE
	FASTORE
	DASTORE
	AASTORE
	BASTORE
	CASTORE
	SASTORE
	POP
	POP2
	DUP
	DUP_X1
	DUP_X2
	DUP2
	DUP2_X1
	DUP2_X2
	SWAP
	IADD
	LADD
	FADD
	DADD
	ISUB
	LSUB
	FSUB
	DSUB
	IMUL
	LMUL
	FMUL
	DMUL
	IDIV
	LDIV
	FDIV
	DDIV
	IREM
	LREM
	FREM
	DREM
	INEG
	LNEG
	FNEG
	DNEG
	ISHL
	LSHL
	ISHR
	LSHR
	IUSHR
	LUSHR
	IAND
	LAND
	IOR
	LOR
	IXOR
	LXOR
	IINC
	I2L
	I2F
	I2D
	L2I
	L2F
	L2D
	F2I
	F2L
	F2D
	D2I
	D2L
	D2F
	I2B
	I2C
	I2S
	LCMP
	FCMPL
	FCMPG
	DCMPL
	DCMPG
	IFEQ
	IFNE
	IFLT
	IFGE
	IFGT
	IFLE
	IF_ICMPEQ
	IF_ICMPNE
	IF_ICMPLT
	IF_ICMPGE
	IF_ICMPGT
	IF_ICMPLE
	IF_ACMPEQ
	IF_ACMPNE
	GOTO
	JSR
	RET
	TABLESWITCH
	LOOKUPSWITCH
	IRETURN
	LRETURN
	FRETURN
	DRETURN
	ARETURN
	RETURN
	GETSTATIC
	PUTSTATIC
	GETFIELD
	PUTFIELD
	INVOKEVIRTUAL
	INVOKESPECIAL
	INVOKESTATIC
	INVOKEINTERFACE
	INVOKEDYNAMIC
	NEW
	NEWARRAY
	ANEWARRAY
	ARRAYLENGTH
	ATHROW
	CHECKCAST
	INSTANCEOF
	MONITORENTER
	MONITOREXIT
	WIDE
	MULTIANEWARRAY
	IFNULL
	IFNONNULL
	GOTO_W
	JSR_W
	BREAKPOINT
)

const (
	IMPDEP1 Opcode = 0xfe
	IMPDEP2 Opcode = 0xff
)

// Kind is the instruction category an opcode is decoded into.
type Kind uint8

const (
	KindReserved Kind = iota
	KindSimple
	KindVariable
	KindConstant
	KindBranch
	KindTableSwitch
	KindLookupSwitch
	// KindWide marks the wide prefix, which never appears as an instruction
	// of its own in a decoded stream.
	KindWide
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindVariable:
		return "variable"
	case KindConstant:
		return "constant"
	case KindBranch:
		return "branch"
	case KindTableSwitch:
		return "tableswitch"
	case KindLookupSwitch:
		return "lookupswitch"
	case KindWide:
		return "wide"
	default:
		return "reserved"
	}
}

type opcodeInfo struct {
	name   string
	kind   Kind
	length int
}

var opcodes [256]opcodeInfo

func def(op Opcode, name string, kind Kind, length int) {
	opcodes[op] = opcodeInfo{name, kind, length}
}

func init() {
	simple := func(name string, ops ...Opcode) {
		for _, op := range ops {
			def(op, name, KindSimple, 1)
		}
	}

	def(NOP, "nop", KindSimple, 1)
	def(ACONST_NULL, "aconst_null", KindSimple, 1)
	for i, n := range []string{"iconst_m1", "iconst_0", "iconst_1", "iconst_2", "iconst_3", "iconst_4", "iconst_5"} {
		def(ICONST_M1+Opcode(i), n, KindSimple, 1)
	}
	def(LCONST_0, "lconst_0", KindSimple, 1)
	def(LCONST_1, "lconst_1", KindSimple, 1)
	def(FCONST_0, "fconst_0", KindSimple, 1)
	def(FCONST_1, "fconst_1", KindSimple, 1)
	def(FCONST_2, "fconst_2", KindSimple, 1)
	def(DCONST_0, "dconst_0", KindSimple, 1)
	def(DCONST_1, "dconst_1", KindSimple, 1)
	def(BIPUSH, "bipush", KindSimple, 2)
	def(SIPUSH, "sipush", KindSimple, 3)
	def(LDC, "ldc", KindConstant, 2)
	def(LDC_W, "ldc_w", KindConstant, 3)
	def(LDC2_W, "ldc2_w", KindConstant, 3)

	prefixes := []string{"i", "l", "f", "d", "a"}
	for i, p := range prefixes {
		def(ILOAD+Opcode(i), p+"load", KindVariable, 2)
		def(ISTORE+Opcode(i), p+"store", KindVariable, 2)
		for n := 0; n < 4; n++ {
			def(ILOAD_0+Opcode(4*i+n), fmt.Sprintf("%sload_%d", p, n), KindVariable, 1)
			def(ISTORE_0+Opcode(4*i+n), fmt.Sprintf("%sstore_%d", p, n), KindVariable, 1)
		}
	}
	for i, p := range []string{"i", "l", "f", "d", "a", "b", "c", "s"} {
		def(IALOAD+Opcode(i), p+"aload", KindSimple, 1)
		def(IASTORE+Opcode(i), p+"astore", KindSimple, 1)
	}

	simple("pop", POP)
	simple("pop2", POP2)
	simple("dup", DUP)
	simple("dup_x1", DUP_X1)
	simple("dup_x2", DUP_X2)
	simple("dup2", DUP2)
	simple("dup2_x1", DUP2_X1)
	simple("dup2_x2", DUP2_X2)
	simple("swap", SWAP)

	arith := []string{"add", "sub", "mul", "div", "rem", "neg"}
	for i, a := range arith {
		for j, p := range prefixes[:4] {
			def(IADD+Opcode(4*i+j), p+a, KindSimple, 1)
		}
	}
	for i, a := range []string{"shl", "shr", "ushr", "and", "or", "xor"} {
		for j, p := range prefixes[:2] {
			def(ISHL+Opcode(2*i+j), p+a, KindSimple, 1)
		}
	}
	def(IINC, "iinc", KindVariable, 3)
	for i, c := range []string{"i2l", "i2f", "i2d", "l2i", "l2f", "l2d", "f2i", "f2l", "f2d", "d2i", "d2l", "d2f", "i2b", "i2c", "i2s"} {
		def(I2L+Opcode(i), c, KindSimple, 1)
	}
	for i, c := range []string{"lcmp", "fcmpl", "fcmpg", "dcmpl", "dcmpg"} {
		def(LCMP+Opcode(i), c, KindSimple, 1)
	}
	for i, b := range []string{"ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle",
		"if_icmpeq", "if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt", "if_icmple",
		"if_acmpeq", "if_acmpne", "goto", "jsr"} {
		def(IFEQ+Opcode(i), b, KindBranch, 3)
	}
	def(RET, "ret", KindVariable, 2)
	def(TABLESWITCH, "tableswitch", KindTableSwitch, 0)
	def(LOOKUPSWITCH, "lookupswitch", KindLookupSwitch, 0)
	for i, r := range []string{"ireturn", "lreturn", "freturn", "dreturn", "areturn", "return"} {
		def(IRETURN+Opcode(i), r, KindSimple, 1)
	}
	for i, m := range []string{"getstatic", "putstatic", "getfield", "putfield", "invokevirtual", "invokespecial", "invokestatic"} {
		def(GETSTATIC+Opcode(i), m, KindConstant, 3)
	}
	def(INVOKEINTERFACE, "invokeinterface", KindConstant, 5)
	def(INVOKEDYNAMIC, "invokedynamic", KindConstant, 5)
	def(NEW, "new", KindConstant, 3)
	def(NEWARRAY, "newarray", KindSimple, 2)
	def(ANEWARRAY, "anewarray", KindConstant, 3)
	simple("arraylength", ARRAYLENGTH)
	simple("athrow", ATHROW)
	def(CHECKCAST, "checkcast", KindConstant, 3)
	def(INSTANCEOF, "instanceof", KindConstant, 3)
	simple("monitorenter", MONITORENTER)
	simple("monitorexit", MONITOREXIT)
	def(WIDE, "wide", KindWide, 1)
	def(MULTIANEWARRAY, "multianewarray", KindConstant, 4)
	def(IFNULL, "ifnull", KindBranch, 3)
	def(IFNONNULL, "ifnonnull", KindBranch, 3)
	def(GOTO_W, "goto_w", KindBranch, 5)
	def(JSR_W, "jsr_w", KindBranch, 5)
	def(BREAKPOINT, "breakpoint", KindReserved, 1)
	def(IMPDEP1, "impdep1", KindReserved, 1)
	def(IMPDEP2, "impdep2", KindReserved, 1)
}

// Name returns the mnemonic of the opcode.
func (op Opcode) Name() string {
	if n := opcodes[op].name; n != "" {
		return n
	}
	return fmt.Sprintf("<0x%02x>", byte(op))
}

func (op Opcode) String() string {
	return op.Name()
}

// Kind returns the instruction category of the opcode.
func (op Opcode) Kind() Kind {
	return opcodes[op].kind
}

// Defined reports whether the opcode has a mnemonic in the instruction set.
func (op Opcode) Defined() bool {
	return opcodes[op].name != ""
}

// Lookup returns the opcode with the given mnemonic.
func Lookup(name string) (Opcode, bool) {
	for i, info := range opcodes {
		if info.name == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

// Canonical maps the short forms of local variable instructions
// (e. g. iload_2) to their long form (iload).
func (op Opcode) Canonical() Opcode {
	switch {
	case ILOAD_0 <= op && op <= ALOAD_3:
		return ILOAD + (op-ILOAD_0)/4
	case ISTORE_0 <= op && op <= ASTORE_3:
		return ISTORE + (op-ISTORE_0)/4
	case op == GOTO_W:
		return GOTO
	case op == JSR_W:
		return JSR
	case op == LDC_W:
		return LDC
	}
	return op
}

// ImplicitIndex returns the local variable index encoded in short-form
// load and store opcodes.
func (op Opcode) ImplicitIndex() (int, bool) {
	switch {
	case ILOAD_0 <= op && op <= ALOAD_3:
		return int(op-ILOAD_0) % 4, true
	case ISTORE_0 <= op && op <= ASTORE_3:
		return int(op-ISTORE_0) % 4, true
	}
	return 0, false
}

// IsReturn reports whether the opcode returns from the method.
func (op Opcode) IsReturn() bool {
	return IRETURN <= op && op <= RETURN
}

// IsConditionalBranch reports whether the opcode is an if* branch.
func (op Opcode) IsConditionalBranch() bool {
	return (IFEQ <= op && op <= IF_ACMPNE) || op == IFNULL || op == IFNONNULL
}

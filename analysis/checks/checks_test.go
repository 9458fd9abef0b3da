package checks

import (
	"testing"

	"github.com/cs-au-dk/jpeval/analysis/evaluator"
	"github.com/cs-au-dk/jpeval/analysis/value"
	"github.com/cs-au-dk/jpeval/testutil"
	"github.com/cs-au-dk/jpeval/utils"
)

func evaluate(t *testing.T, src string, config evaluator.Config) *evaluator.Evaluator {
	t.Helper()
	utils.Opts().SetNoColorize(true)
	prog := testutil.Assemble(t, src)
	e := evaluator.New(prog, config)
	if err := e.Evaluate(prog.Methods()[0]); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestCertainDivisionByZero(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		offset   int
		expected bool
	}{
		{"int", `
.method static f()I
    iconst_3
    iconst_0
    idiv
    ireturn
.end method`, 2, true},
		{"remainder", `
.method static f()I
    iconst_3
    iconst_0
    irem
    ireturn
.end method`, 2, true},
		{"long", `
.method static f()J
    ldc2_w 3L
    lconst_0
    ldiv
    lreturn
.end method`, 4, true},
		{"unknown", `
.method static f(I)I
    iconst_1
    iload_0
    idiv
    ireturn
.end method`, 2, false},
		{"nonzero", `
.method static f()I
    iconst_4
    iconst_2
    idiv
    ireturn
.end method`, 2, false},
		{"float", `
.method static f()F
    fconst_1
    fconst_0
    fdiv
    freturn
.end method`, 2, false},
	}

	for _, test := range tests {
		e := evaluate(t, test.src, evaluator.DefaultConfig())
		if res := CertainDivisionByZero(e, test.offset); res != test.expected {
			t.Errorf("%s: expected %v, found %v", test.name, test.expected, res)
		}
		if RewriteCertainFailure(e, test.offset) != test.expected {
			t.Errorf("%s: expected the rewrite to be allowed only for certain failures", test.name)
		}
	}
}

func TestDivisionResultIsGeneric(t *testing.T) {
	e := evaluate(t, `
.method static f()I
    iconst_3
    iconst_0
    idiv
    ireturn
.end method`, evaluator.DefaultConfig())
	if res := e.StackAfter(2).Top(0); value.IsParticular(res) {
		t.Errorf("Expected a generic quotient, found %s", res)
	}
	if n := e.Stats().DivisionFailures; n != 1 {
		t.Errorf("Expected one division failure, found %d", n)
	}
}

func TestCertainNullDereference(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		offset   int
		expected bool
	}{
		{"arraylength", `
.method static f()I
    aconst_null
    arraylength
    ireturn
.end method`, 1, true},
		{"getfield", `
.class A extends java/lang/Object
.field f I
.method static f()I
    aconst_null
    getfield A.f I
    ireturn
.end method
.end class`, 1, true},
		{"putfield", `
.class A extends java/lang/Object
.field f J
.method static f()V
    aconst_null
    lconst_1
    putfield A.f J
    return
.end method
.end class`, 2, true},
		{"invoke", `
.class A extends java/lang/Object
.method static f()V
    aconst_null
    iconst_1
    invokevirtual A.m(I)V
    return
.end method
.end class`, 2, true},
		{"iastore", `
.method static f()V
    aconst_null
    iconst_0
    iconst_1
    iastore
    return
.end method`, 3, true},
		{"parameter", `
.method static f([I)I
    aload_0
    arraylength
    ireturn
.end method`, 1, false},
		{"new", `
.method static f()I
    iconst_2
    newarray int
    arraylength
    ireturn
.end method`, 3, false},
	}

	for _, test := range tests {
		e := evaluate(t, test.src, evaluator.DefaultConfig())
		if res := CertainNullDereference(e, test.offset); res != test.expected {
			t.Errorf("%s: expected %v, found %v", test.name, test.expected, res)
		}
	}
}

func TestConservative(t *testing.T) {
	src := `
.method static f()I
    aconst_null
    arraylength
    ireturn
.end method`

	config := evaluator.DefaultConfig()
	config.Conservative = true
	e := evaluate(t, src, config)
	if !CertainNullDereference(e, 1) {
		t.Errorf("Expected the failure to be detected in conservative mode")
	}
	if RewriteCertainFailure(e, 1) {
		t.Errorf("Expected conservative mode to keep the failing instruction")
	}

	findings := Analyze(e)
	if len(findings) != 1 || findings[0].Kind != NullDereference || findings[0].Rewrite {
		t.Errorf("Unexpected findings %v", findings)
	}
}

func TestConstantAt(t *testing.T) {
	e := evaluate(t, `
.method static f()I
    iconst_3
    iconst_4
    iadd
    dup
    pop
    ireturn
.end method`, evaluator.DefaultConfig())

	if v, ok := ConstantAt(e, 2); !ok || v.String() != "int:7" {
		t.Errorf("Expected iadd to produce int:7, found %v", v)
	}
	for _, offset := range []int{0, 1, 3, 4, 5} {
		if v, ok := ConstantAt(e, offset); ok {
			t.Errorf("Expected no folded constant at %d, found %s", offset, v)
		}
	}

	plain := evaluator.DefaultConfig()
	plain.Values = evaluator.ValuesGeneric
	if _, ok := ConstantAt(evaluate(t, `
.method static f()I
    iconst_3
    iconst_4
    iadd
    ireturn
.end method`, plain), 2); ok {
		t.Errorf("Expected generic values to fold nothing")
	}
}

func TestAnalyze(t *testing.T) {
	e := evaluate(t, `
.method static f()I
    iconst_0
    ifeq L1
    iconst_1
    ireturn
  L1:
    iconst_0
    ireturn
.end method`, evaluator.DefaultConfig())

	if d := DecidedBranches(e); len(d) != 1 || d[0] != 1 {
		t.Errorf("Expected a decided branch at 1, found %v", d)
	}
	if u := UnreachableCode(e); len(u) != 2 || u[0] != 4 || u[1] != 5 {
		t.Errorf("Expected 4 and 5 to be unreachable, found %v", u)
	}

	expected := []string{
		"1: decided branch to {6}",
		"4: unreachable",
		"5: unreachable",
	}
	findings := Analyze(e)
	if len(findings) != len(expected) {
		t.Fatalf("Expected %d findings, found %v", len(expected), findings)
	}
	for i, f := range findings {
		if f.String() != expected[i] {
			t.Errorf("Expected %q, found %q", expected[i], f)
		}
	}
}

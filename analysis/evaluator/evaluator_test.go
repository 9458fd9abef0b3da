package evaluator

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/frame"
	"github.com/cs-au-dk/jpeval/analysis/invocation"
	"github.com/cs-au-dk/jpeval/analysis/value"
	"github.com/cs-au-dk/jpeval/testutil"
	"github.com/cs-au-dk/jpeval/utils"
)

func TestAnnotations(t *testing.T) {
	for _, path := range testutil.ListTests(t, "testdata") {
		path := path
		t.Run(testutil.TestName(path), func(t *testing.T) {
			mgr := testutil.LoadFile(t, path)
			e := New(mgr.Program(), DefaultConfig())
			for _, m := range mgr.Methods() {
				err := e.Evaluate(m)
				anns := mgr.AnnotationsOf(m)
				if len(anns) == 0 && err != nil {
					t.Errorf("%s: unexpected error: %v", m, err)
				}
				anns.ForEach(func(a testutil.Annotation) {
					if err := a.Check(e, err); err != nil {
						if a.FalseNegative() {
							t.Logf("Known imprecision: %v", err)
						} else {
							t.Error(err)
						}
					}
				})
			}
		})
	}
}

func TestDump(t *testing.T) {
	utils.Opts().SetNoColorize(true)
	prog := testutil.Assemble(t, `
.method static branch(I)I
    iload_0
    ifeq L1
    iconst_1
    ireturn
  L1:
    iconst_0
    ireturn
.end method

.method static dead()V
    goto L1
    nop
  L1:
    return
.end method`)

	e := New(prog, DefaultConfig())
	out := &bytes.Buffer{}
	for _, m := range prog.Methods() {
		if err := e.Evaluate(m); err != nil {
			t.Fatal(err)
		}
		if err := e.Dump(out); err != nil {
			t.Fatal(err)
		}
	}
	goldie.New(t).Assert(t, t.Name(), out.Bytes())
}

const loopSource = `
.class final Loop extends java/lang/Object
.field static count I
.method static loop(I)I
.limit locals 3
    iconst_0
    istore_1
    new Loop
    astore_2
  L0:
    iload_1
    iload_0
    if_icmpge L1
    iinc 1 1
    aload_2
    invokevirtual Loop.step()V
    goto L0
  L1:
    iload_1
    putstatic Loop.count I
    iload_1
    ireturn
.end method
.end class`

// Every re-simulation of an instruction starts from a before-state that
// includes the previous one, producers included.
func TestMonotonicity(t *testing.T) {
	prog := testutil.Assemble(t, loopSource+`
.class Sum extends java/lang/Object
.method static sum(I)I
    iconst_0
  L0:
    iload_0
    ifeq L1
    iinc 0 -1
    iconst_1
    iadd
    goto L0
  L1:
    ireturn
.end method
.end class`)

	for _, m := range prog.Methods() {
		e := New(prog, DefaultConfig())
		if err := e.begin(m); err != nil {
			t.Fatal(err)
		}

		type visit struct {
			vars  *frame.TracedVariables
			stack *frame.TracedStack
		}
		last := map[int]visit{}
		revisits := 0
		for !e.worklist.IsEmpty() {
			offset := e.worklist.GetNext()
			st := e.states[offset]
			cur := visit{st.varsBefore.Copy(), st.stackBefore.Copy()}

			if prev, seen := last[offset]; seen {
				revisits++
				if cur.vars.Copy().Generalize(prev.vars, false) || cur.stack.Copy().Generalize(prev.stack) {
					t.Errorf("%s: the state before %d lost information", m, offset)
				}
				for i := 0; i < prev.vars.Size(); i++ {
					if !cur.vars.StoredProducerValue(i).ContainsAll(prev.vars.StoredProducerValue(i)) {
						t.Errorf("%s: producers of v%d before %d shrank from %s to %s", m, i, offset,
							prev.vars.StoredProducerValue(i), cur.vars.StoredProducerValue(i))
					}
				}
				if prev.stack.Size() != cur.stack.Size() {
					t.Fatalf("%s: stack size before %d changed", m, offset)
				}
				for i := 0; i < prev.stack.Size(); i++ {
					if !cur.stack.TopProducerValue(i).ContainsAll(prev.stack.TopProducerValue(i)) {
						t.Errorf("%s: producers of stack slot %d before %d shrank from %s to %s", m, i, offset,
							prev.stack.TopProducerValue(i), cur.stack.TopProducerValue(i))
					}
				}
			}
			last[offset] = cur

			if err := e.simulate(offset); err != nil {
				t.Fatal(err)
			}
		}
		if revisits == 0 {
			t.Errorf("%s: expected some instruction to be simulated again", m)
		}
	}
}

func TestDeterminism(t *testing.T) {
	prog := testutil.Assemble(t, loopSource)
	m := prog.Methods()[0]

	for _, values := range []string{ValuesGeneric, ValuesParticular, ValuesIdentified} {
		config := DefaultConfig()
		config.Values = values
		config.TraceReferences = true

		var snapshots [][]byte
		for i := 0; i < 2; i++ {
			e := New(prog, config)
			if err := e.Evaluate(m); err != nil {
				t.Fatal(err)
			}
			snap, err := e.Snapshot()
			if err != nil {
				t.Fatal(err)
			}
			snapshots = append(snapshots, snap)
		}

		// Reusing an evaluator gives the same result as a fresh one.
		e := New(prog, config)
		e.Evaluate(m)
		e.Evaluate(m)
		snap, _ := e.Snapshot()
		snapshots = append(snapshots, snap)

		for i := 1; i < len(snapshots); i++ {
			if !bytes.Equal(snapshots[0], snapshots[i]) {
				t.Errorf("%s: snapshot %d differs from the first", values, i)
			}
		}
	}
}

// At the fixed point, merging the after-state of an instruction into the
// before-states of its successors changes nothing.
func TestFixedPoint(t *testing.T) {
	prog := testutil.Assemble(t, loopSource)
	m := prog.Methods()[0]
	e := New(prog, DefaultConfig())
	if err := e.Evaluate(m); err != nil {
		t.Fatal(err)
	}

	loopHead := 6
	if !e.IsBranchOrExceptionTarget(loopHead) {
		t.Fatalf("Expected a branch target at %d", loopHead)
	}
	if n := e.Simulations(loopHead); n < 2 {
		t.Errorf("Expected the loop head to be simulated repeatedly, found %d", n)
	}
	counter := e.VariablesBefore(loopHead).Get(1)
	if value.IsParticular(counter) {
		t.Errorf("Expected the loop counter to be generalized, found %s", counter)
	}
	if p := e.VariablesBefore(loopHead).StoredProducerValue(1); !p.Contains(1) || !p.Contains(11) {
		t.Errorf("Expected the loop counter to be produced by 1 and 11, found %s", p)
	}

	for _, offset := range e.TracedOffsets() {
		for _, succ := range e.Successors(offset).Offsets() {
			vars := e.VariablesBefore(succ).Copy()
			if vars.Generalize(e.VariablesAfter(offset), false) {
				t.Errorf("Expected the variables at %d to include those after %d", succ, offset)
			}
			stack := e.StackBefore(succ).Copy()
			if stack.Generalize(e.StackAfter(offset)) {
				t.Errorf("Expected the stack at %d to include the one after %d", succ, offset)
			}
		}
	}
	if stats := e.Stats(); stats.Generalizations == 0 || stats.Traced != len(e.TracedOffsets()) {
		t.Errorf("Unexpected statistics %+v", stats)
	}
}

func TestTraceReferences(t *testing.T) {
	prog := testutil.Assemble(t, `
.class A extends java/lang/Object
.field f LA;
.method make(LA;)LA;
    new A
    dup
    aload_1
    getfield A.f LA;
    pop
    aload_0
    invokevirtual A.copy()LA;
    areturn
.end method
.end class`)
	m := prog.Methods()[0]

	config := DefaultConfig()
	config.TraceReferences = true
	e := New(prog, config)
	if err := e.Evaluate(m); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		offset   int
		expected value.Origin
	}{
		{0, value.Origin{Offset: 0, Kind: value.OriginNewInstance}},
		{4, value.Origin{Offset: 1, Kind: value.OriginParameter}},
		{5, value.Origin{Offset: 5, Kind: value.OriginField}},
		{9, value.Origin{Offset: 0, Kind: value.OriginParameter}},
		{10, value.Origin{Offset: 10, Kind: value.OriginReturn}},
	}
	for _, test := range tests {
		top := e.StackAfter(test.offset).Top(0)
		if !value.TraceOf(top).ContainsOrigin(test.expected) {
			t.Errorf("Expected the value after %d to be traced to %s, found %s", test.offset, test.expected, top)
		}
	}
}

func TestEvaluateAllCode(t *testing.T) {
	m := testutil.AssembleMethod(t, `
.method static unreached()V
.limit locals 1
    return
  L0:
    nop
  L1:
    astore_0
    return
.catch java/lang/Exception from L0 to L1 using L1
.end method`)

	e := New(nil, DefaultConfig())
	if err := e.Evaluate(m); err != nil {
		t.Fatal(err)
	}
	if e.IsTraced(2) || e.IsExceptionHandler(2) {
		t.Errorf("Expected the handler to be unreachable")
	}

	config := DefaultConfig()
	config.EvaluateAllCode = true
	e = New(nil, config)
	if err := e.Evaluate(m); err != nil {
		t.Fatal(err)
	}
	if !e.IsExceptionHandler(2) || !e.IsTraced(3) {
		t.Errorf("Expected the handler to be evaluated")
	}
	if e.IsTraced(1) {
		t.Errorf("Expected the try range to stay unreachable")
	}
	exc := value.AsReference(e.StackBefore(2).Top(0))
	if exc.Type() != "Ljava/lang/Exception;" || exc.IsNull() != value.Never {
		t.Errorf("Expected a non-null exception, found %s", exc)
	}
	if p := e.StackBefore(2).TopProducerValue(0); !p.ContainsKind(value.OriginExceptionHandler) {
		t.Errorf("Expected the exception to be produced by the handler, found %s", p)
	}
}

func TestSubroutineFacts(t *testing.T) {
	m := testutil.AssembleMethod(t, `
.method static finally()V
.limit locals 2
    jsr L1
    jsr L1
    return
  L1:
    astore_1
    ret 1
.end method`)

	e := New(nil, DefaultConfig())
	if err := e.Evaluate(m); err != nil {
		t.Fatal(err)
	}
	if !e.IsSubroutineInvocation(0) || !e.IsSubroutineInvocation(3) || e.IsSubroutineInvocation(6) {
		t.Errorf("Expected jsr instructions at 0 and 3")
	}
	if n := e.SubroutineCallCount(7); n != 2 {
		t.Errorf("Expected two calls of the subroutine, found %d", n)
	}
	if !e.IsSubroutineReturning(7) || !e.SubroutineReturns(7).Contains(8) {
		t.Errorf("Expected the subroutine to return at 8")
	}
	if e.IsSubroutine(6) || !e.IsSubroutine(8) {
		t.Errorf("Expected only 7 and 8 to belong to the subroutine")
	}
	if e.SubroutineEnd(3) != 3 {
		t.Errorf("Expected offsets without subroutines to end at themselves")
	}
	if addresses := e.VariablesAfter(7).Get(1); !addresses.Equal(value.NewOffsets(3, 6)) {
		t.Errorf("Expected the return addresses {3,6}, found %s", addresses)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src    string
		offset int
		err    error
	}{
		{`
.method static underflow()V
    iconst_1
    pop2
    return
.end method`, 1, frame.ErrStackUnderflow},
		{`
.method static mismatch()V
    iconst_1
    lneg
    return
.end method`, 1, frame.ErrTypeMismatch},
		{`
.method static fallOff()V
    nop
.end method`, 0, ErrFallOff},
		{`
.method static uninitialized()V
.limit locals 1
    aload_0
    athrow
.end method`, 0, frame.ErrUninitialized},
	}

	e := New(nil, DefaultConfig())
	for _, test := range tests {
		prog := testutil.Assemble(t, test.src)
		m := prog.Methods()[0]
		err := e.Evaluate(m)

		var eerr *Error
		switch {
		case !errors.As(err, &eerr):
			t.Errorf("%s: expected an *Error, found %v", m, err)
		case eerr.Offset != test.offset || eerr.Method != m:
			t.Errorf("%s: expected the error at %d, found %v", m, test.offset, err)
		case !errors.Is(err, test.err):
			t.Errorf("%s: expected %v, found %v", m, test.err, err)
		}
	}

	malformed := &cf.Method{Class: "A", Name: "m", Descriptor: "()V", Flags: cf.AccStatic}
	err := e.Evaluate(malformed)
	var eerr *Error
	if !errors.As(err, &eerr) || eerr.Offset != -1 || !errors.Is(err, cf.ErrMalformedCode) {
		t.Errorf("Expected a malformed code error, found %v", err)
	}
}

func TestRecordAndLoad(t *testing.T) {
	prog := testutil.Assemble(t, `
.class A extends java/lang/Object
.field static f I
.method static store()V
    iconst_5
    putstatic A.f I
    return
.end method
.method static load()I
    getstatic A.f I
    iconst_1
    iadd
    ireturn
.end method
.end class`)
	a, _ := prog.Class("A")
	storeM, _ := a.Method("store", "()V")
	loadM, _ := a.Method("load", "()I")

	config := DefaultConfig()
	config.Invocation = InvocationStoring
	recorder := New(prog, config)
	if err := recorder.Evaluate(storeM); err != nil {
		t.Fatal(err)
	}
	recordings := recorder.Recordings()
	if recordings == nil || recordings.Len() != 1 {
		t.Fatalf("Expected one recording, found %v", recordings)
	}

	path := filepath.Join(t.TempDir(), "recordings.cbor")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := recordings.Save(f); err != nil {
		t.Fatal(err)
	}
	f.Close()
	loaded, err := invocation.ReadRecordings(path, prog)
	if err != nil {
		t.Fatal(err)
	}

	config = DefaultConfig()
	config.Invocation = InvocationLoading
	config.Recordings = loaded
	e := New(prog, config)
	if err := e.Evaluate(loadM); err != nil {
		t.Fatal(err)
	}
	if top := e.StackAfter(4).Top(0); !top.Equal(value.ConstantInteger(6)) {
		t.Errorf("Expected the loaded field to fold to 6, found %s", top)
	}

	plain := New(prog, DefaultConfig())
	plain.Evaluate(loadM)
	if top := plain.StackAfter(4).Top(0); value.IsParticular(top) {
		t.Errorf("Expected an unknown value without recordings, found %s", top)
	}
}

const inheritedSource = `
.class A extends java/lang/Object
.field static f I
.method foo(I)I
    iload_1
    ireturn
.end method
.method static seven()I
    bipush 7
    ireturn
.end method
.end class

.class B extends A
.end class

.class final F extends java/lang/Object
.method bar(I)I
    iload_1
    ireturn
.end method
.end class

.class C extends java/lang/Object
.method static callA(LA;)I
    aload_0
    iconst_5
    invokevirtual A.foo(I)I
    ireturn
.end method
.method static callB(LB;)I
    aload_0
    bipush 7
    invokevirtual B.foo(I)I
    ireturn
.end method
.method static callF(LF;)I
    aload_0
    iconst_5
    invokevirtual F.bar(I)I
    ireturn
.end method
.method static putB()V
    iconst_3
    putstatic B.f I
    return
.end method
.method static getA()I
    getstatic A.f I
    ireturn
.end method
.method static useSeven()I
    invokestatic B.seven()I
    ireturn
.end method
.end class`

func TestRecordInheritedMembers(t *testing.T) {
	prog := testutil.Assemble(t, inheritedSource)
	method := func(class, name, desc string) *cf.Method {
		c, _ := prog.Class(class)
		m, ok := c.Method(name, desc)
		if !ok {
			t.Fatalf("Missing method %s.%s%s", class, name, desc)
		}
		return m
	}

	config := DefaultConfig()
	config.Invocation = InvocationStoring
	recorder := New(prog, config)
	for _, m := range []*cf.Method{
		method("C", "callA", "(LA;)I"),
		method("C", "callB", "(LB;)I"),
		method("C", "callF", "(LF;)I"),
		method("C", "putB", "()V"),
		method("A", "seven", "()I"),
	} {
		if err := recorder.Evaluate(m); err != nil {
			t.Fatal(err)
		}
	}
	recordings := recorder.Recordings()

	for _, key := range []string{"param B.foo(I)I#1", "field B.f:I", "return B.seven()I"} {
		if v, ok := recordings.Lookup(key); ok {
			t.Errorf("Expected no recording for %s, found %s", key, v)
		}
	}
	if v, ok := recordings.Lookup("param A.foo(I)I#1"); !ok || value.IsParticular(v) {
		t.Errorf("Expected the arguments of both calls to generalize, found %v", v)
	}

	config = DefaultConfig()
	config.Invocation = InvocationLoading
	config.Recordings = recordings
	e := New(prog, config)

	tests := []struct {
		m        *cf.Method
		get      func() value.Value
		expected value.Value
	}{
		// A.foo may also run for unrelated references in subclasses.
		{method("A", "foo", "(I)I"), func() value.Value { return e.VariablesBefore(0).Get(1) }, nil},
		{method("F", "bar", "(I)I"), func() value.Value { return e.VariablesBefore(0).Get(1) }, value.ConstantInteger(5)},
		{method("C", "getA", "()I"), func() value.Value { return e.StackAfter(0).Top(0) }, value.ConstantInteger(3)},
		{method("C", "useSeven", "()I"), func() value.Value { return e.StackAfter(0).Top(0) }, value.ConstantInteger(7)},
	}
	for _, test := range tests {
		if err := e.Evaluate(test.m); err != nil {
			t.Fatal(err)
		}
		v := test.get()
		switch {
		case test.expected == nil && value.IsParticular(v):
			t.Errorf("%s: expected an unknown value, found %s", test.m, v)
		case test.expected != nil && !v.Equal(test.expected):
			t.Errorf("%s: expected %s, found %s", test.m, test.expected, v)
		}
	}
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	config, err := LoadConfig(write("ok.toml", `
values = "identified"
branching = "basic"
trace-references = true
`))
	if err != nil {
		t.Fatal(err)
	}
	if config.Values != ValuesIdentified || config.Branching != BranchingBasic ||
		!config.TraceReferences || config.Invocation != InvocationBasic {
		t.Errorf("Unexpected configuration %+v", config)
	}

	for name, content := range map[string]string{
		"unknown-key.toml":   `colour = "blue"`,
		"unknown-value.toml": `values = "exact"`,
		"no-recordings.toml": `invocation = "loading"`,
		"syntax.toml":        `values = `,
	} {
		if _, err := LoadConfig(write(name, content)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected New to reject an invalid configuration")
		}
	}()
	New(nil, Config{Branching: "random"})
}

func TestBasicBranching(t *testing.T) {
	m := testutil.AssembleMethod(t, `
.method static pruned()I
    iconst_0
    ifeq L1
    iconst_1
    ireturn
  L1:
    iconst_2
    ireturn
.end method`)

	config := DefaultConfig()
	config.Branching = BranchingBasic
	e := New(nil, config)
	if err := e.Evaluate(m); err != nil {
		t.Fatal(err)
	}
	if !e.IsTraced(4) || !e.BranchTargets(1).Equal(value.NewOffsets(4, 6)) {
		t.Errorf("Expected a basic branch unit to follow both arms, found %s", e.BranchTargets(1))
	}
}

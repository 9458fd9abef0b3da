package flowgraph

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cs-au-dk/jpeval/analysis/evaluator"
	"github.com/cs-au-dk/jpeval/testutil"
	"github.com/cs-au-dk/jpeval/utils"
)

func build(t *testing.T, src string) *Graph {
	t.Helper()
	utils.Opts().SetNoColorize(true)
	m := testutil.AssembleMethod(t, src)
	e := evaluator.New(nil, evaluator.DefaultConfig())
	if err := e.Evaluate(m); err != nil {
		t.Fatal(err)
	}
	return New(e)
}

type blockShape struct {
	start, end int
	succs      []Edge
}

func checkBlocks(t *testing.T, G *Graph, expected []blockShape) {
	t.Helper()
	if len(G.Blocks) != len(expected) {
		t.Fatalf("Expected %d blocks, found:\n%s", len(expected), G)
	}
	for i, exp := range expected {
		b := G.Blocks[i]
		if b.Start != exp.start || b.End != exp.end {
			t.Errorf("Expected B%d to span [%d, %d), found [%d, %d)", i, exp.start, exp.end, b.Start, b.End)
		}
		if len(b.Succs) != len(exp.succs) {
			t.Errorf("Expected B%d to have successors %v, found %v", i, exp.succs, b.Succs)
			continue
		}
		for j, e := range exp.succs {
			if b.Succs[j] != e {
				t.Errorf("Expected B%d to have successors %v, found %v", i, exp.succs, b.Succs)
				break
			}
		}
	}
}

const branchSource = `
.method static branch(I)I
    iload_0
    ifeq L1
    iconst_1
    ireturn
  L1:
    iconst_0
    ireturn
.end method`

func TestBranchBlocks(t *testing.T) {
	G := build(t, branchSource)
	checkBlocks(t, G, []blockShape{
		{0, 4, []Edge{{1, CondFallThrough}, {2, CondTaken}}},
		{4, 6, nil},
		{6, 8, nil},
	})
	if !G.Blocks[1].Term() || !G.Blocks[2].Term() {
		t.Errorf("Expected both arms to return")
	}
	if len(G.Loops()) != 0 {
		t.Errorf("Expected no loops, found %v", G.Loops())
	}
	if b, ok := G.BlockOf(5); !ok || b.ID != 1 {
		t.Errorf("Expected offset 5 to belong to B1")
	}
	if _, ok := G.BlockOf(2); ok {
		t.Errorf("Expected offset 2 to be inside an instruction")
	}
}

func TestPrunedBranch(t *testing.T) {
	G := build(t, `
.method static pruned()I
    iconst_0
    ifeq L1
    iconst_1
    ireturn
  L1:
    iconst_0
    ireturn
.end method`)
	checkBlocks(t, G, []blockShape{
		{0, 4, []Edge{{1, ""}}},
		{6, 8, nil},
	})
}

func TestLoop(t *testing.T) {
	G := build(t, `
.method static loop(I)I
.limit locals 2
    iconst_0
    istore_1
  L0:
    iload_1
    iload_0
    if_icmpge L1
    iinc 1 1
    goto L0
  L1:
    iload_1
    ireturn
.end method`)
	checkBlocks(t, G, []blockShape{
		{0, 2, []Edge{{1, ""}}},
		{2, 7, []Edge{{2, CondFallThrough}, {3, CondTaken}}},
		{7, 13, []Edge{{1, ""}}},
		{13, 15, nil},
	})

	loops := G.Loops()
	if len(loops) != 1 || len(loops[0]) != 2 || loops[0][0] != 1 || loops[0][1] != 2 {
		t.Errorf("Expected a single loop of B1 and B2, found %v", loops)
	}
	for id, expected := range []bool{false, true, true, false} {
		if G.InLoop(id) != expected {
			t.Errorf("Expected InLoop(B%d) to be %v", id, expected)
		}
	}

	if !G.Dominates(1, 3) || !G.Dominates(0, 2) || G.Dominates(2, 3) {
		t.Errorf("Unexpected dominance relation")
	}
	for _, test := range []struct{ block, idom int }{{1, 0}, {2, 1}, {3, 1}} {
		if idom, ok := G.ImmediateDominator(test.block); !ok || idom != test.idom {
			t.Errorf("Expected B%d to be immediately dominated by B%d, found B%d", test.block, test.idom, idom)
		}
	}

	dg := G.DotGraph()
	if n := dg.NodeCount(); n != 4 {
		t.Errorf("Expected 4 nodes, found %d", n)
	}
	if len(dg.Clusters) != 2 || dg.Clusters[1].ID != "loop0" || len(dg.Clusters[1].Nodes) != 2 {
		t.Errorf("Expected the loop blocks to share a cluster")
	}

	buf := &bytes.Buffer{}
	if err := G.WriteDot(buf); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); !strings.Contains(out, `"B1" -> "B3" [ label="T"; ]`) {
		t.Errorf("Expected a labeled exit edge in:\n%s", out)
	}
}

func TestHandlerBlocks(t *testing.T) {
	G := build(t, `
.method static guarded()I
.limit locals 1
  L0:
    iconst_1
    ireturn
  L1:
    astore_0
    iconst_0
    ireturn
.catch any from L0 to L1 using L1
.end method`)
	checkBlocks(t, G, []blockShape{
		{0, 2, nil},
		{2, 5, nil},
	})
	if !G.Blocks[1].Handler {
		t.Errorf("Expected B1 to start a handler")
	}
	if h := G.Blocks[0].Handlers; len(h) != 1 || h[0] != 1 {
		t.Errorf("Expected B0 to be guarded by B1, found %v", h)
	}
	if entries := G.Entries(); len(entries) != 2 || entries[1] != 1 {
		t.Errorf("Expected the handler to be an entry, found %v", entries)
	}
	if !G.Dominates(0, 1) {
		t.Errorf("Expected the guarded block to dominate its handler")
	}
}

func TestSubroutineBlocks(t *testing.T) {
	G := build(t, `
.method static finally()V
.limit locals 2
    jsr L1
    jsr L1
    return
  L1:
    astore_1
    ret 1
.end method`)
	checkBlocks(t, G, []blockShape{
		{0, 3, []Edge{{3, ""}}},
		{3, 6, []Edge{{3, ""}}},
		{6, 7, nil},
		{7, 10, []Edge{{1, ""}, {2, ""}}},
	})
	if !G.Blocks[3].Subroutine {
		t.Errorf("Expected B3 to start a subroutine")
	}
	if loops := G.Loops(); len(loops) != 1 {
		t.Errorf("Expected the merged return addresses to form a loop, found %v", loops)
	}
}

func TestLattice(t *testing.T) {
	G := build(t, `
.method static call(I)V
    iload_0
    ifne L1
    invokestatic Main.f()V
  L1:
    return
.end method`)

	fn := G.Lattice()
	if fn.Name != "Main.call(I)V" {
		t.Errorf("Unexpected name %q", fn.Name)
	}
	if len(fn.Blocks) != 3 {
		t.Fatalf("Expected 3 blocks, found %d", len(fn.Blocks))
	}
	b0, b1, b2 := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2]
	if len(b0.Succs) != 2 || b0.Succs[0].Cond != CondFallThrough || b0.Succs[1].Cond != CondTaken {
		t.Errorf("B0 succs = %+v", b0.Succs)
	}
	if len(b1.Calls) != 1 || b1.Calls[0].Callee != "Main.f()V" || b1.Calls[0].Offset != 4 {
		t.Errorf("B1 calls = %+v", b1.Calls)
	}
	if !b2.Term || b0.Term {
		t.Errorf("Expected only B2 to be terminal")
	}

	if out := LatticeDOT("call", G); out == "" {
		t.Errorf("Expected non-empty DOT output")
	}
}

func TestString(t *testing.T) {
	G := build(t, branchSource)
	str := G.String()
	for _, part := range []string{"Main.branch(I)I {", "B0 [0, 4) {", "} -> [B1F B2T]", "[7] ireturn"} {
		if !strings.Contains(str, part) {
			t.Errorf("Expected %q in:\n%s", part, str)
		}
	}
}

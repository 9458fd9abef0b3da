// Package flowgraph groups the instructions reached by an evaluation into
// basic blocks and exposes the resulting control-flow graph.
package flowgraph

import (
	"fmt"
	"sort"
	"strings"

	uf "github.com/spakin/disjoint"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/evaluator"
	"github.com/cs-au-dk/jpeval/utils"
	"github.com/cs-au-dk/jpeval/utils/graph"
	"github.com/cs-au-dk/jpeval/utils/indenter"
)

// Edge conditions of the two arms of a conditional branch.
const (
	CondTaken       = "T"
	CondFallThrough = "F"
)

type Edge struct {
	To   int
	Cond string
}

// Block is a maximal run of traced instructions that control enters only
// at the first and leaves only after the last.
type Block struct {
	ID int
	// Start is the offset of the first instruction, End the offset just
	// past the last one.
	Start, End int
	Code       []cf.Instruction
	Succs      []Edge
	// Handlers are the blocks of the exception handlers guarding the block.
	Handlers []int

	Handler    bool
	Subroutine bool
}

// Term reports whether control leaves the method after the block.
func (b *Block) Term() bool {
	return len(b.Succs) == 0
}

func (b *Block) Last() cf.Instruction {
	return b.Code[len(b.Code)-1]
}

func (b *Block) String() string {
	strs := make([]string, len(b.Code))
	for i, ins := range b.Code {
		strs[i] = utils.InsString(ins)
	}
	var succs []string
	for _, e := range b.Succs {
		succs = append(succs, fmt.Sprintf("B%d%s", e.To, e.Cond))
	}
	for _, h := range b.Handlers {
		succs = append(succs, fmt.Sprintf("B%d!", h))
	}
	return indenter.Start(fmt.Sprintf("B%d [%d, %d) {", b.ID, b.Start, b.End)).
		NestStrings(strs...).
		End("} -> [" + strings.Join(succs, " ") + "]")
}

// Graph is the control-flow graph of the traced part of a method.
type Graph struct {
	Method *cf.Method
	Blocks []*Block

	blockOf map[int]int
	scc     graph.SCCDecomposition[int]
	dom     graph.Dominators[int]
}

// joins reports whether control always continues from offset to the next
// instruction and enters it from nowhere else, so both share a block.
func joins(e *evaluator.Evaluator, ins cf.Instruction) bool {
	offset, next := ins.Offset(), cf.Next(ins)
	if e.IsBranch(offset) || !e.IsTraced(next) {
		return false
	}
	if succs := e.Successors(offset); succs.Len() != 1 || !succs.Contains(next) {
		return false
	}
	if e.IsBranchOrExceptionTarget(next) || e.IsSubroutineStart(next) {
		return false
	}
	for _, h := range e.Method().ExceptionTable {
		if h.Covers(offset) != h.Covers(next) {
			return false
		}
	}
	return true
}

// New builds the flow graph of the method last evaluated by e.
func New(e *evaluator.Evaluator) *Graph {
	m := e.Method()
	G := &Graph{Method: m, blockOf: map[int]int{}}

	elements := map[int]*uf.Element{}
	for _, ins := range m.Code {
		if e.IsTraced(ins.Offset()) {
			el := uf.NewElement()
			el.Data = ins.Offset()
			elements[ins.Offset()] = el
		}
	}
	for _, ins := range m.Code {
		if el, ok := elements[ins.Offset()]; ok && joins(e, ins) {
			uf.Union(el, elements[cf.Next(ins)])
		}
	}

	// Instructions are visited in ascending order, so blocks are numbered
	// by their first offset.
	ids := map[*uf.Element]int{}
	for _, ins := range m.Code {
		el, ok := elements[ins.Offset()]
		if !ok {
			continue
		}
		id, ok := ids[el.Find()]
		if !ok {
			id = len(G.Blocks)
			ids[el.Find()] = id
			G.Blocks = append(G.Blocks, &Block{
				ID:         id,
				Start:      ins.Offset(),
				Handler:    e.IsExceptionHandler(ins.Offset()),
				Subroutine: e.IsSubroutineStart(ins.Offset()),
			})
		}
		b := G.Blocks[id]
		b.Code = append(b.Code, ins)
		b.End = cf.Next(ins)
		G.blockOf[ins.Offset()] = id
	}

	for _, b := range G.Blocks {
		last := b.Last()
		for _, to := range e.Successors(last.Offset()).Offsets() {
			b.Succs = append(b.Succs, Edge{To: G.blockOf[to], Cond: condition(last, to, e)})
		}
		sort.Slice(b.Succs, func(i, j int) bool { return b.Succs[i].To < b.Succs[j].To })

		seen := map[int]bool{}
		for _, h := range m.ExceptionTable {
			if !e.IsExceptionHandler(h.Handler) || !h.Covers(b.Start) {
				continue
			}
			if id := G.blockOf[h.Handler]; !seen[id] {
				seen[id] = true
				b.Handlers = append(b.Handlers, id)
			}
		}
	}

	g := G.Graph()
	G.scc = g.SCC(G.Entries())
	if len(G.Blocks) > 0 {
		G.dom = g.DominatorTree(0)
	}
	return G
}

// condition labels the edge from a conditional branch to one of its arms.
// Edges of a branch whose outcome is certain are unlabeled.
func condition(ins cf.Instruction, to int, e *evaluator.Evaluator) string {
	br, ok := ins.(*cf.BranchInstruction)
	if !ok || !br.Opcode().IsConditionalBranch() || e.Successors(br.Offset()).Len() != 2 {
		return ""
	}
	if to == br.Target {
		return CondTaken
	}
	return CondFallThrough
}

// BlockOf returns the block containing the instruction at offset.
func (G *Graph) BlockOf(offset int) (*Block, bool) {
	id, ok := G.blockOf[offset]
	if !ok {
		return nil, false
	}
	return G.Blocks[id], true
}

// Edges returns the successor blocks of a block, including its exception
// handlers.
func (G *Graph) Edges(id int) []int {
	b := G.Blocks[id]
	var succs []int
	for _, e := range b.Succs {
		succs = append(succs, e.To)
	}
	for _, h := range b.Handlers {
		if !containsInt(succs, h) {
			succs = append(succs, h)
		}
	}
	return succs
}

func containsInt(xs []int, x int) bool {
	for _, y := range xs {
		if x == y {
			return true
		}
	}
	return false
}

// Graph views the blocks as a graph over block IDs.
func (G *Graph) Graph() graph.Graph[int] {
	return graph.Of(G.Edges)
}

// Entries are the method entry block followed by every handler block.
func (G *Graph) Entries() []int {
	if len(G.Blocks) == 0 {
		return nil
	}
	entries := []int{0}
	for _, b := range G.Blocks[1:] {
		if b.Handler {
			entries = append(entries, b.ID)
		}
	}
	return entries
}

// Loops returns the cyclic strongly connected components, each as sorted
// block IDs, ordered by their first block.
func (G *Graph) Loops() [][]int {
	var loops [][]int
	for i, comp := range G.scc.Components {
		if !G.scc.IsCyclic(i) {
			continue
		}
		loop := append([]int(nil), comp...)
		sort.Ints(loop)
		loops = append(loops, loop)
	}
	sort.Slice(loops, func(i, j int) bool { return loops[i][0] < loops[j][0] })
	return loops
}

// InLoop reports whether the block lies on a cycle.
func (G *Graph) InLoop(id int) bool {
	comp := G.scc.ComponentOf(id)
	return comp >= 0 && G.scc.IsCyclic(comp)
}

// Dominates reports whether every path from the method entry to block b
// passes block a. Blocks only reachable through exception handlers are not
// dominated by any block.
func (G *Graph) Dominates(a, b int) bool {
	return len(G.Blocks) > 0 && G.dom.Dominates(a, b)
}

// ImmediateDominator returns the closest block dominating b.
func (G *Graph) ImmediateDominator(b int) (int, bool) {
	if len(G.Blocks) == 0 {
		return 0, false
	}
	return G.dom.Immediate(b)
}

func (G *Graph) String() string {
	strs := make([]string, len(G.Blocks))
	for i, b := range G.Blocks {
		strs[i] = b.String()
	}
	return indenter.Start(utils.MethodString(G.Method.Class, G.Method.Name, G.Method.Descriptor) + " {").
		NestStrings(strs...).
		End("}")
}

package flowgraph

import (
	"fmt"
	"io"
	"strings"

	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/utils/dot"
	"github.com/cs-au-dk/jpeval/utils/graph"
)

// CondHandler labels edges into exception handlers in exported graphs.
const CondHandler = "E"

func isInvoke(op cf.Opcode) bool {
	return cf.INVOKEVIRTUAL <= op && op <= cf.INVOKEDYNAMIC
}

// Lattice converts the graph to the lattice CFG model. Block bounds are
// instruction offsets, and every invoke becomes a call site.
func (G *Graph) Lattice() *lattice.FuncCFG {
	fn := &lattice.FuncCFG{Name: G.Method.String()}
	for _, b := range G.Blocks {
		lb := &lattice.BasicBlock{
			ID:    b.ID,
			Start: b.Start,
			End:   b.End,
			Term:  b.Term(),
		}
		for _, e := range b.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: e.To, Cond: e.Cond})
		}
		for _, h := range b.Handlers {
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: h, Cond: CondHandler})
		}
		for _, ins := range b.Code {
			if c, ok := ins.(*cf.ConstantInstruction); ok && isInvoke(c.Opcode()) {
				lb.Calls = append(lb.Calls, lattice.CallSite{
					Offset: ins.Offset(),
					Callee: fmt.Sprint(c.Constant),
				})
			}
		}
		fn.Blocks = append(fn.Blocks, lb)
	}
	return fn
}

// LatticeDOT renders the graphs of several methods with the lattice
// renderer.
func LatticeDOT(title string, graphs ...*Graph) string {
	cg := &lattice.CFGGraph{}
	for _, G := range graphs {
		cg.Funcs = append(cg.Funcs, G.Lattice())
	}
	return render.DOTCFG(cg, title)
}

// DotGraph lays out the blocks with their code as labels. Blocks of the
// same loop share a cluster.
func (G *Graph) DotGraph() *dot.DotGraph {
	loopOf := map[int]int{}
	for i, loop := range G.Loops() {
		for _, id := range loop {
			loopOf[id] = i
		}
	}

	ids := make([]int, len(G.Blocks))
	for i := range ids {
		ids[i] = i
	}

	conds := map[[2]int]string{}
	for _, b := range G.Blocks {
		for _, e := range b.Succs {
			conds[[2]int{b.ID, e.To}] = e.Cond
		}
	}

	return G.Graph().ToDotGraph(ids, &graph.VisualizationConfig[int]{
		Title: G.Method.String(),
		NodeAttrs: func(id int) (string, dot.DotAttrs) {
			b := G.Blocks[id]
			lines := make([]string, len(b.Code))
			for i, ins := range b.Code {
				lines[i] = ins.String()
			}
			attrs := dot.DotAttrs{"label": strings.Join(lines, "\\l") + "\\l"}
			switch {
			case b.Handler:
				attrs["fillcolor"] = "mistyrose"
			case b.Subroutine:
				attrs["fillcolor"] = "lightyellow"
			case b.Term():
				attrs["fillcolor"] = "lightblue"
			}
			return fmt.Sprintf("B%d", id), attrs
		},
		ClusterKey: func(id int) any {
			if loop, ok := loopOf[id]; ok {
				return loop
			}
			return -1
		},
		ClusterAttrs: func(key any) (string, dot.DotAttrs) {
			loop := key.(int)
			if loop < 0 {
				return "body", dot.DotAttrs{"style": "invis"}
			}
			return fmt.Sprintf("loop%d", loop), dot.DotAttrs{
				"label": fmt.Sprintf("loop %d", loop),
				"style": "dashed",
			}
		},
		EdgeAttrs: func(a, b int) dot.DotAttrs {
			cond, ok := conds[[2]int{a, b}]
			if !ok {
				return dot.DotAttrs{"style": "dotted"}
			}
			if cond != "" {
				return dot.DotAttrs{"label": cond}
			}
			return nil
		},
	})
}

// WriteDot writes the layout of DotGraph to w.
func (G *Graph) WriteDot(w io.Writer) error {
	return G.DotGraph().WriteDot(w)
}

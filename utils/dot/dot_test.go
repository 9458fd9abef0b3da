package dot

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteDot(t *testing.T) {
	a, b := &DotNode{ID: "B0"}, &DotNode{ID: "B1", Attrs: DotAttrs{"fillcolor": "lightblue"}}
	loop := NewDotCluster("loop0")
	loop.Attrs["style"] = "dashed"
	loop.Nodes = append(loop.Nodes, b)

	g := &DotGraph{
		Title:    "Main.f()V",
		Nodes:    []*DotNode{a},
		Clusters: []*DotCluster{loop},
		Edges: []*DotEdge{
			{From: a, To: b, Attrs: DotAttrs{"label": "T"}},
			{From: b, To: b},
		},
		Options: map[string]string{"rankdir": "LR"},
	}
	if n := g.NodeCount(); n != 2 {
		t.Errorf("Expected 2 nodes, found %d", n)
	}

	buf := &bytes.Buffer{}
	if err := g.WriteDot(buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, part := range []string{
		`digraph Method {`,
		`label="Main.f()V";`,
		`rankdir="LR";`,
		`nodesep="0.35";`,
		`subgraph "cluster_loop0" {`,
		`style="dashed";`,
		`"B1" [ fillcolor="lightblue"; ]`,
		`"B0" -> "B1" [ label="T"; ]`,
		`"B1" -> "B1" [  ]`,
	} {
		if !strings.Contains(out, part) {
			t.Errorf("Expected %q in:\n%s", part, out)
		}
	}
}

func TestAttrsSorted(t *testing.T) {
	attrs := DotAttrs{"style": "dotted", "label": "E", "color": "red"}
	if s := attrs.String(); s != `color="red"; label="E"; style="dotted";` {
		t.Errorf("Unexpected attributes %s", s)
	}
}

// Package dot models DOT graphs of basic blocks, writes them as text and
// renders them to images with graphviz.
package dot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/goccy/go-graphviz"
)

// Render lays out a DOT graph and writes the image in the given format
// (svg, png, ...) to w.
func Render(w io.Writer, format string, dot []byte) error {
	g := graphviz.New()
	defer g.Close()

	graph, err := graphviz.ParseBytes(dot)
	if err != nil {
		return err
	}
	defer graph.Close()

	return g.Render(graph, graphviz.Format(format), w)
}

// DotToImage renders a DOT graph to outfname.format and returns the path
// of the image. An empty outfname renders into the temporary directory.
func DotToImage(outfname string, format string, dot []byte) (string, error) {
	img := outfname + "." + format
	if outfname == "" {
		img = filepath.Join(os.TempDir(), "jpeval_export."+format)
	}

	f, err := os.Create(img)
	if err != nil {
		return "", err
	}
	if err := Render(f, format, dot); err != nil {
		f.Close()
		return "", err
	}
	return img, f.Close()
}

// Missing options render as their zero value.
var tmpl = template.Must(template.New("dot").Option("missingkey=zero").Parse(`
{{- define "node"}}{{printf "%q [ %s ]" .ID .Attrs}}{{end}}
{{- define "edge"}}{{printf "%q -> %q [ %s ]" .From .To .Attrs}}{{end}}
{{- define "cluster"}}subgraph {{printf "%q" .}} {
		{{.Attrs.Lines}}
		{{- range .Nodes}}
		{{template "node" .}}
		{{- end}}
		{{- range .Clusters}}
		{{template "cluster" .}}
		{{- end}}
	}
{{- end -}}
digraph Method {
	label={{printf "%q" .Title}};
	labeljust="l";
	labelloc="t";
	fontname="Courier";
	fontsize="12";
	rankdir="{{or .Options.rankdir "TB"}}";
	nodesep="{{or .Options.nodesep "0.35"}}";
	pad="0.1";
	{{- range .Attrs.List}}
	{{.}}
	{{- end}}

	node [shape="box" style="filled" fillcolor="white" fontname="Courier" fontsize="10" margin="0.1,0.05"];
	edge [minlen="{{or .Options.minlen "1"}}" fontname="Courier" fontsize="10"];
	{{- range .Clusters}}
	{{template "cluster" .}}
	{{- end}}
	{{- range .Nodes}}
	{{template "node" .}}
	{{- end}}
	{{- range .Edges}}
	{{template "edge" .}}
	{{- end}}
}
`))

// DotCluster is a subgraph. Nested clusters are written in order.
type DotCluster struct {
	ID       string
	Clusters []*DotCluster
	Nodes    []*DotNode
	Attrs    DotAttrs
}

func NewDotCluster(id string) *DotCluster {
	return &DotCluster{ID: id, Attrs: DotAttrs{}}
}

// String is the DOT name of the cluster. Graphviz only draws subgraphs
// named cluster_*.
func (c *DotCluster) String() string {
	return "cluster_" + c.ID
}

func (c *DotCluster) countNodes() (n int) {
	n = len(c.Nodes)
	for _, sub := range c.Clusters {
		n += sub.countNodes()
	}
	return
}

type DotNode struct {
	ID    string
	Attrs DotAttrs
}

func (n *DotNode) String() string {
	return n.ID
}

type DotEdge struct {
	From  *DotNode
	To    *DotNode
	Attrs DotAttrs
}

type DotAttrs map[string]string

// List renders the attributes as key="value"; entries sorted by key.
func (p DotAttrs) List() []string {
	l := make([]string, 0, len(p))
	for k, v := range p {
		l = append(l, fmt.Sprintf("%s=%q;", k, v))
	}
	sort.Strings(l)
	return l
}

func (p DotAttrs) String() string {
	return strings.Join(p.List(), " ")
}

func (p DotAttrs) Lines() string {
	return strings.Join(p.List(), "\n\t\t")
}

// DotGraph is a directed graph with optional clusters. Options holds
// layout settings: rankdir, nodesep and minlen.
type DotGraph struct {
	Title    string
	Attrs    DotAttrs
	Clusters []*DotCluster
	Nodes    []*DotNode
	Edges    []*DotEdge
	Options  map[string]string
}

// NodeCount counts the nodes of the graph, including those in clusters.
func (g *DotGraph) NodeCount() int {
	n := len(g.Nodes)
	for _, cl := range g.Clusters {
		n += cl.countNodes()
	}
	return n
}

func (g *DotGraph) WriteDot(w io.Writer) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, g); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

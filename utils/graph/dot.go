package graph

import (
	"fmt"

	"github.com/cs-au-dk/jpeval/utils"
	"github.com/cs-au-dk/jpeval/utils/dot"
)

var opts = utils.Opts()

// VisualizationConfig customizes ToDotGraph. Every field is optional.
type VisualizationConfig[T comparable] struct {
	Title string
	// NodeAttrs gives the DOT ID and attributes of a node. The default ID
	// is the formatted node.
	NodeAttrs func(node T) (string, dot.DotAttrs)
	// ClusterKey groups nodes with equal keys into one cluster.
	ClusterKey func(node T) any
	// ClusterAttrs gives the ID and attributes of the cluster for a key.
	ClusterAttrs func(key any) (string, dot.DotAttrs)
	EdgeAttrs    func(from, to T) dot.DotAttrs
}

// ToDotGraph renders the given nodes and the edges between them.
func (G Graph[T]) ToDotGraph(nodes []T, cfg *VisualizationConfig[T]) *dot.DotGraph {
	if cfg == nil {
		cfg = &VisualizationConfig[T]{}
	}

	dg := &dot.DotGraph{
		Title: cfg.Title,
		Options: map[string]string{
			"minlen":  fmt.Sprint(opts.Minlen()),
			"nodesep": fmt.Sprint(opts.Nodesep()),
			"rankdir": "TB",
		},
	}

	// Clusters appear in the order their first node is given.
	clusters := map[any]*dot.DotCluster{}
	cluster := func(key any) *dot.DotCluster {
		if cl, found := clusters[key]; found {
			return cl
		}
		cl := dot.NewDotCluster(fmt.Sprint(key))
		if cfg.ClusterAttrs != nil {
			cl.ID, cl.Attrs = cfg.ClusterAttrs(key)
		}
		clusters[key] = cl
		dg.Clusters = append(dg.Clusters, cl)
		return cl
	}

	dotNodes := make(map[T]*dot.DotNode, len(nodes))
	for _, node := range nodes {
		dn := &dot.DotNode{ID: fmt.Sprint(node)}
		if cfg.NodeAttrs != nil {
			dn.ID, dn.Attrs = cfg.NodeAttrs(node)
		}
		dotNodes[node] = dn

		if cfg.ClusterKey == nil {
			dg.Nodes = append(dg.Nodes, dn)
			continue
		}
		cl := cluster(cfg.ClusterKey(node))
		cl.Nodes = append(cl.Nodes, dn)
	}

	// Only edges between the given nodes are drawn.
	for _, node := range nodes {
		for _, succ := range G.Edges(node) {
			to, found := dotNodes[succ]
			if !found {
				continue
			}
			e := &dot.DotEdge{From: dotNodes[node], To: to}
			if cfg.EdgeAttrs != nil {
				e.Attrs = cfg.EdgeAttrs(node, succ)
			}
			dg.Edges = append(dg.Edges, e)
		}
	}
	return dg
}

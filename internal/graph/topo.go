package graph

import (
	"fmt"
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// TopologicalOrder returns arena indices so that every predecessor precedes
// its successors. Ties are broken by arena index (lexical id), so the order is
// stable across runs. Fails with ErrCycleDetected on a cyclic graph.
func (g *Graph) TopologicalOrder() ([]int, error) {
	dg := simple.NewDirectedGraph()
	for i := range g.ids {
		dg.AddNode(simple.Node(i))
	}
	for _, e := range g.edges {
		if e.From == e.To {
			return nil, fmt.Errorf("%w: %s depends on itself", ErrCycleDetected, g.ids[e.From])
		}
		dg.SetEdge(simple.Edge{F: simple.Node(e.From), T: simple.Node(e.To)})
	}

	sorted, err := topo.SortStabilized(dg, byNodeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycleDetected, err)
	}
	order := make([]int, len(sorted))
	for i, n := range sorted {
		order[i] = int(n.ID())
	}
	return order, nil
}

func byNodeID(nodes []gonum.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

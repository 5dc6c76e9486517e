// Package cycles finds groups of nodes that trust each other in a loop.
// Trust does not circulate through such a group, so only the node the
// reference reaches first passes trust on to the rest.
package cycles

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/trust-graph/pkg/trust"
)

// Cycle is a strongly connected set of nodes over positive edges, in
// first-seen order.
type Cycle struct {
	Nodes []string `json:"nodes" yaml:"nodes"`
}

// FindTrustCycles returns every cycle of two or more nodes formed by edges
// with a positive weight. Cycles are ordered by their first node's first
// appearance in edges.
func FindTrustCycles(edges []trust.Edge) []Cycle {
	g := simple.NewDirectedGraph()
	ids := make(map[string]int64)
	names := make([]string, 0)

	id := func(name string) int64 {
		if existing, ok := ids[name]; ok {
			return existing
		}
		next := int64(len(names))
		ids[name] = next
		names = append(names, name)
		g.AddNode(simple.Node(next))
		return next
	}

	for _, e := range edges {
		from, to := id(e.Source), id(e.Target)
		if from == to || e.PositiveWeight <= 0 {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
	}

	cycles := make([]Cycle, 0)
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}

		nodeIDs := make([]int64, 0, len(scc))
		for _, n := range scc {
			nodeIDs = append(nodeIDs, n.ID())
		}
		sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })

		nodes := make([]string, len(nodeIDs))
		for i, nid := range nodeIDs {
			nodes[i] = names[nid]
		}
		cycles = append(cycles, Cycle{Nodes: nodes})
	}

	sort.Slice(cycles, func(i, j int) bool {
		return ids[cycles[i].Nodes[0]] < ids[cycles[j].Nodes[0]]
	})
	return cycles
}

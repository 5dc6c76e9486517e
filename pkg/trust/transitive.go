package trust

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// TransitiveEngine propagates positive trust breadth-first from the reference
// node and lets each trusted node assign one hop of negative trust.
type TransitiveEngine struct {
	graph  *simple.WeightedDirectedGraph
	edges  []Edge
	nodes  []string
	ids    map[string]int64 // node -> graph ID
	nextID int64
}

// NewTransitiveEngine creates an empty engine.
func NewTransitiveEngine() *TransitiveEngine {
	return &TransitiveEngine{
		graph: simple.NewWeightedDirectedGraph(0, 0),
		edges: make([]Edge, 0),
		nodes: make([]string, 0),
		ids:   make(map[string]int64),
	}
}

// NewEngine is a Factory for TransitiveEngine.
func NewEngine() Engine {
	return NewTransitiveEngine()
}

func (e *TransitiveEngine) addNode(id string) int64 {
	if gid, exists := e.ids[id]; exists {
		return gid
	}

	gid := e.nextID
	e.ids[id] = gid
	e.nodes = append(e.nodes, id)
	e.graph.AddNode(simple.Node(gid))
	e.nextID++
	return gid
}

// AddEdge records an edge. The gonum graph only carries edges that can
// propagate positive trust; self edges are kept in the edge list only.
func (e *TransitiveEngine) AddEdge(source, target string, positiveWeight, negativeWeight float64) {
	from := e.addNode(source)
	to := e.addNode(target)

	e.edges = append(e.edges, Edge{
		Source:         source,
		Target:         target,
		PositiveWeight: positiveWeight,
		NegativeWeight: negativeWeight,
	})

	if from == to || positiveWeight <= 0 {
		return
	}
	e.graph.SetWeightedEdge(e.graph.NewWeightedEdge(simple.Node(from), simple.Node(to), positiveWeight))
}

// Edges returns a copy of all edges in insertion order.
func (e *TransitiveEngine) Edges() []Edge {
	out := make([]Edge, len(e.edges))
	copy(out, e.edges)
	return out
}

// Nodes returns all nodes in first-seen order.
func (e *TransitiveEngine) Nodes() []string {
	out := make([]string, len(e.nodes))
	copy(out, e.nodes)
	return out
}

// ComputeTrustScores returns scores for every node that received positive or
// negative trust, in breadth-first discovery order. The reference node itself
// is not part of the result.
func (e *TransitiveEngine) ComputeTrustScores(reference string) Scores {
	refID, exists := e.ids[reference]
	if !exists {
		return Scores{}
	}

	order := e.discoveryOrder(refID)
	rank := make(map[string]int, len(order))
	for i, node := range order {
		rank[node] = i
	}

	outgoing := make(map[string][]Edge)
	for _, edge := range e.edges {
		outgoing[edge.Source] = append(outgoing[edge.Source], edge)
	}

	positive := map[string]float64{reference: 1}
	negative := make(map[string]float64)
	touched := make([]string, 0)
	seen := make(map[string]bool)

	touch := func(node string) {
		if !seen[node] {
			seen[node] = true
			touched = append(touched, node)
		}
	}

	for _, node := range order {
		trust := positive[node]
		if trust <= 0 {
			continue
		}

		for _, edge := range outgoing[node] {
			if edge.Target == reference || edge.Target == node {
				continue
			}

			// Positive trust only flows forward so cycles cannot amplify it.
			if r, ok := rank[edge.Target]; ok && r > rank[node] && edge.PositiveWeight > 0 {
				positive[edge.Target] = combine(positive[edge.Target], trust*edge.PositiveWeight)
				touch(edge.Target)
			}

			if edge.NegativeWeight > 0 {
				negative[edge.Target] = combine(negative[edge.Target], trust*edge.NegativeWeight)
				touch(edge.Target)
			}
		}
	}

	scores := make(Scores, 0, len(touched))
	for _, node := range touched {
		pos := positive[node]
		neg := negative[node]
		scores = append(scores, NodeScore{
			Node:  node,
			Score: Score{Positive: pos, Negative: neg, Net: pos - neg},
		})
	}
	return scores
}

// discoveryOrder returns the nodes reachable from the reference over positive
// edges, ordered by BFS depth and then by first-seen order.
func (e *TransitiveEngine) discoveryOrder(refID int64) []string {
	depth := make(map[int64]int)

	bfs := traverse.BreadthFirst{
		Traverse: func(edge graph.Edge) bool {
			weighted, ok := edge.(graph.WeightedEdge)
			return ok && weighted.Weight() > 0
		},
	}
	bfs.Walk(e.graph, simple.Node(refID), func(n graph.Node, d int) bool {
		depth[n.ID()] = d
		return false
	})

	order := make([]string, 0, len(depth))
	for _, node := range e.nodes {
		if _, ok := depth[e.ids[node]]; ok {
			order = append(order, node)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return depth[e.ids[order[i]]] < depth[e.ids[order[j]]]
	})
	return order
}

// combine merges two independent trust paths.
func combine(current, incoming float64) float64 {
	return 1 - (1-current)*(1-incoming)
}

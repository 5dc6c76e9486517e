package session

import "github.com/ritzau/trust-graph/pkg/trust"

// DemoReference is the reference node used with DemoEdges.
const DemoReference = "A"

// DemoEdges returns a small graph with parallel paths, cycles and negative
// edges.
func DemoEdges() []trust.Edge {
	return []trust.Edge{
		{Source: "A", Target: "B", PositiveWeight: 0.9},
		{Source: "B", Target: "C", PositiveWeight: 0.1},
		{Source: "C", Target: "D", PositiveWeight: 0.9},
		{Source: "A", Target: "C", PositiveWeight: 0.1},
		{Source: "C", Target: "E", PositiveWeight: 0.9},
		{Source: "B", Target: "F", PositiveWeight: 0.9},
		{Source: "D", Target: "E", PositiveWeight: 0.9},
		{Source: "E", Target: "D", PositiveWeight: 0.9},
		{Source: "D", Target: "C", PositiveWeight: 0.9},
		{Source: "E", Target: "C", PositiveWeight: 0.9},
		{Source: "E", Target: "F", NegativeWeight: 1},
		{Source: "F", Target: "G", PositiveWeight: 0.9},
		{Source: "G", Target: "C", NegativeWeight: 0.9},
	}
}

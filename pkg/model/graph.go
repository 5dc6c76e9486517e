package model

import (
	"errors"
	"fmt"

	"github.com/ritzau/trust-graph/pkg/trust"
)

var (
	// ErrDuplicateEdge is returned when an edge with the same source and target exists.
	ErrDuplicateEdge = errors.New("edge already exists")

	// ErrEmptyNode is returned when an edge endpoint is empty.
	ErrEmptyNode = errors.New("node id must not be empty")
)

// Graph is the authoritative, append-only edge log of a trust graph.
// It enforces one edge per ordered (source, target) pair and forwards accepted
// edges to its scoring engine so both always hold the same edge set.
type Graph struct {
	engine  trust.Engine
	pairs   map[edgeKey]bool
	version uint64
}

type edgeKey struct {
	source string
	target string
}

// NewGraph creates an empty graph backed by engine.
func NewGraph(engine trust.Engine) *Graph {
	g := &Graph{
		engine: engine,
		pairs:  make(map[edgeKey]bool),
	}
	for _, e := range engine.Edges() {
		g.pairs[edgeKey{e.Source, e.Target}] = true
	}
	return g
}

// AddEdge appends an edge. It fails with ErrDuplicateEdge, leaving the graph
// unchanged, when the (source, target) pair is already present.
func (g *Graph) AddEdge(source, target string, positiveWeight, negativeWeight float64) error {
	if source == "" || target == "" {
		return ErrEmptyNode
	}

	key := edgeKey{source, target}
	if g.pairs[key] {
		return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, source, target)
	}

	g.pairs[key] = true
	g.engine.AddEdge(source, target, positiveWeight, negativeWeight)
	g.version++
	return nil
}

// HasEdge reports whether an edge from source to target exists.
func (g *Graph) HasEdge(source, target string) bool {
	return g.pairs[edgeKey{source, target}]
}

// Edges returns a copy of the edges in insertion order.
func (g *Graph) Edges() []trust.Edge {
	return g.engine.Edges()
}

// Nodes returns the node set in first-seen order.
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0)
	seen := make(map[string]bool)
	for _, e := range g.engine.Edges() {
		for _, id := range [2]string{e.Source, e.Target} {
			if !seen[id] {
				seen[id] = true
				nodes = append(nodes, id)
			}
		}
	}
	return nodes
}

// HasNode reports whether id is an endpoint of any edge.
func (g *Graph) HasNode(id string) bool {
	for _, e := range g.engine.Edges() {
		if e.Source == id || e.Target == id {
			return true
		}
	}
	return false
}

// Len returns the number of edges.
func (g *Graph) Len() int {
	return len(g.pairs)
}

// Version increases by one with every accepted edge.
func (g *Graph) Version() uint64 {
	return g.version
}

// Engine returns the scoring engine holding this graph's edges.
func (g *Graph) Engine() trust.Engine {
	return g.engine
}

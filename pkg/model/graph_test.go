package model

import (
	"errors"
	"testing"

	"github.com/ritzau/trust-graph/pkg/trust"
)

func TestNewGraph(t *testing.T) {
	g := NewGraph(trust.NewTransitiveEngine())
	if g == nil {
		t.Fatal("NewGraph() returned nil")
	}

	if g.Len() != 0 {
		t.Errorf("New graph should have 0 edges, got %d", g.Len())
	}
	if g.Version() != 0 {
		t.Errorf("New graph should be at version 0, got %d", g.Version())
	}
}

func TestAddEdge(t *testing.T) {
	g := NewGraph(trust.NewTransitiveEngine())

	if err := g.AddEdge("A", "B", 0.9, 0); err != nil {
		t.Fatalf("Failed to add edge: %v", err)
	}
	if err := g.AddEdge("B", "C", 0.1, 0); err != nil {
		t.Fatalf("Failed to add edge: %v", err)
	}

	edges := g.Edges()
	if len(edges) != 2 {
		t.Fatalf("Expected 2 edges, got %d", len(edges))
	}
	if edges[0].Source != "A" || edges[1].Source != "B" {
		t.Errorf("Edges not in insertion order: %v", edges)
	}
	if g.Version() != 2 {
		t.Errorf("Expected version 2, got %d", g.Version())
	}
}

func TestAddEdge_Duplicate(t *testing.T) {
	g := NewGraph(trust.NewTransitiveEngine())
	g.AddEdge("A", "B", 0.9, 0)

	before := g.Edges()
	err := g.AddEdge("A", "B", 0.1, 0.5)
	if !errors.Is(err, ErrDuplicateEdge) {
		t.Fatalf("Expected ErrDuplicateEdge, got %v", err)
	}

	after := g.Edges()
	if len(after) != len(before) || after[0] != before[0] {
		t.Errorf("Duplicate add mutated the graph: %v -> %v", before, after)
	}
	if g.Version() != 1 {
		t.Errorf("Duplicate add bumped the version to %d", g.Version())
	}
}

func TestAddEdge_ReverseIsNotDuplicate(t *testing.T) {
	g := NewGraph(trust.NewTransitiveEngine())
	g.AddEdge("A", "B", 0.9, 0)

	if err := g.AddEdge("B", "A", 0.9, 0); err != nil {
		t.Errorf("Reverse edge should be accepted, got %v", err)
	}
	if err := g.AddEdge("a", "B", 0.9, 0); err != nil {
		t.Errorf("Node ids are case-sensitive, got %v", err)
	}
}

func TestAddEdge_EmptyNode(t *testing.T) {
	g := NewGraph(trust.NewTransitiveEngine())

	if err := g.AddEdge("", "B", 1, 0); !errors.Is(err, ErrEmptyNode) {
		t.Errorf("Expected ErrEmptyNode, got %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("Rejected edge was stored")
	}
}

func TestNodes(t *testing.T) {
	g := NewGraph(trust.NewTransitiveEngine())
	g.AddEdge("B", "C", 1, 0)
	g.AddEdge("A", "B", 1, 0)
	g.AddEdge("C", "D", 1, 0)

	nodes := g.Nodes()
	expected := []string{"B", "C", "A", "D"}
	if len(nodes) != len(expected) {
		t.Fatalf("Expected %d nodes, got %v", len(expected), nodes)
	}
	for i := range expected {
		if nodes[i] != expected[i] {
			t.Errorf("Node %d: expected %s, got %s", i, expected[i], nodes[i])
		}
	}

	if !g.HasNode("D") || g.HasNode("E") {
		t.Errorf("HasNode returned wrong membership")
	}
}

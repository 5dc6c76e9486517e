package lens

import (
	"github.com/ritzau/trust-graph/pkg/logging"
)

// Decision is the outcome of reconciling a new render model.
type Decision int

const (
	// DecisionRebuild discards and recreates the surface.
	DecisionRebuild Decision = iota
	// DecisionUpdate patches existing surface elements in place.
	DecisionUpdate
)

func (d Decision) String() string {
	if d == DecisionUpdate {
		return "update"
	}
	return "rebuild"
}

// GraphSnapshot is the shape of the last render model pushed to the surface.
type GraphSnapshot struct {
	NodeCount   int
	EdgeCount   int
	DistinctIDs int
	Nodes       map[string]GraphNode // nodeID -> node
	Edges       map[string]GraphEdge // edgeKey -> edge
}

// GraphDiff is an attribute-only change set.
type GraphDiff struct {
	ModifiedNodes []GraphNode `json:"modifiedNodes"`
	ModifiedEdges []GraphEdge `json:"modifiedEdges"`
	Physics       bool        `json:"physics"`
}

// Empty reports whether the diff changes nothing.
func (d *GraphDiff) Empty() bool {
	return len(d.ModifiedNodes) == 0 && len(d.ModifiedEdges) == 0
}

// CreateSnapshot creates a snapshot from graph data for diffing
func CreateSnapshot(graph *GraphData) *GraphSnapshot {
	snapshot := &GraphSnapshot{
		NodeCount: len(graph.Nodes),
		EdgeCount: len(graph.Edges),
		Nodes:     make(map[string]GraphNode, len(graph.Nodes)),
		Edges:     make(map[string]GraphEdge, len(graph.Edges)),
	}

	for _, node := range graph.Nodes {
		snapshot.Nodes[node.ID] = node
	}
	for _, edge := range graph.Edges {
		snapshot.Edges[edge.ID] = edge
	}
	snapshot.DistinctIDs = len(snapshot.Nodes)

	return snapshot
}

// IsStructural reports whether moving from old to next changes the graph's
// shape. Only counts are compared; ids that the old snapshot never saw are
// also treated as structural since they have no element to patch.
func IsStructural(old, next *GraphSnapshot) bool {
	if old == nil {
		return true
	}
	if old.NodeCount != next.NodeCount || old.EdgeCount != next.EdgeCount || old.DistinctIDs != next.DistinctIDs {
		return true
	}
	for id := range next.Nodes {
		if _, ok := old.Nodes[id]; !ok {
			return true
		}
	}
	for key := range next.Edges {
		if _, ok := old.Edges[key]; !ok {
			return true
		}
	}
	return false
}

// ComputeDiff lists the elements of next whose attributes differ from old.
func ComputeDiff(old *GraphSnapshot, next *GraphData) *GraphDiff {
	diff := &GraphDiff{
		ModifiedNodes: make([]GraphNode, 0),
		ModifiedEdges: make([]GraphEdge, 0),
		Physics:       next.Physics,
	}

	for _, node := range next.Nodes {
		if prev, ok := old.Nodes[node.ID]; !ok || prev != node {
			diff.ModifiedNodes = append(diff.ModifiedNodes, node)
		}
	}
	for _, edge := range next.Edges {
		if prev, ok := old.Edges[edge.ID]; !ok || prev != edge {
			diff.ModifiedEdges = append(diff.ModifiedEdges, edge)
		}
	}
	return diff
}

// Reconciler decides between a full rebuild and an in-place update of the
// render surface and applies the decision.
type Reconciler struct {
	surface Surface
	onClick ClickFunc
	prev    *GraphSnapshot
	observe func(Decision)
}

// NewReconciler creates a reconciler for surface. onClick is bound to the
// surface on every rebuild.
func NewReconciler(surface Surface, onClick ClickFunc) *Reconciler {
	return &Reconciler{
		surface: surface,
		onClick: onClick,
	}
}

// OnDecision registers a callback invoked after each reconcile.
func (r *Reconciler) OnDecision(fn func(Decision)) {
	r.observe = fn
}

// Reconcile pushes graph to the surface.
func (r *Reconciler) Reconcile(graph *GraphData) Decision {
	next := CreateSnapshot(graph)

	decision := DecisionUpdate
	if IsStructural(r.prev, next) {
		decision = DecisionRebuild
	}

	switch decision {
	case DecisionRebuild:
		logging.Debug("rebuilding surface", "nodes", next.NodeCount, "edges", next.EdgeCount)
		r.surface.Rebuild(graph, r.onClick)
	case DecisionUpdate:
		diff := ComputeDiff(r.prev, graph)
		logging.Debug("updating surface in place", "modifiedNodes", len(diff.ModifiedNodes), "modifiedEdges", len(diff.ModifiedEdges))
		if !diff.Empty() {
			r.surface.Update(diff)
		}
	}

	r.prev = next
	if r.observe != nil {
		r.observe(decision)
	}
	return decision
}

// Reset forgets the previous snapshot so the next reconcile rebuilds.
func (r *Reconciler) Reset() {
	r.prev = nil
}

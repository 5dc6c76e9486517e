package lens

import (
	"sync"

	"github.com/ritzau/trust-graph/pkg/logging"
	"github.com/ritzau/trust-graph/pkg/pubsub"
)

// ClickFunc receives the id of a clicked node.
type ClickFunc func(nodeID string)

// Surface is a render target for the graph.
type Surface interface {
	// Rebuild discards all elements, recreates them from graph and binds onClick.
	Rebuild(graph *GraphData, onClick ClickFunc)

	// Update patches existing elements without recreating them.
	Update(diff *GraphDiff)
}

// Element is a live node or edge on a MemorySurface.
type Element struct {
	ID          string
	Label       string
	Title       string
	Color       string
	BorderWidth float64
	Size        int
}

// MemorySurface keeps elements in memory. Element pointers stay stable across
// updates and are replaced on rebuild.
type MemorySurface struct {
	mu       sync.Mutex
	nodes    map[string]*Element
	edges    map[string]*Element
	onClick  ClickFunc
	rebuilds int
	updates  int
}

// NewMemorySurface creates an empty surface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{
		nodes: make(map[string]*Element),
		edges: make(map[string]*Element),
	}
}

func (s *MemorySurface) Rebuild(graph *GraphData, onClick ClickFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[string]*Element, len(graph.Nodes))
	for _, n := range graph.Nodes {
		s.nodes[n.ID] = &Element{ID: n.ID, Label: n.Label, Title: n.Title, Color: n.Color, BorderWidth: n.BorderWidth, Size: n.Size}
	}
	s.edges = make(map[string]*Element, len(graph.Edges))
	for _, e := range graph.Edges {
		s.edges[e.ID] = &Element{ID: e.ID, Label: e.Label, Color: e.Color}
	}
	s.onClick = onClick
	s.rebuilds++
}

func (s *MemorySurface) Update(diff *GraphDiff) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range diff.ModifiedNodes {
		if el, ok := s.nodes[n.ID]; ok {
			el.Label = n.Label
			el.Title = n.Title
			el.Color = n.Color
			el.BorderWidth = n.BorderWidth
			el.Size = n.Size
		}
	}
	for _, e := range diff.ModifiedEdges {
		if el, ok := s.edges[e.ID]; ok {
			el.Label = e.Label
			el.Color = e.Color
		}
	}
	s.updates++
}

// Node returns the live element for a node.
func (s *MemorySurface) Node(id string) *Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodes[id]
}

// Edge returns the live element for the edge from source to target.
func (s *MemorySurface) Edge(source, target string) *Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edges[edgeKey(source, target)]
}

// Rebuilds returns how often the surface was rebuilt.
func (s *MemorySurface) Rebuilds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuilds
}

// Updates returns how often the surface was patched.
func (s *MemorySurface) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// Click simulates a click on a node. It returns false if no handler is bound.
func (s *MemorySurface) Click(id string) bool {
	s.mu.Lock()
	onClick := s.onClick
	s.mu.Unlock()

	if onClick == nil {
		return false
	}
	onClick(id)
	return true
}

// ViewTopic is the pub/sub topic carrying render events.
const ViewTopic = "view"

// BroadcastSurface streams rebuild and update events to subscribed browsers.
// Clicks reported back by a browser are routed to the handler bound on the
// last rebuild.
type BroadcastSurface struct {
	publisher pubsub.Publisher
	mu        sync.Mutex
	onClick   ClickFunc
}

// NewBroadcastSurface creates a surface publishing on publisher.
func NewBroadcastSurface(publisher pubsub.Publisher) *BroadcastSurface {
	return &BroadcastSurface{publisher: publisher}
}

func (s *BroadcastSurface) Rebuild(graph *GraphData, onClick ClickFunc) {
	s.mu.Lock()
	s.onClick = onClick
	s.mu.Unlock()

	if err := s.publisher.Publish(ViewTopic, "rebuild", graph); err != nil {
		logging.Warn("failed to publish rebuild", "error", err)
	}
}

func (s *BroadcastSurface) Update(diff *GraphDiff) {
	if err := s.publisher.Publish(ViewTopic, "update", diff); err != nil {
		logging.Warn("failed to publish update", "error", err)
	}
}

// Click routes a browser click to the bound handler.
func (s *BroadcastSurface) Click(id string) bool {
	s.mu.Lock()
	onClick := s.onClick
	s.mu.Unlock()

	if onClick == nil {
		return false
	}
	onClick(id)
	return true
}

package lens

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ritzau/trust-graph/pkg/logging"
	"github.com/ritzau/trust-graph/pkg/trust"
)

const (
	// NeutralColor is used for a zero net score and for unscored nodes.
	NeutralColor = "rgba(200, 200, 200, 0.8)"

	// ReferenceColor marks the current reference node.
	ReferenceColor = "rgba(40, 110, 220, 0.9)"

	positiveScale = 180
	negativeScale = 220
)

// ScoreLookup resolves the score of a node relative to the current reference.
type ScoreLookup interface {
	Lookup(node string) (trust.Score, bool)
}

// EdgeColor maps a net score to a color. Magnitudes above 1 saturate.
func EdgeColor(net float64) string {
	switch {
	case net > 0:
		return fmt.Sprintf("rgba(0, %d, 0, 0.8)", channel(net, positiveScale))
	case net < 0:
		return fmt.Sprintf("rgba(%d, 0, 0, 0.8)", channel(-net, negativeScale))
	default:
		// zero, negative zero and NaN
		return NeutralColor
	}
}

func channel(magnitude float64, scale float64) int {
	return int(math.Round(math.Min(magnitude, 1) * scale))
}

// RenderGraph builds the render model for the given edges. Nodes follow the
// order of nodes, edges keep insertion order. scores may be nil when no
// reference node is set.
func RenderGraph(nodes []string, edges []trust.Edge, scores ScoreLookup, reference string, opts Options) *GraphData {
	graph := &GraphData{
		Nodes:   make([]GraphNode, 0, len(nodes)),
		Edges:   make([]GraphEdge, 0, len(edges)),
		Physics: opts.Physics,
	}

	scored := 0
	for _, id := range nodes {
		node := renderNode(id, scores, reference, opts)
		if node.Scored {
			scored++
		}
		graph.Nodes = append(graph.Nodes, node)
	}

	for _, e := range edges {
		graph.Edges = append(graph.Edges, GraphEdge{
			ID:       edgeKey(e.Source, e.Target),
			Source:   e.Source,
			Target:   e.Target,
			Label:    edgeLabel(e),
			Color:    EdgeColor(e.Net()),
			NetScore: e.Net(),
		})
	}

	logging.Trace("rendered graph", "nodes", len(graph.Nodes), "edges", len(graph.Edges), "scored", scored, "reference", reference)
	return graph
}

func renderNode(id string, scores ScoreLookup, reference string, opts Options) GraphNode {
	node := GraphNode{
		ID:          id,
		Label:       id,
		Color:       NeutralColor,
		BorderWidth: opts.DefaultBorderWidth,
		Size:        opts.NodeSize,
		Reference:   id == reference,
	}

	if scores != nil {
		if score, ok := scores.Lookup(id); ok {
			node.Scored = true
			node.Label = fmt.Sprintf("%s (%.2f)", id, score.Net)
			node.Title = Tooltip(score)
			node.Color = EdgeColor(score.Net)
			node.BorderWidth = math.Max(opts.MinScoredBorder, math.Abs(score.Net)*opts.BorderScale)
		}
	}

	if node.Reference {
		node.Color = ReferenceColor
		if node.Title == "" {
			node.Title = "Reference node"
		}
	}
	return node
}

// Tooltip renders a score for display.
func Tooltip(s trust.Score) string {
	return fmt.Sprintf("Positive: %.2f\nNegative: %.2f\nNet: %.2f", s.Positive, s.Negative, s.Net)
}

func edgeLabel(e trust.Edge) string {
	return "+" + formatWeight(e.PositiveWeight) + ", -" + formatWeight(e.NegativeWeight)
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// edgeKey identifies the edge from source to target. Both ids are quoted, so
// no choice of node ids can make two edges share a key.
func edgeKey(source, target string) string {
	return strconv.Quote(source) + "->" + strconv.Quote(target)
}

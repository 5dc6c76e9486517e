package trust

// Edge is a directed trust statement from Source to Target.
type Edge struct {
	Source         string  `json:"source"`
	Target         string  `json:"target"`
	PositiveWeight float64 `json:"positiveWeight"`
	NegativeWeight float64 `json:"negativeWeight"`
}

// Net returns the raw net weight of the edge.
func (e Edge) Net() float64 {
	return e.PositiveWeight - e.NegativeWeight
}

// Score is the trust a reference node places in another node.
type Score struct {
	Positive float64 `json:"positiveScore" yaml:"positive"`
	Negative float64 `json:"negativeScore" yaml:"negative"`
	Net      float64 `json:"netScore" yaml:"net"`
}

// NodeScore pairs a node with its score.
type NodeScore struct {
	Node  string `json:"node" yaml:"node"`
	Score `yaml:",inline"`
}

// Scores is the result of a trust computation in the engine's iteration order.
type Scores []NodeScore

// Lookup returns the score for node, if present.
func (s Scores) Lookup(node string) (Score, bool) {
	for _, ns := range s {
		if ns.Node == node {
			return ns.Score, true
		}
	}
	return Score{}, false
}

// Engine computes transitive trust over a set of weighted edges.
// Implementations must keep Edges in insertion order.
type Engine interface {
	// AddEdge records an edge. Callers are responsible for deduplication.
	AddEdge(source, target string, positiveWeight, negativeWeight float64)

	// Edges returns all edges in insertion order.
	Edges() []Edge

	// Nodes returns every edge endpoint once, in first-seen order.
	Nodes() []string

	// ComputeTrustScores returns the scores of all nodes reachable from reference.
	ComputeTrustScores(reference string) Scores
}

// Factory creates an empty engine.
type Factory func() Engine

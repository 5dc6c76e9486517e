package trust

// StubEngine is an Engine for tests. It stores edges like a real engine but
// answers ComputeTrustScores from canned results.
type StubEngine struct {
	MockScores map[string]Scores
	Calls      []string

	edges []Edge
	nodes []string
	seen  map[string]bool
}

// NewStubEngine creates a stub that answers with the given scores per reference.
func NewStubEngine(scores map[string]Scores) *StubEngine {
	return &StubEngine{
		MockScores: scores,
		seen:       make(map[string]bool),
	}
}

func (s *StubEngine) AddEdge(source, target string, positiveWeight, negativeWeight float64) {
	s.edges = append(s.edges, Edge{Source: source, Target: target, PositiveWeight: positiveWeight, NegativeWeight: negativeWeight})
	for _, n := range []string{source, target} {
		if !s.seen[n] {
			s.seen[n] = true
			s.nodes = append(s.nodes, n)
		}
	}
}

func (s *StubEngine) Edges() []Edge {
	return append([]Edge(nil), s.edges...)
}

func (s *StubEngine) Nodes() []string {
	return append([]string(nil), s.nodes...)
}

func (s *StubEngine) ComputeTrustScores(reference string) Scores {
	s.Calls = append(s.Calls, reference)
	return append(Scores(nil), s.MockScores[reference]...)
}

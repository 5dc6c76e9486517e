package scores

import (
	"errors"
	"sort"

	"github.com/ritzau/trust-graph/pkg/logging"
	"github.com/ritzau/trust-graph/pkg/trust"
)

// ErrNoReference is returned when a projection is requested without a reference node.
var ErrNoReference = errors.New("no reference node set")

// Table is a score table ordered by net score, highest first.
type Table struct {
	Reference string       `json:"reference" yaml:"reference"`
	Entries   trust.Scores `json:"entries" yaml:"entries"`
}

// Lookup returns the score of node, if the table has one.
func (t *Table) Lookup(node string) (trust.Score, bool) {
	if t == nil {
		return trust.Score{}, false
	}
	return t.Entries.Lookup(node)
}

// Len returns the number of scored nodes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Entries)
}

// Project computes the scores seen from reference and orders them by net
// score descending. Ties keep the engine's order.
func Project(engine trust.Engine, reference string) (*Table, error) {
	if reference == "" {
		return nil, ErrNoReference
	}

	entries := engine.ComputeTrustScores(reference)
	sorted := make(trust.Scores, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Net > sorted[j].Net
	})

	logging.Debug("projected scores", "reference", reference, "count", len(sorted))

	return &Table{
		Reference: reference,
		Entries:   sorted,
	}, nil
}

// Package session keeps the trust graph, the reference node, the score table
// and the render surface consistent with each other.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ritzau/trust-graph/pkg/csvio"
	"github.com/ritzau/trust-graph/pkg/cycles"
	"github.com/ritzau/trust-graph/pkg/lens"
	"github.com/ritzau/trust-graph/pkg/logging"
	"github.com/ritzau/trust-graph/pkg/metrics"
	"github.com/ritzau/trust-graph/pkg/model"
	"github.com/ritzau/trust-graph/pkg/notify"
	"github.com/ritzau/trust-graph/pkg/pubsub"
	"github.com/ritzau/trust-graph/pkg/scores"
	"github.com/ritzau/trust-graph/pkg/trust"
)

// StatusTopic carries a pubsub.GraphStatus after every change.
const StatusTopic = "graph_status"

// Options configure a Session. Only Surface is required.
type Options struct {
	Engine    trust.Factory
	Surface   lens.Surface
	Notifier  *notify.Notifier
	Publisher pubsub.Publisher
	Metrics   *metrics.Collector
	Lens      lens.Options
	Reference string
}

// Session is the single owner of the live graph. All operations are
// serialized: a score computation never observes a graph mid-edit.
type Session struct {
	mu         sync.Mutex
	newEngine  trust.Factory
	graph      *model.Graph
	reference  string
	table      *scores.Table
	view       *lens.GraphData
	decision   lens.Decision
	reconciler *lens.Reconciler
	notifier   *notify.Notifier
	publisher  pubsub.Publisher
	metrics    *metrics.Collector
	lensOpts   lens.Options
}

// State is a consistent copy of the session.
type State struct {
	Version      uint64              `json:"version"`
	Reference    string              `json:"reference"`
	Nodes        []string            `json:"nodes"`
	Edges        []trust.Edge        `json:"edges"`
	Scores       *scores.Table       `json:"scores"`
	View         *lens.GraphData     `json:"view"`
	Decision     string              `json:"decision"`
	Cycles       []cycles.Cycle      `json:"cycles"`
	Notification notify.Notification `json:"notification"`
}

// New creates a session with an empty graph.
func New(opts Options) *Session {
	if opts.Engine == nil {
		opts.Engine = trust.NewEngine
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.New(notify.DefaultLifetime, opts.Publisher)
	}
	if opts.Lens == (lens.Options{}) {
		opts.Lens = lens.DefaultOptions()
	}

	s := &Session{
		newEngine: opts.Engine,
		graph:     model.NewGraph(opts.Engine()),
		reference: opts.Reference,
		notifier:  opts.Notifier,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		lensOpts:  opts.Lens,
	}

	s.reconciler = lens.NewReconciler(opts.Surface, func(nodeID string) {
		s.ClickNode(context.Background(), nodeID)
	})
	if s.metrics != nil {
		s.reconciler.OnDecision(func(d lens.Decision) {
			s.metrics.Reconciles.WithLabelValues(d.String()).Inc()
		})
	}
	return s
}

// Seed adds edges without raising notifications and renders the result.
// Duplicate edges are skipped.
func (s *Session) Seed(ctx context.Context, edges []trust.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range edges {
		if err := s.graph.AddEdge(e.Source, e.Target, e.PositiveWeight, e.NegativeWeight); err != nil {
			logging.WarnContext(ctx, "skipping seed edge", "source", e.Source, "target", e.Target, "error", err)
		}
	}
	if s.reference != "" {
		s.recompute(ctx)
	}
	s.refresh(ctx)
}

// AddEdge adds an edge to the live graph and recomputes scores when a
// reference node is set.
func (s *Session) AddEdge(ctx context.Context, source, target string, positiveWeight, negativeWeight float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.graph.AddEdge(source, target, positiveWeight, negativeWeight); err != nil {
		s.countEdit("rejected")
		switch {
		case errors.Is(err, model.ErrDuplicateEdge):
			s.notifier.Raise(fmt.Sprintf("Edge from %s to %s already exists", source, target))
		case errors.Is(err, model.ErrEmptyNode):
			s.notifier.Raise("Source and target nodes are required")
		}
		logging.InfoContext(ctx, "edge rejected", "source", source, "target", target, "error", err)
		return err
	}

	s.countEdit("added")
	logging.InfoContext(ctx, "edge added", "source", source, "target", target, "version", s.graph.Version())

	if s.reference != "" {
		s.recompute(ctx)
	}
	s.refresh(ctx)
	s.notifier.Raise(fmt.Sprintf("Edge from %s to %s added", source, target))
	return nil
}

// SetReference changes the reference node and recomputes scores. An empty id
// clears the score table.
func (s *Session) SetReference(ctx context.Context, nodeID string) (*scores.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reference = nodeID
	if nodeID == "" {
		s.table = nil
		s.refresh(ctx)
		return nil, scores.ErrNoReference
	}

	s.recompute(ctx)
	s.refresh(ctx)
	return s.table, nil
}

// Compute recomputes scores for the current reference node.
func (s *Session) Compute(ctx context.Context) (*scores.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reference == "" {
		return nil, scores.ErrNoReference
	}
	s.recompute(ctx)
	s.refresh(ctx)
	return s.table, nil
}

// ClickNode makes the clicked node the reference node.
func (s *Session) ClickNode(ctx context.Context, nodeID string) {
	if nodeID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reference = nodeID
	s.recompute(ctx)
	s.refresh(ctx)
	s.notifier.Raise(fmt.Sprintf("Reference node set to %s", nodeID))
}

// ExportCSV renders the live graph as CSV.
func (s *Session) ExportCSV(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := csvio.Export(s.graph.Edges())
	logging.InfoContext(ctx, "exported graph", "edges", s.graph.Len())
	s.notifier.Raise("CSV file downloaded successfully")
	return out
}

// ImportCSV replaces the live graph with the graph parsed from text. On
// failure nothing but the notification changes.
func (s *Session) ImportCSV(ctx context.Context, text string) (*csvio.Result, error) {
	// Parsing builds a separate graph and does not need the lock
	result, err := csvio.Parse(text, s.newEngine)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.countImport("failed")
		logging.WarnContext(ctx, "import failed", "error", err)
		s.notifier.Raise(csvio.Message(err))
		return nil, err
	}

	s.graph = result.Graph
	s.reconciler.Reset()
	s.countImport("ok")

	switch {
	case s.reference != "" && s.graph.HasNode(s.reference):
		s.recompute(ctx)
	case s.graph.Len() > 0:
		s.reference = result.FirstNode
		s.recompute(ctx)
	}

	logging.InfoContext(ctx, "imported graph",
		"accepted", result.Accepted,
		"skipped", result.Skipped,
		"reference", s.reference,
	)

	s.refresh(ctx)
	s.notifier.Raise("Graph successfully imported from CSV")
	return result, nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Version:      s.graph.Version(),
		Reference:    s.reference,
		Nodes:        s.graph.Nodes(),
		Edges:        s.graph.Edges(),
		Scores:       s.table,
		View:         s.view,
		Decision:     s.decision.String(),
		Cycles:       cycles.FindTrustCycles(s.graph.Edges()),
		Notification: s.notifier.Current(),
	}
	return state
}

// Reference returns the current reference node.
func (s *Session) Reference() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reference
}

// Scores returns the current score table, nil if none has been computed.
func (s *Session) Scores() *scores.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// recompute must be called with s.mu held and a non-empty reference.
func (s *Session) recompute(ctx context.Context) {
	table, err := scores.Project(s.graph.Engine(), s.reference)
	if err != nil {
		logging.ErrorContext(ctx, "score projection failed", "reference", s.reference, "error", err)
		return
	}
	s.table = table
	if s.metrics != nil {
		s.metrics.Projections.Inc()
	}
	logging.DebugContext(ctx, "scores recomputed", "reference", s.reference, "entries", table.Len())
}

// refresh must be called with s.mu held.
func (s *Session) refresh(ctx context.Context) {
	var lookup lens.ScoreLookup
	if s.table != nil {
		lookup = s.table
	}

	s.view = lens.RenderGraph(s.graph.Nodes(), s.graph.Edges(), lookup, s.reference, s.lensOpts)
	s.decision = s.reconciler.Reconcile(s.view)

	if s.metrics != nil {
		s.metrics.GraphEdges.Set(float64(s.graph.Len()))
	}

	if s.publisher != nil {
		status := pubsub.GraphStatus{
			Version:   s.graph.Version(),
			Reference: s.reference,
			NodeCount: len(s.view.Nodes),
			EdgeCount: len(s.view.Edges),
			Scored:    s.table.Len(),
			Decision:  s.decision.String(),
		}
		if err := s.publisher.Publish(StatusTopic, "changed", status); err != nil {
			logging.WarnContext(ctx, "failed to publish graph status", "error", err)
		}
	}
}

func (s *Session) countEdit(result string) {
	if s.metrics != nil {
		s.metrics.Edits.WithLabelValues(result).Inc()
	}
}

func (s *Session) countImport(result string) {
	if s.metrics != nil {
		s.metrics.Imports.WithLabelValues(result).Inc()
	}
}

package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/ritzau/trust-graph/pkg/cycles"
	"github.com/ritzau/trust-graph/pkg/scores"
)

// Report is the YAML form of a score table.
type Report struct {
	Reference string         `yaml:"reference"`
	Edges     int            `yaml:"edges"`
	Nodes     int            `yaml:"nodes"`
	Scores    []ReportEntry  `yaml:"scores"`
	Cycles    []cycles.Cycle `yaml:"cycles,omitempty"`
}

// ReportEntry is one scored node.
type ReportEntry struct {
	Node     string  `yaml:"node"`
	Positive float64 `yaml:"positive"`
	Negative float64 `yaml:"negative"`
	Net      float64 `yaml:"net"`
}

// NewReport converts a score table into a Report.
func NewReport(table *scores.Table, nodes, edges int) Report {
	report := Report{
		Nodes:  nodes,
		Edges:  edges,
		Scores: make([]ReportEntry, 0, table.Len()),
	}
	if table == nil {
		return report
	}

	report.Reference = table.Reference
	for _, entry := range table.Entries {
		report.Scores = append(report.Scores, ReportEntry{
			Node:     entry.Node,
			Positive: entry.Positive,
			Negative: entry.Negative,
			Net:      entry.Net,
		})
	}
	return report
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, report Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}
	return enc.Close()
}

// PrintScoreReport prints the score table with colors
func PrintScoreReport(w io.Writer, report Report) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Trust Graph - Score Report")
	bold.Fprintln(w, "==========================")
	fmt.Fprintf(w, "Graph: %d nodes, %d edges\n", report.Nodes, report.Edges)

	if report.Reference == "" {
		yellow.Fprintln(w, "No reference node set")
		return
	}
	cyan.Fprintf(w, "Reference: %s\n", report.Reference)
	fmt.Fprintln(w)

	if len(report.Scores) == 0 {
		yellow.Fprintln(w, "No node receives trust from the reference node")
		return
	}

	bold.Fprintf(w, "%-20s %10s %10s %10s\n", "NODE", "POSITIVE", "NEGATIVE", "NET")
	trusted, distrusted := 0, 0
	for _, entry := range report.Scores {
		net := yellow
		switch {
		case entry.Net > 0:
			net = green
			trusted++
		case entry.Net < 0:
			net = red
			distrusted++
		}
		fmt.Fprintf(w, "%-20s %10.4f %10.4f ", entry.Node, entry.Positive, entry.Negative)
		net.Fprintf(w, "%10.4f\n", entry.Net)
	}
	fmt.Fprintln(w)

	if len(report.Cycles) > 0 {
		yellow.Fprintln(w, "TRUST CYCLES:")
		for _, c := range report.Cycles {
			cyan.Fprintf(w, "  %s\n", strings.Join(c.Nodes, " <-> "))
		}
		fmt.Fprintln(w)
	}

	summary := green
	if distrusted > 0 {
		summary = red
	}
	summary.Fprintf(w, "Summary: %d scored, %d trusted, %d distrusted\n", len(report.Scores), trusted, distrusted)
}

// Package csvio reads and writes trust graphs as flat CSV edge lists.
package csvio

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ritzau/trust-graph/pkg/model"
	"github.com/ritzau/trust-graph/pkg/trust"
)

const (
	// FileName is the name offered for exported graphs.
	FileName = "trust_graph_edges.csv"

	// Header is the exact first line of an exported file.
	Header = "Source,Target,PositiveWeight,NegativeWeight"

	// ContentType is the media type of exported files.
	ContentType = "text/csv;charset=utf-8;"
)

var (
	// ErrEmptyContent is returned when there is nothing to import.
	ErrEmptyContent = errors.New("empty file content")

	// ErrInvalidHeader is the sentinel wrapped by InvalidHeaderError.
	ErrInvalidHeader = errors.New("invalid CSV header")
)

var requiredColumns = []string{"Source", "Target", "PositiveWeight", "NegativeWeight"}

// InvalidHeaderError lists the required columns missing from a header.
type InvalidHeaderError struct {
	Missing []string
}

func (e *InvalidHeaderError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrInvalidHeader, strings.Join(e.Missing, ", "))
}

func (e *InvalidHeaderError) Unwrap() error {
	return ErrInvalidHeader
}

// Export renders edges in insertion order. Lines are joined with "\n" and
// there is no trailing newline.
func Export(edges []trust.Edge) string {
	var b strings.Builder
	b.WriteString(Header)
	for _, e := range edges {
		b.WriteByte('\n')
		b.WriteString(e.Source)
		b.WriteByte(',')
		b.WriteString(e.Target)
		b.WriteByte(',')
		b.WriteString(formatWeight(e.PositiveWeight))
		b.WriteByte(',')
		b.WriteString(formatWeight(e.NegativeWeight))
	}
	return b.String()
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// Result is a parsed import.
type Result struct {
	Graph    *model.Graph
	Accepted int
	Skipped  int
	// FirstNode is the first node seen while scanning the imported edges.
	FirstNode string
}

// Parse builds a new graph from CSV text. The header must name all four
// columns, case-insensitively and in any position. Rows with fewer than four
// fields, non-numeric weights or an already imported (source, target) pair
// are skipped.
func Parse(text string, newEngine trust.Factory) (*Result, error) {
	// Only a truly empty file is unreadable; blank text fails the header check
	if text == "" {
		return nil, ErrEmptyContent
	}

	lines := strings.Split(text, "\n")
	if err := checkHeader(lines[0]); err != nil {
		return nil, err
	}

	result := &Result{Graph: model.NewGraph(newEngine())}
	for _, raw := range lines[1:] {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 4 {
			result.Skipped++
			continue
		}

		source := strings.TrimSpace(fields[0])
		target := strings.TrimSpace(fields[1])
		positive, perr := parseWeight(fields[2])
		negative, nerr := parseWeight(fields[3])
		if perr != nil || nerr != nil {
			result.Skipped++
			continue
		}

		if err := result.Graph.AddEdge(source, target, positive, negative); err != nil {
			result.Skipped++
			continue
		}
		if result.FirstNode == "" {
			result.FirstNode = source
		}
		result.Accepted++
	}

	return result, nil
}

func parseWeight(field string) (float64, error) {
	w, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, fmt.Errorf("weight %q is not finite", field)
	}
	return w, nil
}

// Message turns an import error into operator-facing text.
func Message(err error) string {
	var headerErr *InvalidHeaderError
	switch {
	case errors.As(err, &headerErr):
		return "Invalid CSV format. Header must contain Source, Target, PositiveWeight, and NegativeWeight columns (missing: " +
			strings.Join(headerErr.Missing, ", ") + ")"
	case errors.Is(err, ErrEmptyContent):
		return "Failed to read file content"
	default:
		return "Error importing CSV file"
	}
}

func checkHeader(line string) error {
	header := strings.ToLower(strings.TrimSpace(line))

	missing := make([]string, 0)
	for _, column := range requiredColumns {
		if !strings.Contains(header, strings.ToLower(column)) {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return &InvalidHeaderError{Missing: missing}
	}
	return nil
}

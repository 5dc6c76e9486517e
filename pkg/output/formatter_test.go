package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ritzau/trust-graph/pkg/cycles"
	"github.com/ritzau/trust-graph/pkg/scores"
	"github.com/ritzau/trust-graph/pkg/trust"
)

func sampleTable() *scores.Table {
	return &scores.Table{
		Reference: "A",
		Entries: trust.Scores{
			{Node: "B", Score: trust.Score{Positive: 0.9, Net: 0.9}},
			{Node: "C", Score: trust.Score{Positive: 0.615, Negative: 0.2, Net: 0.415}},
			{Node: "D", Score: trust.Score{Negative: 0.5, Net: -0.5}},
		},
	}
}

func TestPrintScoreReport(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	PrintScoreReport(&buf, NewReport(sampleTable(), 4, 3))
	out := buf.String()

	assert.Contains(t, out, "Graph: 4 nodes, 3 edges")
	assert.Contains(t, out, "Reference: A")
	assert.Contains(t, out, "0.6150")
	assert.Contains(t, out, "-0.5000")
	assert.Contains(t, out, "Summary: 3 scored, 2 trusted, 1 distrusted")
	assert.NotContains(t, out, "TRUST CYCLES")

	// rows keep table order
	assert.Less(t, strings.Index(out, "B "), strings.Index(out, "D "))
}

func TestPrintScoreReportWithoutReference(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	PrintScoreReport(&buf, NewReport(nil, 2, 1))
	assert.Contains(t, buf.String(), "No reference node set")
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, NewReport(sampleTable(), 4, 3)))

	var decoded Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "A", decoded.Reference)
	require.Len(t, decoded.Scores, 3)
	assert.Equal(t, "C", decoded.Scores[1].Node)
	assert.InDelta(t, 0.415, decoded.Scores[1].Net, 1e-9)
}

func TestPrintScoreReportCycles(t *testing.T) {
	color.NoColor = true

	report := NewReport(sampleTable(), 4, 3)
	report.Cycles = []cycles.Cycle{{Nodes: []string{"C", "D", "E"}}}

	var buf bytes.Buffer
	PrintScoreReport(&buf, report)
	assert.Contains(t, buf.String(), "TRUST CYCLES:")
	assert.Contains(t, buf.String(), "C <-> D <-> E")
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ritzau/trust-graph/pkg/output"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScoresCommandYAML(t *testing.T) {
	path := writeCSV(t, "Source,Target,PositiveWeight,NegativeWeight\nA,B,0.9,0\nB,C,0.5,0\nA,C,0.3,0.2")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"scores", path, "--format", "yaml", "--reference", "A"})
	require.NoError(t, cmd.Execute())

	var report output.Report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "A", report.Reference)
	assert.Equal(t, 3, report.Edges)
	require.Len(t, report.Scores, 2)
	assert.Equal(t, "B", report.Scores[0].Node)
	assert.InDelta(t, 0.415, report.Scores[1].Net, 1e-9)
}

func TestScoresCommandFallsBackToFirstNode(t *testing.T) {
	color.NoColor = true
	path := writeCSV(t, "Source,Target,PositiveWeight,NegativeWeight\nX,Y,0.5,0")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"scores", "--input", path})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Reference: X")
	assert.Contains(t, out.String(), "Summary: 1 scored, 1 trusted, 0 distrusted")
}

func TestScoresCommandRejectsBadHeader(t *testing.T) {
	path := writeCSV(t, "From,To\nA,B")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"scores", path})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CSV header")
}

func TestScoresCommandRequiresInput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"scores"})
	assert.Error(t, cmd.Execute())
}

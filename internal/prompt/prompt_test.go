// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

func TestExtraction(t *testing.T) {
	got, err := Extraction("Build a chatbot.", "Architecture: 10 pts", "# Team A\nWe use RAG & <tools>.")
	require.NoError(t, err)

	assert.Contains(t, got, "## Assignment Statement\nBuild a chatbot.")
	assert.Contains(t, got, "## Grading Rubric\nArchitecture: 10 pts")
	// text/template does not escape, so the project text is verbatim.
	assert.Contains(t, got, "We use RAG & <tools>.")
	assert.Contains(t, got, `"technical_decisions"`)
	assert.Contains(t, got, `"identified_risks"`)
	assert.True(t, strings.HasSuffix(got, "Generate the JSON now:"))
}

func TestConsolidation(t *testing.T) {
	records := []types.ExtractionRecord{
		{"metadata": map[string]any{"domain": "legal"}, "_metadata": map[string]any{"project_id": "team-a"}},
		{"metadata": map[string]any{"domain": "health"}, "_metadata": map[string]any{"project_id": "team-b"}},
	}

	got, err := Consolidation("task", "rubric", records)
	require.NoError(t, err)

	assert.Contains(t, got, "## Data From 2 Analyzed Projects")
	assert.Contains(t, got, `"total_projects": 2,`)
	// Keys are sorted, so _metadata precedes metadata.
	assert.Less(t, strings.Index(got, `"_metadata"`), strings.Index(got, `"metadata"`))
	assert.Contains(t, got, `"project_id": "team-b"`)
}

func TestConsolidation_Deterministic(t *testing.T) {
	records := []types.ExtractionRecord{{"b": 1, "a": []any{"x", "y"}, "c": map[string]any{"z": 1, "y": 2}}}

	first, err := Consolidation("t", "r", records)
	require.NoError(t, err)
	second, err := Consolidation("t", "r", records)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReport(t *testing.T) {
	a := types.ConsolidatedAnalysis{
		Batch:        "entrega2",
		ProjectCount: 1,
		Projects:     []string{"team-a"},
		Patterns:     json.RawMessage(`{"key_insights":["x"]}`),
	}

	got, err := Report(a)
	require.NoError(t, err)
	assert.Contains(t, got, `grading batch "entrega2"`)
	assert.Contains(t, got, "# Analysis Report - entrega2")
	assert.Contains(t, got, `"key_insights"`)
}

func TestGradesReport(t *testing.T) {
	got, err := GradesReport("entrega2", map[string]any{"mean": 81.5})
	require.NoError(t, err)
	assert.Contains(t, got, `"mean": 81.5`)
	assert.Contains(t, got, "# Grades vs. Automated Analysis - entrega2")
}

func TestIndentJSON_NoHTMLEscape(t *testing.T) {
	got, err := indentJSON(map[string]string{"k": "<a & b>"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"k\": \"<a & b>\"\n}", got)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

func sampleEntries() []types.DecisionEntry {
	return []types.DecisionEntry{
		{Project: "team-a", Domain: "legal", Category: types.CategoryTechnical, Type: "architecture", Decision: "RAG"},
		{Project: "team-a", Domain: "legal", Category: types.CategoryBusiness, Type: "target_users", Decision: "lawyers, clerks"},
		{Project: "team-b", Domain: "health", Category: types.CategoryRisk, Type: "ethical", Decision: "Bias | Mitigation: audits, \"red team\""},
	}
}

// --- WriteCSV ---

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleEntries()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus one row per entry")
	assert.Equal(t, []string{"Project", "Domain", "Category", "Type", "Decision"}, rows[0])
	assert.Equal(t, []string{"team-a", "legal", "Technical", "architecture", "RAG"}, rows[1])
	assert.Equal(t, []string{"team-a", "legal", "Business", "target_users", "lawyers, clerks"}, rows[2])
	assert.Equal(t, `Bias | Mitigation: audits, "red team"`, rows[3][4])
}

func TestWriteCSV_Empty(t *testing.T) {
	got, err := CSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "Project,Domain,Category,Type,Decision\n", string(got))
}

// --- Markdown ---

func TestMarkdown(t *testing.T) {
	a := types.ConsolidatedAnalysis{
		Batch:        "entrega2",
		ProjectCount: 2,
		Projects:     []string{"team-a", "team-b"},
		Patterns: json.RawMessage(`{
			"overall_pattern": "RAG dominates",
			"key_insights": ["Few projects measure latency", {"gap": "testing", "frequency": 3}],
			"domains": {"legal": 1, "health": 1},
			"unknown": null
		}`),
		Decisions: sampleEntries(),
	}

	got, err := Markdown(a)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "# Executive Report - entrega2\n"))
	assert.Contains(t, got, "- **Projects analyzed**: 2\n")
	assert.Contains(t, got, "- **Decision entries**: 3\n")
	assert.Contains(t, got, "## Projects\n\n- team-a\n- team-b\n")
	assert.Contains(t, got, "## Overall pattern\n\nRAG dominates\n")
	assert.Contains(t, got, "## Key insights\n\n- Few projects measure latency\n- frequency: 3; gap: testing\n")
	assert.Contains(t, got, "## Domains\n\n- **health**: 1\n- **legal**: 1\n")
	assert.Contains(t, got, "## Unknown\n\nN/A\n")
	assert.Contains(t, got, "| Technical | 1 |\n| Business | 1 |\n| Risk | 1 |\n")

	// Sections follow key order.
	assert.Less(t, strings.Index(got, "## Domains"), strings.Index(got, "## Key insights"))
}

func TestMarkdown_Deterministic(t *testing.T) {
	a := types.ConsolidatedAnalysis{
		Batch:    "b",
		Patterns: json.RawMessage(`{"z": {"b": 1, "a": 2}, "a": [1, 2.5, true]}`),
	}
	first, err := Markdown(a)
	require.NoError(t, err)
	second, err := Markdown(a)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "- 2.5\n- yes\n")
}

func TestMarkdown_NonObjectPatterns(t *testing.T) {
	got, err := Markdown(types.ConsolidatedAnalysis{Batch: "b", Patterns: json.RawMessage(`["x", "y"]`)})
	require.NoError(t, err)
	assert.Contains(t, got, "## Patterns\n\n- x\n- y\n")
}

func TestMarkdown_BadPatterns(t *testing.T) {
	_, err := Markdown(types.ConsolidatedAnalysis{Patterns: json.RawMessage(`{bad`)})
	assert.Error(t, err)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Key insights", title("key_insights"))
	assert.Equal(t, "X", title("x"))
	assert.Equal(t, "_", title("_"))
}

// --- files ---

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	require.NoError(t, WriteJSON(path, map[string]any{"b": "<x>", "a": 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": \"<x>\"\n}\n", string(data))

	// No temp files remain next to the output.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.md")
	require.NoError(t, WriteFile(path, []byte("one")))
	require.NoError(t, WriteFile(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

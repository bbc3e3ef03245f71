// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

// conventionBatch creates <root>/<id>/ with task, rubric and projects.
func conventionBatch(t *testing.T, root, id string) {
	t.Helper()
	dir := filepath.Join(root, id)
	touch(t, filepath.Join(dir, TaskFile))
	touch(t, filepath.Join(dir, RubricFile))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ProjectsDir), 0o755))
}

// --- Load ---

func TestLoad(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(`
batches_root: data
model:
  provider: anthropic
  name: claude-sonnet-4-5
  retry_delay: 500ms
batches:
  entrega1:
    task: docs/task1.md
    rubric: docs/rubric1.md
    projects: docs/projects1
    output: out/entrega1
    grades: docs/grades1.csv
`)))

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "data", s.Root)
	assert.Equal(t, types.ProviderAnthropic, s.Model.Provider)
	assert.Equal(t, "claude-sonnet-4-5", s.Model.Name)
	assert.Equal(t, 500*time.Millisecond, s.Model.RetryDelay)
	assert.Equal(t, types.DefaultCallDelay, s.Model.CallDelay)
	assert.Equal(t, types.DefaultMaxRetries, s.Model.MaxRetries)
	assert.InDelta(t, types.DefaultTemperature, s.Model.Temperature, 1e-9)
	require.Contains(t, s.Batches, "entrega1")
	assert.Equal(t, "docs/grades1.csv", s.Batches["entrega1"].Grades)
}

func TestLoadZeroConsolidationDelta(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader("model:\n  consolidation_delta: 0\n")))

	s, err := Load(v)
	require.NoError(t, err)
	require.NotNil(t, s.Model.ConsolidationDelta)
	assert.Zero(t, *s.Model.ConsolidationDelta)
	assert.Zero(t, s.Model.Delta())
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultRoot, s.Root)
	assert.Equal(t, types.DefaultProvider, s.Model.Provider)
	assert.Equal(t, types.DefaultRetryDelay, s.Model.RetryDelay)
	assert.InDelta(t, types.DefaultConsolidationDelta, s.Model.Delta(), 1e-9)
	assert.Empty(t, s.Batches)
}

// --- Resolve ---

func TestResolveConfigured(t *testing.T) {
	s := Settings{
		Root: "batches",
		Batches: map[string]types.BatchPaths{
			"entrega1": {Task: "a/task.md", Rubric: "a/rubric.md", Projects: "a/p", Output: "a/out"},
		},
	}
	cfg, err := Resolve("entrega1", s)
	require.NoError(t, err)
	assert.Equal(t, types.BatchConfig{
		ID:          "entrega1",
		TaskPath:    "a/task.md",
		RubricPath:  "a/rubric.md",
		ProjectsDir: "a/p",
		OutputDir:   "a/out",
		Model:       types.ModelConfig{}.WithDefaults(),
	}, cfg)
}

func TestResolveConvention(t *testing.T) {
	root := t.TempDir()
	conventionBatch(t, root, "entrega3")
	touch(t, filepath.Join(root, "entrega3", GradesFile))

	cfg, err := Resolve(" entrega3 ", Settings{Root: root})
	require.NoError(t, err)
	dir := filepath.Join(root, "entrega3")
	assert.Equal(t, "entrega3", cfg.ID)
	assert.Equal(t, filepath.Join(dir, TaskFile), cfg.TaskPath)
	assert.Equal(t, filepath.Join(dir, RubricFile), cfg.RubricPath)
	assert.Equal(t, filepath.Join(dir, ProjectsDir), cfg.ProjectsDir)
	assert.Equal(t, filepath.Join(dir, ResultsDir), cfg.OutputDir)
	assert.Equal(t, filepath.Join(dir, GradesFile), cfg.GradesCSV)
}

func TestResolveWithoutGrades(t *testing.T) {
	root := t.TempDir()
	conventionBatch(t, root, "b")
	cfg, err := Resolve("b", Settings{Root: root})
	require.NoError(t, err)
	assert.Empty(t, cfg.GradesCSV)
}

func TestResolveEmptyID(t *testing.T) {
	_, err := Resolve("  ", Settings{})
	assert.Error(t, err)
}

// --- Validate ---

func TestValidate(t *testing.T) {
	root := t.TempDir()
	conventionBatch(t, root, "b")
	base, err := Resolve("b", Settings{Root: root})
	require.NoError(t, err)
	base.APIKey = "key"

	tests := []struct {
		name   string
		mutate func(*types.BatchConfig)
		want   error
	}{
		{"valid", func(*types.BatchConfig) {}, nil},
		{"missing task", func(c *types.BatchConfig) { c.TaskPath = filepath.Join(root, "nope.md") }, ErrMissingInputFile},
		{"missing rubric", func(c *types.BatchConfig) { c.RubricPath = "" }, ErrMissingInputFile},
		{"projects is a file", func(c *types.BatchConfig) { c.ProjectsDir = c.TaskPath }, ErrMissingInputFile},
		{"missing grades csv", func(c *types.BatchConfig) { c.GradesCSV = filepath.Join(root, "g.csv") }, ErrMissingInputFile},
		{"missing key", func(c *types.BatchConfig) { c.APIKey = "" }, ErrMissingCredential},
		{"ollama without key", func(c *types.BatchConfig) {
			c.APIKey = ""
			c.Model.Provider = types.ProviderOllama
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestValidateCredentialMessage(t *testing.T) {
	root := t.TempDir()
	conventionBatch(t, root, "b")
	cfg, err := Resolve("b", Settings{Root: root})
	require.NoError(t, err)

	err = Validate(cfg)
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

// --- Prepare ---

func TestPrepare(t *testing.T) {
	out := filepath.Join(t.TempDir(), "results")
	p, err := Prepare(types.BatchConfig{OutputDir: out})
	require.NoError(t, err)

	for _, d := range []string{p.Extractions, p.Consolidated, p.Logs} {
		assert.DirExists(t, d)
	}
	assert.NoDirExists(t, p.Grades)
	assert.Equal(t, filepath.Join(out, types.RunSummaryFile), p.RunSummary)
	assert.Equal(t, filepath.Join(out, types.LedgerFile), p.Ledger)

	p, err = Prepare(types.BatchConfig{OutputDir: out, GradesCSV: "g.csv"})
	require.NoError(t, err)
	assert.DirExists(t, p.Grades)
}

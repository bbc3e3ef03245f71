// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch turns a batch identifier and the loaded configuration into
// a validated types.BatchConfig.
//
// A batch listed under "batches.<id>" in the config file uses the paths
// given there. Any other id falls back to the directory convention
// <batches_root>/<id>/{task.md,rubric.md,projects/,results/}, with an
// optional grades.csv next to them.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// Configuration-time errors. Both are fatal before any model call.
var (
	ErrMissingInputFile  = errors.New("missing input file")
	ErrMissingCredential = errors.New("missing credential")
)

// DefaultRoot is the directory holding one subdirectory per batch.
const DefaultRoot = "batches"

// Conventional file names inside a batch directory.
const (
	TaskFile    = "task.md"
	RubricFile  = "rubric.md"
	ProjectsDir = "projects"
	ResultsDir  = "results"
	GradesFile  = "grades.csv"
)

// Settings is the configuration-file view used to resolve batches.
type Settings struct {
	Root    string                      `mapstructure:"batches_root"`
	Batches map[string]types.BatchPaths `mapstructure:"batches"`
	Model   types.ModelConfig           `mapstructure:"model"`
}

// SetDefaults registers the configuration defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("batches_root", DefaultRoot)
	v.SetDefault("model.provider", string(types.DefaultProvider))
	v.SetDefault("model.name", types.DefaultModelName)
	v.SetDefault("model.temperature", types.DefaultTemperature)
	v.SetDefault("model.consolidation_delta", types.DefaultConsolidationDelta)
	v.SetDefault("model.max_retries", types.DefaultMaxRetries)
	v.SetDefault("model.retry_delay", types.DefaultRetryDelay)
	v.SetDefault("model.call_delay", types.DefaultCallDelay)
	v.SetDefault("model.max_output_tokens", types.DefaultMaxOutputTokens)
}

// Load decodes Settings from v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if s.Root == "" {
		s.Root = DefaultRoot
	}
	s.Model = s.Model.WithDefaults()
	return s, nil
}

// Resolve builds the configuration of batch id. It does not touch the
// filesystem except to detect a conventional grades.csv.
func Resolve(id string, s Settings) (types.BatchConfig, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.BatchConfig{}, fmt.Errorf("batch id is required")
	}

	cfg := types.BatchConfig{ID: id, Model: s.Model.WithDefaults()}
	if p, ok := s.Batches[id]; ok {
		cfg.TaskPath = p.Task
		cfg.RubricPath = p.Rubric
		cfg.ProjectsDir = p.Projects
		cfg.OutputDir = p.Output
		cfg.GradesCSV = p.Grades
	}

	root := s.Root
	if root == "" {
		root = DefaultRoot
	}
	dir := filepath.Join(root, id)
	if cfg.TaskPath == "" {
		cfg.TaskPath = filepath.Join(dir, TaskFile)
	}
	if cfg.RubricPath == "" {
		cfg.RubricPath = filepath.Join(dir, RubricFile)
	}
	if cfg.ProjectsDir == "" {
		cfg.ProjectsDir = filepath.Join(dir, ProjectsDir)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(dir, ResultsDir)
	}
	if cfg.GradesCSV == "" {
		if conv := filepath.Join(dir, GradesFile); fileExists(conv) {
			cfg.GradesCSV = conv
		}
	}
	return cfg, nil
}

// Validate checks that every input exists and that the provider
// credential is present. The error wraps ErrMissingInputFile or
// ErrMissingCredential.
func Validate(cfg types.BatchConfig) error {
	files := []struct{ label, path string }{
		{"task statement", cfg.TaskPath},
		{"rubric", cfg.RubricPath},
	}
	if cfg.GradesCSV != "" {
		files = append(files, struct{ label, path string }{"grades csv", cfg.GradesCSV})
	}
	for _, f := range files {
		if !fileExists(f.path) {
			return fmt.Errorf("%w: %s %s", ErrMissingInputFile, f.label, f.path)
		}
	}

	info, err := os.Stat(cfg.ProjectsDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: projects directory %s", ErrMissingInputFile, cfg.ProjectsDir)
	}

	if cfg.Model.Provider.NeedsAPIKey() && cfg.APIKey == "" {
		return fmt.Errorf("%w: set %s or write .secrets/%s",
			ErrMissingCredential, cfg.Model.Provider.KeyEnv(), cfg.Model.Provider.KeySecret())
	}
	return nil
}

// Paths are the output locations of one batch.
type Paths struct {
	Extractions  string
	Consolidated string
	Grades       string
	Logs         string
	RunSummary   string
	Ledger       string
}

// OutputPaths lays out the output directory of cfg.
func OutputPaths(cfg types.BatchConfig) Paths {
	return Paths{
		Extractions:  filepath.Join(cfg.OutputDir, types.ExtractionsDir),
		Consolidated: filepath.Join(cfg.OutputDir, types.ConsolidatedDir),
		Grades:       filepath.Join(cfg.OutputDir, types.GradesDir),
		Logs:         filepath.Join(cfg.OutputDir, types.LogsDir),
		RunSummary:   filepath.Join(cfg.OutputDir, types.RunSummaryFile),
		Ledger:       filepath.Join(cfg.OutputDir, types.LedgerFile),
	}
}

// Prepare creates the output directories of cfg.
func Prepare(cfg types.BatchConfig) (Paths, error) {
	p := OutputPaths(cfg)
	dirs := []string{p.Extractions, p.Consolidated, p.Logs}
	if cfg.GradesCSV != "" {
		dirs = append(dirs, p.Grades)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return p, fmt.Errorf("creating output directory: %w", err)
		}
	}
	return p, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the analysis phases for one batch: extraction,
// consolidation, the optional grades phase, the run summary and the run
// ledger. Each phase can also be run on its own.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/submission-analyzer/internal/batch"
	"github.com/pdiddy/submission-analyzer/internal/consolidate"
	"github.com/pdiddy/submission-analyzer/internal/documents"
	"github.com/pdiddy/submission-analyzer/internal/extract"
	"github.com/pdiddy/submission-analyzer/internal/grades"
	"github.com/pdiddy/submission-analyzer/internal/ledger"
	"github.com/pdiddy/submission-analyzer/internal/model"
	"github.com/pdiddy/submission-analyzer/internal/report"
	"github.com/pdiddy/submission-analyzer/internal/runlog"
	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// Errors that end a run after configuration succeeded.
var (
	ErrNoDocuments = errors.New("no project documents found")
	ErrNoSuccesses = errors.New("no project was extracted successfully")
)

// Requester obtains structured and free-text answers. *model.Client
// implements it.
type Requester interface {
	RequestStructured(ctx context.Context, prompt string, p model.Params) (json.RawMessage, error)
	RequestText(ctx context.Context, prompt string, p model.Params) (string, error)
}

// Deps are the collaborators of a run. Requester is required; the rest
// have defaults.
type Deps struct {
	Requester Requester
	Log       *runlog.Logger

	// Progress is called after every document of the extraction phase.
	Progress func(done, total int, projectID string)

	// Incremental skips documents whose record is newer than the source.
	Incremental bool

	Now   func() time.Time
	NewID func() string
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}

// Run executes every phase for cfg and returns the run summary. The
// summary is written to run_summary.json and recorded in the ledger once
// extraction has produced records, including when consolidation fails.
func Run(ctx context.Context, deps Deps, cfg types.BatchConfig) (types.RunSummary, error) {
	deps = deps.withDefaults()
	log := deps.Log
	paths, err := batch.Prepare(cfg)
	if err != nil {
		return types.RunSummary{}, err
	}

	summary := types.RunSummary{
		RunID:     deps.NewID(),
		Batch:     cfg.ID,
		Model:     cfg.Model.Name,
		StartedAt: deps.Now(),
		OutputDir: cfg.OutputDir,
		LogFile:   log.Path(),
		Succeeded: []string{},
		Failed:    []types.ProjectFailure{},
	}
	log.Info("run %s: batch %s with %s/%s", summary.RunID, cfg.ID, cfg.Model.Provider, cfg.Model.Name)

	ext, err := Extract(ctx, deps, cfg)
	if err != nil {
		return summary, err
	}
	summary.Total = ext.Total()
	summary.Succeeded = append(summary.Succeeded, ext.Succeeded...)
	summary.Skipped = ext.Skipped
	summary.Failed = append(summary.Failed, ext.Failed...)
	summary.SuccessRate = types.Rate(len(ext.Succeeded)+len(ext.Skipped), ext.Total())

	if len(ext.Succeeded)+len(ext.Skipped) == 0 {
		log.Error("no project was extracted; consolidation skipped")
		finish(ctx, deps, paths, &summary)
		return summary, ErrNoSuccesses
	}

	res, err := Consolidate(ctx, deps, cfg)
	if err != nil {
		log.Error("consolidation failed: %v", err)
		finish(ctx, deps, paths, &summary)
		return summary, err
	}
	summary.Consolidated = true
	log.Info("consolidated %d projects", res.Analysis.ProjectCount)

	if cfg.GradesCSV != "" {
		if _, err := Grades(ctx, deps, cfg); err != nil {
			log.Warn("grades phase failed: %v", err)
		} else {
			summary.GradesPhase = true
		}
	}

	finish(ctx, deps, paths, &summary)
	return summary, nil
}

// finish writes run_summary.json and records the run in the ledger. Both
// failures only warn.
func finish(ctx context.Context, deps Deps, paths batch.Paths, summary *types.RunSummary) {
	log := deps.Log
	summary.FinishedAt = deps.Now()

	if err := report.WriteJSON(paths.RunSummary, summary); err != nil {
		log.Warn("writing run summary: %v", err)
	} else {
		log.Info("saved %s", paths.RunSummary)
	}

	store, err := ledger.Open(paths.Ledger)
	if err != nil {
		log.Warn("run ledger unavailable: %v", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, *summary); err != nil {
		log.Warn("recording run in ledger: %v", err)
	}
}

// Extract runs the extraction phase alone.
func Extract(ctx context.Context, deps Deps, cfg types.BatchConfig) (extract.BatchSummary, error) {
	log := deps.Log
	paths := batch.OutputPaths(cfg)

	task, err := documents.ReadFile(cfg.TaskPath)
	if err != nil {
		return extract.BatchSummary{}, fmt.Errorf("%w: %v", batch.ErrMissingInputFile, err)
	}
	rubric, err := documents.ReadFile(cfg.RubricPath)
	if err != nil {
		return extract.BatchSummary{}, fmt.Errorf("%w: %v", batch.ErrMissingInputFile, err)
	}

	docs, err := documents.List(cfg.ProjectsDir)
	if err != nil {
		return extract.BatchSummary{}, err
	}
	if len(docs) == 0 {
		return extract.BatchSummary{}, fmt.Errorf("%w in %s", ErrNoDocuments, cfg.ProjectsDir)
	}
	log.Info("found %d project documents in %s", len(docs), cfg.ProjectsDir)

	return extract.ExtractAll(ctx, deps.Requester, extract.Input{
		Task:       task,
		Rubric:     rubric,
		Documents:  docs,
		RecordsDir: paths.Extractions,
		Params:     model.ParamsFor(cfg.Model, cfg.Model.Temperature),
	}, extract.Options{
		CallDelay:   cfg.Model.CallDelay,
		Incremental: deps.Incremental,
		Log:         log,
		Progress:    deps.Progress,
	})
}

// Consolidate runs the consolidation phase alone from the records on disk.
func Consolidate(ctx context.Context, deps Deps, cfg types.BatchConfig) (consolidate.Result, error) {
	paths := batch.OutputPaths(cfg)

	task, err := documents.ReadFile(cfg.TaskPath)
	if err != nil {
		return consolidate.Result{}, fmt.Errorf("%w: %v", batch.ErrMissingInputFile, err)
	}
	rubric, err := documents.ReadFile(cfg.RubricPath)
	if err != nil {
		return consolidate.Result{}, fmt.Errorf("%w: %v", batch.ErrMissingInputFile, err)
	}

	return consolidate.Run(ctx, deps.Requester, consolidate.Input{
		Batch:      cfg.ID,
		Task:       task,
		Rubric:     rubric,
		RecordsDir: paths.Extractions,
		OutputDir:  paths.Consolidated,
		Params:     model.ParamsFor(cfg.Model, consolidationTemperature(cfg.Model)),
		Narrative:  cfg.Model.NarrativeReport,
	}, deps.Log)
}

// Grades runs the grades phase alone. cfg.GradesCSV must be set.
func Grades(ctx context.Context, deps Deps, cfg types.BatchConfig) (grades.Result, error) {
	if cfg.GradesCSV == "" {
		return grades.Result{}, fmt.Errorf("%w: batch %s has no grades csv", batch.ErrMissingInputFile, cfg.ID)
	}
	paths := batch.OutputPaths(cfg)
	return grades.Run(ctx, deps.Requester, grades.Input{
		Batch:      cfg.ID,
		CSVPath:    cfg.GradesCSV,
		RecordsDir: paths.Extractions,
		OutputDir:  paths.Grades,
		Params:     model.ParamsFor(cfg.Model, consolidationTemperature(cfg.Model)),
	}, deps.Log)
}

func consolidationTemperature(m types.ModelConfig) float64 {
	return m.Temperature + m.Delta()
}

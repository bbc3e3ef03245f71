// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package consolidate runs the cross-project phase. It reads the
// extraction records from disk, asks the model for aggregate patterns,
// and writes the consolidated artifacts.
package consolidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/submission-analyzer/internal/model"
	"github.com/pdiddy/submission-analyzer/internal/prompt"
	"github.com/pdiddy/submission-analyzer/internal/report"
	"github.com/pdiddy/submission-analyzer/internal/runlog"
	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// Artifact file names under the consolidated output directory.
const (
	AnalysisFile  = "consolidated_analysis.json"
	DecisionsFile = "decisions.csv"
	ExecutiveFile = "executive_report.md"
	NarrativeFile = "narrative_report.md"
)

// ErrNoRecords is returned when there is nothing to consolidate.
var ErrNoRecords = errors.New("no extraction records to consolidate")

// Requester obtains structured and free-text answers. *model.Client
// implements it.
type Requester interface {
	RequestStructured(ctx context.Context, prompt string, p model.Params) (json.RawMessage, error)
	RequestText(ctx context.Context, prompt string, p model.Params) (string, error)
}

// Input is what the stage works on.
type Input struct {
	Batch  string
	Task   string
	Rubric string

	RecordsDir string
	OutputDir  string

	// Params are used as given; the caller applies the consolidation
	// temperature.
	Params model.Params

	// Narrative asks the model for an additional prose report.
	Narrative bool
}

// Result describes what the stage produced.
type Result struct {
	Analysis types.ConsolidatedAnalysis
	Files    []string

	// NarrativeErr is set when the optional narrative report failed.
	NarrativeErr error
}

// LoadRecords reads every extraction record in dir, sorted by file name.
func LoadRecords(dir string) ([]types.ExtractionRecord, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+types.ExtractionRecordSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	sort.Strings(matches)

	records := make([]types.ExtractionRecord, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
		}
		var rec types.ExtractionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
		}
		if rec.ProjectID() == "" {
			id := strings.TrimSuffix(filepath.Base(path), types.ExtractionRecordSuffix)
			rec.SetMetadata(types.RecordMetadata{ProjectID: id})
		}
		records = append(records, rec)
	}
	return records, nil
}

// Run consolidates the records in in.RecordsDir. Any model failure on the
// aggregate call is returned; the optional narrative report only warns.
func Run(ctx context.Context, req Requester, in Input, log model.Logger) (Result, error) {
	if log == nil {
		log = runlog.Discard()
	}

	records, err := LoadRecords(in.RecordsDir)
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return Result{}, ErrNoRecords
	}
	log.Info("consolidating %d extraction records", len(records))

	p, err := prompt.Consolidation(in.Task, in.Rubric, records)
	if err != nil {
		return Result{}, err
	}
	params := in.Params
	params.RequireObject = true
	patterns, err := req.RequestStructured(ctx, p, params)
	if err != nil {
		return Result{}, fmt.Errorf("consolidation request: %w", err)
	}

	analysis := types.ConsolidatedAnalysis{
		Batch:        in.Batch,
		ProjectCount: len(records),
		Projects:     projectIDs(records),
		Patterns:     patterns,
		Decisions:    Decisions(records),
	}

	res := Result{Analysis: analysis}
	if err := writeArtifacts(in.OutputDir, analysis, &res); err != nil {
		return res, err
	}

	if in.Narrative {
		if err := writeNarrative(ctx, req, in, analysis, &res); err != nil {
			log.Warn("narrative report skipped: %v", err)
			res.NarrativeErr = err
		}
	}

	for _, f := range res.Files {
		log.Info("saved %s", f)
	}
	return res, nil
}

func writeArtifacts(dir string, a types.ConsolidatedAnalysis, res *Result) error {
	analysisPath := filepath.Join(dir, AnalysisFile)
	if err := report.WriteJSON(analysisPath, a); err != nil {
		return err
	}
	res.Files = append(res.Files, analysisPath)

	csvData, err := report.CSV(a.Decisions)
	if err != nil {
		return err
	}
	csvPath := filepath.Join(dir, DecisionsFile)
	if err := report.WriteFile(csvPath, csvData); err != nil {
		return err
	}
	res.Files = append(res.Files, csvPath)

	md, err := report.Markdown(a)
	if err != nil {
		return err
	}
	mdPath := filepath.Join(dir, ExecutiveFile)
	if err := report.WriteFile(mdPath, []byte(md)); err != nil {
		return err
	}
	res.Files = append(res.Files, mdPath)
	return nil
}

func writeNarrative(ctx context.Context, req Requester, in Input, a types.ConsolidatedAnalysis, res *Result) error {
	p, err := prompt.Report(a)
	if err != nil {
		return err
	}
	params := in.Params
	params.RequireObject = false
	text, err := req.RequestText(ctx, p, params)
	if err != nil {
		return err
	}
	path := filepath.Join(in.OutputDir, NarrativeFile)
	if err := report.WriteFile(path, []byte(text+"\n")); err != nil {
		return err
	}
	res.Files = append(res.Files, path)
	return nil
}

// Decisions flattens the decision sections of every record into table
// rows: technical and business decisions one row per key (keys sorted,
// lists joined), identified risks one row per risk.
func Decisions(records []types.ExtractionRecord) []types.DecisionEntry {
	out := []types.DecisionEntry{}
	for _, rec := range records {
		project := rec.ProjectID()
		if project == "" {
			project = "unknown"
		}
		domain := rec.Domain()

		out = append(out, objectRows(rec, "technical_decisions", project, domain, types.CategoryTechnical)...)
		out = append(out, objectRows(rec, "business_decisions", project, domain, types.CategoryBusiness)...)

		risks, _ := rec["identified_risks"].([]any)
		for _, r := range risks {
			risk, ok := r.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, types.DecisionEntry{
				Project:  project,
				Domain:   domain,
				Category: types.CategoryRisk,
				Type:     field(risk, "category"),
				Decision: fmt.Sprintf("%s | Mitigation: %s", field(risk, "risk"), field(risk, "mitigation")),
			})
		}
	}
	return out
}

func objectRows(rec types.ExtractionRecord, key, project, domain string, cat types.DecisionCategory) []types.DecisionEntry {
	obj, ok := rec[key].(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]types.DecisionEntry, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, types.DecisionEntry{
			Project:  project,
			Domain:   domain,
			Category: cat,
			Type:     k,
			Decision: report.Inline(obj[k]),
		})
	}
	return rows
}

// field returns m[key] as text, or "N/A" when absent or empty.
func field(m map[string]any, key string) string {
	s := report.Inline(m[key])
	if s == "" {
		return "N/A"
	}
	return s
}

func projectIDs(records []types.ExtractionRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ProjectID())
	}
	return ids
}

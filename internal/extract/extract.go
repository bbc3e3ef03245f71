// Package extract runs the per-project phase: one model call per project
// document, one extraction record per success.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/submission-analyzer/internal/documents"
	"github.com/pdiddy/submission-analyzer/internal/model"
	"github.com/pdiddy/submission-analyzer/internal/prompt"
	"github.com/pdiddy/submission-analyzer/internal/report"
	"github.com/pdiddy/submission-analyzer/internal/runlog"
	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// Requester obtains a structured answer for a prompt. *model.Client
// implements it; tests supply a stub.
type Requester interface {
	RequestStructured(ctx context.Context, prompt string, p model.Params) (json.RawMessage, error)
}

// Input is what the stage works on.
type Input struct {
	Task      string
	Rubric    string
	Documents []documents.Document

	// RecordsDir receives <project-id>_extraction.json files.
	RecordsDir string

	Params model.Params
}

// Options tune how the stage runs. The zero value processes every
// document with no delay and no logging.
type Options struct {
	// CallDelay is the minimum spacing between consecutive model calls.
	CallDelay time.Duration

	// Incremental skips documents whose record is newer than the source.
	Incremental bool

	Log model.Logger

	// Progress is called after each document with the number handled so far.
	Progress func(done, total int, projectID string)
}

// BatchSummary holds the outcome of one extraction run.
type BatchSummary struct {
	Succeeded []string
	Skipped   []string
	Failed    []types.ProjectFailure
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return len(s.Succeeded) + len(s.Skipped) + len(s.Failed)
}

// HasFailures reports whether any project failed.
func (s BatchSummary) HasFailures() bool {
	return len(s.Failed) > 0
}

// RecordPath returns the record file for projectID under dir.
func RecordPath(dir, projectID string) string {
	return filepath.Join(dir, projectID+types.ExtractionRecordSuffix)
}

// ExtractAll processes in.Documents in order. A project that cannot be read,
// analyzed or written is logged and recorded in the summary; the loop moves
// on. Only context cancellation or an unusable output directory stops the
// run early, in which case the summary so far is returned with the error.
func ExtractAll(ctx context.Context, req Requester, in Input, opts Options) (BatchSummary, error) {
	log := opts.Log
	if log == nil {
		log = runlog.Discard()
	}
	if err := os.MkdirAll(in.RecordsDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating records directory: %w", err)
	}

	limit := rate.Inf
	if opts.CallDelay > 0 {
		limit = rate.Every(opts.CallDelay)
	}
	throttle := rate.NewLimiter(limit, 1)

	params := in.Params
	params.RequireObject = true

	var summary BatchSummary
	total := len(in.Documents)

	for i, doc := range in.Documents {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outPath := RecordPath(in.RecordsDir, doc.ID)

		if opts.Incremental {
			changed, err := hasChanged(doc.Path, outPath)
			if err == nil && !changed {
				log.Info("skipped %s (record is up to date)", doc.ID)
				summary.Skipped = append(summary.Skipped, doc.ID)
				progress(opts, i+1, total, doc.ID)
				continue
			}
		}

		log.Info("[%d/%d] extracting %s", i+1, total, doc.ID)

		err := extractOne(ctx, req, throttle, in, params, doc, outPath, log)
		switch {
		case err == nil:
			summary.Succeeded = append(summary.Succeeded, doc.ID)
		case ctx.Err() != nil:
			return summary, ctx.Err()
		default:
			log.Error("failed %s: %v", doc.ID, err)
			summary.Failed = append(summary.Failed, types.ProjectFailure{
				ProjectID: doc.ID,
				Reason:    failureReason(err),
			})
		}
		progress(opts, i+1, total, doc.ID)
	}

	log.Info("extraction finished: %d succeeded, %d skipped, %d failed",
		len(summary.Succeeded), len(summary.Skipped), len(summary.Failed))
	return summary, nil
}

func extractOne(ctx context.Context, req Requester, throttle *rate.Limiter, in Input, params model.Params, doc documents.Document, outPath string, log model.Logger) error {
	content, err := documents.ReadText(ctx, doc)
	if err != nil {
		return err
	}
	tokens := documents.EstimateTokens(content)
	log.Info("%s: %d characters, ~%d tokens", doc.ID, len(content), tokens)

	p, err := prompt.Extraction(in.Task, in.Rubric, content)
	if err != nil {
		return err
	}

	if err := throttle.Wait(ctx); err != nil {
		return err
	}
	raw, err := req.RequestStructured(ctx, p, params)
	if err != nil {
		return err
	}

	var rec types.ExtractionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	rec.SetMetadata(types.RecordMetadata{
		ProjectID:       doc.ID,
		SourceFile:      filepath.Base(doc.Path),
		Model:           params.Model,
		EstimatedTokens: tokens,
	})

	if err := report.WriteJSON(outPath, rec); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	log.Info("saved %s", outPath)
	return nil
}

// failureReason names the failure kind for the run summary.
func failureReason(err error) string {
	switch {
	case errors.Is(err, model.ErrAPIUnavailable):
		return "api unavailable"
	case errors.Is(err, model.ErrInvalidResponseFormat):
		return "invalid response format"
	case errors.Is(err, documents.ErrReadTimeout):
		return "document read timed out"
	default:
		return err.Error()
	}
}

func progress(opts Options, done, total int, id string) {
	if opts.Progress != nil {
		opts.Progress(done, total, id)
	}
}

// hasChanged reports whether the source is newer than the record. A
// missing record counts as changed.
func hasChanged(srcPath, outPath string) (bool, error) {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return false, fmt.Errorf("stat source %s: %w", srcPath, err)
	}

	outInfo, err := os.Stat(outPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat record %s: %w", outPath, err)
	}

	return srcInfo.ModTime().After(outInfo.ModTime()), nil
}

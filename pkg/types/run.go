// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// ProjectFailure names a project the extraction stage could not process.
type ProjectFailure struct {
	ProjectID string `json:"project_id"`
	Reason    string `json:"reason"`
}

// RunSummary is written to run_summary.json at the end of every run and
// recorded in the run ledger.
type RunSummary struct {
	RunID        string           `json:"run_id"`
	Batch        string           `json:"batch"`
	Model        string           `json:"model"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	Total        int              `json:"total_projects"`
	Succeeded    []string         `json:"succeeded"`
	Skipped      []string         `json:"skipped,omitempty"`
	Failed       []ProjectFailure `json:"failed"`
	SuccessRate  string           `json:"success_rate"`
	Consolidated bool             `json:"consolidated"`
	GradesPhase  bool             `json:"grades_phase"`
	OutputDir    string           `json:"output_dir"`
	LogFile      string           `json:"log_file,omitempty"`
}

// Rate formats succeeded/total as a percentage with one decimal.
func Rate(succeeded, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(succeeded)/float64(total)*100)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// progress draws a bar for the extraction phase. The bar is created on the
// first update, once the number of documents is known.
type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress() *progress {
	return &progress{}
}

func (p *progress) update(done, total int, projectID string) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(color.BlueString("extracting")),
			progressbar.OptionSetItsString("projects"),
			progressbar.OptionShowCount(),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	p.bar.Describe(color.BlueString("extracting ") + projectID)
	_ = p.bar.Set(done)
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B8DEF")).
			Padding(0, 1)
	headStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
)

// summaryBox renders the end-of-run summary.
func summaryBox(s types.RunSummary) string {
	var b strings.Builder
	b.WriteString(headStyle.Render("Run "+s.RunID) + "\n")
	fmt.Fprintf(&b, "Batch:        %s\n", s.Batch)
	fmt.Fprintf(&b, "Model:        %s\n", s.Model)
	fmt.Fprintf(&b, "Projects:     %d\n", s.Total)
	fmt.Fprintf(&b, "Succeeded:    %d\n", len(s.Succeeded))
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&b, "Skipped:      %d\n", len(s.Skipped))
	}
	fmt.Fprintf(&b, "Failed:       %d\n", len(s.Failed))
	fmt.Fprintf(&b, "Success rate: %s\n", s.SuccessRate)
	fmt.Fprintf(&b, "Consolidated: %s\n", yesNo(s.Consolidated))
	fmt.Fprintf(&b, "Grades phase: %s\n", yesNo(s.GradesPhase))
	fmt.Fprintf(&b, "Output:       %s", s.OutputDir)
	if s.LogFile != "" {
		fmt.Fprintf(&b, "\nLog:          %s", s.LogFile)
	}
	for _, f := range s.Failed {
		b.WriteString("\n" + failStyle.Render(fmt.Sprintf("  x %s: %s", f.ProjectID, f.Reason)))
	}
	return boxStyle.Render(b.String())
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

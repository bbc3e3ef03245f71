// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/submission-analyzer/internal/pipeline"
)

// --- extract subcommand ---

var extractCmd = &cobra.Command{
	Use:   "extract <batch>",
	Short: "Run only the per-project extraction phase",
	Long: `Extract reads every project document of the batch and writes one
<project>_extraction.json record per project. A project that fails is logged
and skipped; the remaining projects are still processed.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer s.close()

	incremental, _ := cmd.Flags().GetBool("incremental")
	progress := newProgress()
	s.deps.Progress = progress.update
	s.deps.Incremental = incremental

	summary, err := pipeline.Extract(cmd.Context(), s.deps, s.cfg)
	progress.finish()
	if err != nil {
		return err
	}
	fmt.Printf("succeeded: %d, skipped: %d, failed: %d\n",
		len(summary.Succeeded), len(summary.Skipped), len(summary.Failed))
	if summary.HasFailures() {
		for _, f := range summary.Failed {
			fmt.Printf("  %s %s: %s\n", color.RedString("failed"), f.ProjectID, f.Reason)
		}
		return fmt.Errorf("%d project(s) failed extraction", len(summary.Failed))
	}
	return nil
}

// --- consolidate subcommand ---

var consolidateCmd = &cobra.Command{
	Use:   "consolidate <batch>",
	Short: "Re-run the consolidation phase from the records on disk",
	Long: `Consolidate reads the extraction records already written for the batch
and produces consolidated_analysis.json, decisions.csv and
executive_report.md. No project document is read again.`,
	Args: cobra.ExactArgs(1),
	RunE: runConsolidate,
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer s.close()

	if narrative, _ := cmd.Flags().GetBool("narrative"); narrative {
		s.cfg.Model.NarrativeReport = true
	}
	res, err := pipeline.Consolidate(cmd.Context(), s.deps, s.cfg)
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		fmt.Println(f)
	}
	return nil
}

func init() {
	extractCmd.Flags().Bool("incremental", false, "skip projects whose extraction record is newer than the document")
	consolidateCmd.Flags().Bool("narrative", false, "also ask the model for a prose report")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(consolidateCmd)
}

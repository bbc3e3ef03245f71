// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/submission-analyzer/internal/batch"
	"github.com/pdiddy/submission-analyzer/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history <batch>",
	Short: "List previous runs of a batch",
	Long: `History reads the run ledger in the batch output directory and lists
the most recent runs, newest first. Use --run to show the per-project
outcomes of one run.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().String("run", "", "show the project outcomes of this run id")
	historyCmd.Flags().Bool("yaml", false, "print the runs as YAML")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := resolveBatch(args[0])
	if err != nil {
		return err
	}
	paths := batch.OutputPaths(cfg)
	if _, err := os.Stat(paths.Ledger); err != nil {
		fmt.Printf("No runs recorded for %s.\n", cfg.ID)
		return nil
	}

	store, err := ledger.Open(paths.Ledger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		outcomes, err := store.Outcomes(ctx, runID)
		if err != nil {
			return err
		}
		if len(outcomes) == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		fmt.Printf("%-30s  %-10s  %s\n", "Project", "Status", "Reason")
		fmt.Println(strings.Repeat("-", 70))
		for _, o := range outcomes {
			fmt.Printf("%-30s  %-10s  %s\n", o.ProjectID, o.Status, o.Reason)
		}
		return nil
	}

	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		return store.ExportYAML(ctx, os.Stdout, cfg.ID, limit)
	}

	runs, err := store.Runs(ctx, cfg.ID, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Printf("No runs recorded for %s.\n", cfg.ID)
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-24s  %5s  %5s  %5s  %s\n",
		"Run", "Started", "Model", "OK", "Skip", "Fail", "Consolidated")
	fmt.Println(strings.Repeat("-", 118))
	for _, r := range runs {
		fmt.Printf("%-36s  %-20s  %-24s  %5d  %5d  %5d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Model,
			r.Succeeded, r.Skipped, r.Failed, yesNo(r.Consolidated))
	}
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/submission-analyzer/internal/batch"
	"github.com/pdiddy/submission-analyzer/internal/grades"
	"github.com/pdiddy/submission-analyzer/internal/pipeline"
)

var gradesCmd = &cobra.Command{
	Use:   "grades <batch>",
	Short: "Relate the tutors' grades to the extraction records",
	Long: `Grades reads the batch's grades export, writes a grades summary, attaches
each group's grade to its extraction record, flags projects whose grade
contradicts the balance of strengths and weaknesses, and asks the model for
a comparative report.

Use --compare with another batch id to compare the normalized grades of
the groups present in both batches instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runGrades,
}

func init() {
	gradesCmd.Flags().String("csv", "", "grades export to use instead of the configured one")
	gradesCmd.Flags().String("compare", "", "batch id whose grades are compared with this batch")

	rootCmd.AddCommand(gradesCmd)
}

func runGrades(cmd *cobra.Command, args []string) error {
	csvPath, _ := cmd.Flags().GetString("csv")
	other, _ := cmd.Flags().GetString("compare")

	if other != "" {
		return compareGrades(args[0], other, csvPath)
	}

	cfg, err := resolveBatch(args[0])
	if err != nil {
		return err
	}
	if csvPath != "" {
		cfg.GradesCSV = csvPath
	}
	if cfg.GradesCSV == "" {
		return fmt.Errorf("%w: batch %s has no grades csv; pass --csv", batch.ErrMissingInputFile, cfg.ID)
	}

	s, err := openSessionFor(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := pipeline.Grades(cmd.Context(), s.deps, s.cfg)
	if err != nil {
		return err
	}
	fmt.Printf("groups: %d, records matched: %d, discrepancies: %d\n",
		len(res.Grades.Groups), res.Matched, res.Analysis.Summary.Discrepancies)
	for _, f := range res.Files {
		fmt.Println(f)
	}
	return nil
}

// compareGrades prints the comparison of two batches' grades as JSON.
func compareGrades(firstID, secondID, firstCSV string) error {
	path := func(id, override string) (string, error) {
		if override != "" {
			return override, nil
		}
		cfg, err := resolveBatch(id)
		if err != nil {
			return "", err
		}
		if cfg.GradesCSV == "" {
			return "", fmt.Errorf("%w: batch %s has no grades csv", batch.ErrMissingInputFile, id)
		}
		return cfg.GradesCSV, nil
	}

	p1, err := path(firstID, firstCSV)
	if err != nil {
		return err
	}
	p2, err := path(secondID, "")
	if err != nil {
		return err
	}
	g1, err := grades.Read(p1)
	if err != nil {
		return err
	}
	g2, err := grades.Read(p2)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(grades.Compare(g1, g2))
}

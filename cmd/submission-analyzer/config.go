// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/submission-analyzer/internal/batch"
)

var configCmd = &cobra.Command{
	Use:   "config <batch>",
	Short: "Print the resolved configuration of a batch as YAML",
	Long: `Config resolves the batch the same way a run does and prints the result.
The API key is never printed. With --check the configuration is also
validated.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfig,
}

func init() {
	configCmd.Flags().Bool("check", false, "validate input files and credentials")

	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveBatch(args[0])
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	os.Stdout.Write(data)

	if check, _ := cmd.Flags().GetBool("check"); check {
		if err := batch.Validate(cfg); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "configuration ok")
	}
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the submission-analyzer CLI.
//
// The root command runs every phase for one batch. Subcommands run a
// single phase, inspect the run history, or print the resolved batch
// configuration.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/submission-analyzer/internal/batch"
	"github.com/pdiddy/submission-analyzer/internal/pipeline"
	"github.com/pdiddy/submission-analyzer/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd runs the full analysis of one batch.
var rootCmd = &cobra.Command{
	Use:   "submission-analyzer [batch]",
	Short: "Analyze a batch of project submissions with a language model",
	Long: `submission-analyzer reads every project document of a batch, extracts a
structured record per project with a language model, and consolidates the
records into cross-project reports (JSON, CSV and Markdown).

When the batch has a grades export, the grades phase relates the records to
the tutors' grades. Without an argument the batch identifier is read from
standard input.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return secrets.LoadEnv(".env")
	},
	RunE: runRoot,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./submission-analyzer.yaml or ~/.config/submission-analyzer/submission-analyzer.yaml)")
	rootCmd.Flags().Bool("incremental", false, "skip projects whose extraction record is newer than the document")
}

func initConfig() {
	batch.SetDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("submission-analyzer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "submission-analyzer"))
		}
	}

	viper.SetEnvPrefix("SUBMISSION_ANALYZER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	id, err := batchID(args, os.Stdin, os.Stderr)
	if err != nil {
		return err
	}
	incremental, _ := cmd.Flags().GetBool("incremental")

	s, err := openSession(cmd.Context(), id)
	if err != nil {
		return err
	}
	defer s.close()

	progress := newProgress()
	s.deps.Progress = progress.update
	s.deps.Incremental = incremental

	summary, runErr := pipeline.Run(cmd.Context(), s.deps, s.cfg)
	progress.finish()
	if summary.RunID != "" {
		fmt.Fprintln(os.Stderr, summaryBox(summary))
	}
	return runErr
}

// batchID returns the batch argument, or asks for one on in.
func batchID(args []string, in io.Reader, out io.Writer) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	fmt.Fprint(out, color.CyanString("Batch identifier: "))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading batch identifier: %w", err)
	}
	id := strings.TrimSpace(line)
	if id == "" {
		return "", fmt.Errorf("batch identifier is required")
	}
	return id, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/joiningdata/bgzfsort/pairsort"
)

func newSortCmd() *cobra.Command {
	var (
		configPath  string
		input       string
		output      string
		parallelism int
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Mate-pair resort a BGZF alignment file by reference and coordinate",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrFlags(configPath, input, output, "", parallelism, true)
			if err != nil {
				return err
			}
			if !fileExists(cfg.Input) {
				return fmt.Errorf("input file %q does not exist", cfg.Input)
			}

			s := pairsort.New(cfg.Input, cfg.Parallelism)
			s.CompressionLevel = cfg.Level()

			var bar *progressbar.ProgressBar
			if !quiet {
				bar = progressbar.NewOptions(-1,
					progressbar.OptionSetDescription("sorting references"),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionShowCount(),
				)
				s.Progress = func(refID int32, pairsWritten int) {
					bar.Add(1)
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := s.Run(ctx, cfg.Output); err != nil {
				return err
			}
			if bar != nil {
				bar.Finish()
			}
			return cleanupTempArtifacts(cfg.Output)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&input, "input", "", "path to the BGZF input file")
	cmd.Flags().StringVar(&output, "output", "", "path to write the sorted BGZF output")
	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "worker count per reference (default 4)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress the progress bar")
	return cmd
}

// cleanupTempArtifacts removes any stray per-reference temporary files
// left behind by a prior failed run at outputPath, retrying transient
// filesystem errors with backoff rather than failing the whole command
// over what is usually a no-op.
func cleanupTempArtifacts(outputPath string) error {
	matches, err := filepath.Glob(outputPath + ".__tmp.*")
	if err != nil {
		return nil // best-effort; a malformed glob shouldn't fail the sort
	}
	for _, m := range matches {
		match := m
		operation := func() error {
			err := os.Remove(match)
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
		if err := backoff.Retry(operation, b); err != nil {
			return fmt.Errorf("removing stale temp file %s: %w", match, err)
		}
	}
	return nil
}

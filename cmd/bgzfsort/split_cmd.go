package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joiningdata/bgzfsort/split"
)

func newSplitCmd() *cobra.Command {
	var (
		configPath  string
		input       string
		sidecar     string
		parallelism int
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Print the block-aligned byte offsets a file would be partitioned at",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrFlags(configPath, input, "", sidecar, parallelism, false)
			if err != nil {
				return err
			}
			if !fileExists(cfg.Input) {
				return fmt.Errorf("input file %q does not exist", cfg.Input)
			}

			offsets, eofOffset, err := split.Plan(cfg.Input, cfg.Parallelism, cfg.Sidecar)
			if err != nil {
				return err
			}
			for i, off := range offsets[:len(offsets)-1] {
				fmt.Fprintf(cmd.OutOrStdout(), "worker %d: [%d, %d)\n", i, off, offsets[i+1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "eof offset: %d\n", eofOffset)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&input, "input", "", "path to the BGZF input file")
	cmd.Flags().StringVar(&sidecar, "sidecar", "", "path to an optional sidecar block index")
	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "number of partitions (default 4)")
	return cmd
}

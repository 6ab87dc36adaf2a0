// Command bgzfsort is the CLI collaborator around the split and
// pairsort core packages. It is explicitly excluded from the core per
// spec.md §1/§6: translating errors for a human, retrying benign
// cleanup, and rendering progress all live here instead.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/joiningdata/bgzfsort/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("bgzfsort: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bgzfsort",
		Short:         "Split and mate-pair resort BGZF-compressed alignment files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSplitCmd())
	root.AddCommand(newSortCmd())
	return root
}

// loadConfigOrFlags reads a YAML config file if one was given, then
// lets individual flags override its fields — mirroring the
// defaults-then-validate shape of config.Load itself. requireOutput is
// false for split, which never writes an output file, and true for
// sort.
func loadConfigOrFlags(configPath, input, output, sidecar string, parallelism int, requireOutput bool) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if input != "" {
			cfg.Input = input
		}
		if output != "" {
			cfg.Output = output
		}
		if sidecar != "" {
			cfg.Sidecar = sidecar
		}
		if parallelism != 0 {
			cfg.Parallelism = parallelism
		}
		return cfg, nil
	}
	cfg := &config.Config{
		Input:       input,
		Output:      output,
		Sidecar:     sidecar,
		Parallelism: parallelism,
	}
	if cfg.Input == "" {
		return nil, fmt.Errorf("--input is required when no --config is given")
	}
	if requireOutput && cfg.Output == "" {
		return nil, fmt.Errorf("--output is required when no --config is given")
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = 4
	}
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

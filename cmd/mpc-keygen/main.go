// Command mpc-keygen generates one INI configuration file per player,
// carrying every player's network endpoint and that player's own PRSS key
// material for every maximal unqualified subset it belongs to.
//
// This is the Go-native, runtime-facing stand-in for the out-of-scope
// generate_config_files.py / aux.py key-material generator named in
// spec.md §1: rather than a standalone script invoked once per deployment,
// it is a first-class CLI subcommand of the same binary family as
// mpc-runtime, following the teacher's cobra command layout.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/luxfi/mpc/pkg/config"
	"github.com/luxfi/mpc/pkg/seed"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		n        int
		t        int
		host     string
		basePort int
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "mpc-keygen",
		Short: "Generate per-player PRSS configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, _, err := seed.FromEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			files, err := config.Generate(n, t, host, basePort, src)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o750); err != nil {
				return fmt.Errorf("mpc-keygen: creating output directory: %w", err)
			}
			for i, f := range files {
				path := filepath.Join(outDir, fmt.Sprintf("player-%d.ini", i+1))
				if err := f.SaveTo(path); err != nil {
					return fmt.Errorf("mpc-keygen: writing %s: %w", path, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&n, "n", 3, "number of players")
	flags.IntVar(&t, "threshold", 1, "passive-corruption threshold t (n >= 2t+1)")
	flags.StringVar(&host, "host", "127.0.0.1", "host every player's endpoint resolves to")
	flags.IntVar(&basePort, "base-port", 9000, "first player's port; player i listens on base-port+i-1")
	flags.StringVar(&outDir, "out-dir", "./config", "directory to write player-N.ini files into")

	return cmd
}

// Command mpc-runtime is the player process: it loads an INI configuration,
// builds a passively-secure runtime over it, connects to every peer,
// synchronizes, and then blocks until the process is asked to shut down.
// Protocol circuits themselves are driven by the importing Go program via
// pkg/runtime's API — this binary only owns the network lifecycle spec.md
// §6 names (threshold, bit-length, security-parameter, no-log,
// no-socket-retry, repeatable host-override).
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luxfi/mpc/pkg/config"
	"github.com/luxfi/mpc/pkg/field"
	"github.com/luxfi/mpc/pkg/party"
	"github.com/luxfi/mpc/pkg/prss"
	"github.com/luxfi/mpc/pkg/runtime"
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
		configPath    string
		threshold     int
		bitLength     int
		securityParam int
		noLog         bool
		noSocketRetry bool
		hostOverrides []string
	)

	cmd := &cobra.Command{
		Use:   "mpc-runtime",
		Short: "Run one player of a passively-secure MPC computation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, configPath, threshold, bitLength, securityParam, noLog, noSocketRetry, hostOverrides)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to this player's INI configuration file (required)")
	flags.IntVar(&threshold, "threshold", 1, "passive-corruption threshold t (n >= 2t+1)")
	flags.IntVar(&bitLength, "bit-length", 32, "bit length l of values compared by Sgn/GreaterThanEqual")
	flags.IntVar(&securityParam, "security-parameter", 30, "statistical security parameter k (Equal uses Sgn when l < 2k)")
	flags.BoolVar(&noLog, "no-log", false, "suppress runtime diagnostic logging")
	flags.BoolVar(&noSocketRetry, "no-socket-retry", false, "fail immediately on a dial error instead of retrying with backoff")
	flags.StringArrayVar(&hostOverrides, "host-override", nil, "override a player's configured host, as id=host (repeatable)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func run(cmd *cobra.Command, configPath string, threshold, bitLength, securityParam int, noLog, noSocketRetry bool, hostOverrides []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	registry := cfg.Registry()
	if err := applyHostOverrides(registry, hostOverrides); err != nil {
		return err
	}

	owner, ok := registry.Players[registry.Self]
	if !ok || owner.PRSSKeys == nil {
		return fmt.Errorf("mpc-runtime: config %s has no PRSS key material for its owner", configPath)
	}

	randSrc, seedVal, err := seed.FromEnv(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if seedVal != 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "mpc-runtime: %s=%d\n", seed.EnvVar, seedVal)
	}

	lowerBound := new(big.Int).Lsh(big.NewInt(1), uint(bitLength+securityParam+1))
	modulus := field.FindPrime(lowerBound, true)
	f, err := field.New(modulus, true)
	if err != nil {
		return fmt.Errorf("mpc-runtime: constructing field: %w", err)
	}

	prssInst, err := prss.New(registry.Self, registry.IDs(), threshold, owner.PRSSKeys)
	if err != nil {
		return fmt.Errorf("mpc-runtime: constructing PRSS: %w", err)
	}

	opts := runtime.Options{
		Threshold:         threshold,
		BitLength:         bitLength,
		SecurityParameter: securityParam,
		NoSocketRetry:     noSocketRetry,
		Silent:            noLog,
	}
	rt := runtime.New(f, registry, opts, prssInst).WithRandSource(randSrc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.Connect(ctx); err != nil {
		return fmt.Errorf("mpc-runtime: connecting to peers: %w", err)
	}
	if err := rt.Synchronize(ctx); err != nil {
		return fmt.Errorf("mpc-runtime: synchronizing with peers: %w", err)
	}

	pr := runtime.NewPassive(rt)
	_ = pr // the importing application drives protocol calls via pr; this CLI only owns the session lifecycle.

	fmt.Fprintf(cmd.OutOrStdout(), "mpc-runtime: player %s ready (n=%d, t=%d)\n", registry.Self, registry.N(), threshold)

	<-ctx.Done()
	rt.Shutdown()
	if err := rt.AbortErr(); err != nil {
		return fmt.Errorf("mpc-runtime: aborted: %w", err)
	}
	return nil
}

func applyHostOverrides(registry party.Registry, overrides []string) error {
	for _, o := range overrides {
		idStr, host, found := strings.Cut(o, "=")
		if !found || host == "" {
			return fmt.Errorf("mpc-runtime: malformed --host-override %q, want id=host", o)
		}
		id, err := party.ParseID(idStr)
		if err != nil {
			return fmt.Errorf("mpc-runtime: --host-override %q: %w", o, err)
		}
		p, ok := registry.Players[id]
		if !ok {
			return fmt.Errorf("mpc-runtime: --host-override names unknown player %s", idStr)
		}
		p.Host = host
		registry.Players[id] = p
	}
	return nil
}

package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/scalperguard/cli/internal/seeder"
	"github.com/telhawk-systems/scalperguard/cli/pkg/output"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write a synthetic transfer log",
	Long: `Generate random background transfers plus scalper round-trips
(A->B, B->A, ...) and write them as a JSONL transfer log.

Examples:
  sguard seed --out indexer/out/transfers.jsonl
  sguard seed --iterations 10 --gap 15s --seed 42
  sguard seed --scalpers 3 --background 200 --append`,
	RunE: runSeed,
}

func init() {
	defaults := seeder.DefaultConfig()
	seedCmd.Flags().String("out", "", "output file (default: profile log path)")
	seedCmd.Flags().Bool("append", false, "append instead of replacing the file")
	seedCmd.Flags().Int("background", defaults.Background, "number of background transfers")
	seedCmd.Flags().Int("wallets", defaults.Wallets, "background wallet pool size")
	seedCmd.Flags().Int("scalpers", defaults.Scalpers, "number of scalper pairs")
	seedCmd.Flags().Int("iterations", defaults.Iterations, "transfers per scalper pair")
	seedCmd.Flags().Duration("gap", defaults.Gap, "time between round-trip transfers")
	seedCmd.Flags().Duration("span", defaults.Span, "background traffic duration before the loops")
	seedCmd.Flags().Int64("seed", 0, "random seed (0 picks one)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		profile, err := activeProfile(cmd)
		if err != nil {
			return err
		}
		out = profile.LogPath
	}

	scfg := seeder.DefaultConfig()
	scfg.Background, _ = cmd.Flags().GetInt("background")
	scfg.Wallets, _ = cmd.Flags().GetInt("wallets")
	scfg.Scalpers, _ = cmd.Flags().GetInt("scalpers")
	scfg.Iterations, _ = cmd.Flags().GetInt("iterations")
	scfg.Gap, _ = cmd.Flags().GetDuration("gap")
	scfg.Span, _ = cmd.Flags().GetDuration("span")
	scfg.Seed, _ = cmd.Flags().GetInt64("seed")
	// Finish the loops at the current time.
	loopLen := time.Duration(max(scfg.Iterations-1, 0)) * scfg.Gap
	scfg.Start = time.Now().UTC().Add(-scfg.Span - loopLen).Truncate(time.Second)

	gen, err := seeder.New(scfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	appendOnly, _ := cmd.Flags().GetBool("append")
	events, err := gen.WriteFile(ctx, out, appendOnly)
	if err != nil {
		return err
	}

	output.Success("Wrote %d transfers to %s (seed %d)", len(events), out, gen.Seed())
	for _, p := range gen.Pairs() {
		output.Info("  scalper pair %s <-> %s (token %s)", p.A, p.B, p.TokenID)
	}
	return nil
}

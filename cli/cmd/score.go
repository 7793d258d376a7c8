package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/scalperguard/cli/internal/client"
	"github.com/telhawk-systems/scalperguard/cli/pkg/output"
	"github.com/telhawk-systems/scalperguard/scoring/pkg/scoring"
)

// flaggedThreshold matches the soft block cut-off.
const flaggedThreshold = 70.0

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score wallets for scalping risk",
	Long: `Score every wallet seen in the transfer log.

By default the log named by the active profile is scored locally. Use --log
to score a different file, or --url/--remote to ask a scoring service.

Examples:
  sguard score --log indexer/out/transfers.jsonl
  sguard score --url http://localhost:5001 --flagged
  sguard score --now 1700000600 --output json`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().String("log", "", "score this JSONL transfer log locally")
	scoreCmd.Flags().String("url", "", "score via the scoring service at this URL")
	scoreCmd.Flags().Bool("remote", false, "score via the profile's scoring service")
	scoreCmd.Flags().Int64("now", 0, "reference time as unix seconds (default: latest transfer)")
	scoreCmd.Flags().Bool("flagged", false, "only show wallets with risk >= 70, highest first")
	rootCmd.AddCommand(scoreCmd)
}

type scoreOptions struct {
	LogPath    string
	ServiceURL string
	Remote     bool
	Now        *time.Time
}

func runScore(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	if !output.ValidFormat(format) {
		return fmt.Errorf("unsupported output format %q", format)
	}

	profile, err := activeProfile(cmd)
	if err != nil {
		return err
	}

	opts := scoreOptions{}
	opts.LogPath, _ = cmd.Flags().GetString("log")
	opts.ServiceURL, _ = cmd.Flags().GetString("url")
	opts.Remote, _ = cmd.Flags().GetBool("remote")
	if opts.LogPath != "" && (opts.ServiceURL != "" || opts.Remote) {
		return fmt.Errorf("--log cannot be combined with --url or --remote")
	}
	if opts.Remote && opts.ServiceURL == "" {
		opts.ServiceURL = profile.ServiceURL
	}
	if opts.LogPath == "" && opts.ServiceURL == "" {
		opts.LogPath = profile.LogPath
	}
	if cmd.Flags().Changed("now") {
		secs, _ := cmd.Flags().GetInt64("now")
		ts := time.Unix(secs, 0).UTC()
		opts.Now = &ts
	}

	report, err := fetchReport(cmd.Context(), opts)
	if err != nil {
		return err
	}

	flagged, _ := cmd.Flags().GetBool("flagged")
	if flagged {
		report.Wallets = flaggedWallets(report.Wallets)
	}

	return renderReport(report, format)
}

func fetchReport(ctx context.Context, opts scoreOptions) (*scoring.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.ServiceURL != "" {
		return client.NewScoringClient(opts.ServiceURL).Score(ctx, opts.Now)
	}
	return scoring.ScoreFile(ctx, opts.LogPath, opts.Now)
}

// flaggedWallets keeps wallets at or above the soft block threshold ordered
// by descending risk.
func flaggedWallets(wallets []scoring.WalletScore) []scoring.WalletScore {
	out := make([]scoring.WalletScore, 0, len(wallets))
	for _, w := range wallets {
		if w.Risk >= flaggedThreshold {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Risk > out[j].Risk })
	return out
}

func renderReport(report *scoring.Report, format string) error {
	switch format {
	case output.FormatJSON:
		return output.JSON(report)
	case output.FormatYAML:
		return output.YAML(report)
	}

	if report.Note == scoring.NoTransfersNote {
		output.Info("No transfers yet.")
		return nil
	}
	if len(report.Wallets) == 0 {
		output.Info("No wallets to show.")
		return nil
	}

	table := output.NewTable([]string{"WALLET", "RISK", "DECISION", "ANOMALY", "RULE", "TX_10M", "AVG_GAP_S", "CENTRALITY", "FLIP"})
	for _, w := range report.Wallets {
		row := []string{
			w.Wallet,
			strconv.FormatFloat(w.Risk, 'f', 1, 64),
			string(w.Decision),
			strconv.FormatFloat(w.Components.Anomaly, 'f', 1, 64),
			strconv.FormatFloat(w.Components.Rule, 'f', 0, 64),
			strconv.Itoa(w.Details.TxCount10m),
			strconv.FormatFloat(w.Details.AvgGapSec, 'f', 1, 64),
			strconv.FormatFloat(w.Details.DegreeCentrality, 'f', 3, 64),
			strconv.FormatFloat(w.Details.FlipRatio, 'f', 2, 64),
		}
		table.AddColoredRow(decisionColor(w.Decision), row)
	}
	table.Render()

	counts := map[scoring.Decision]int{}
	for _, w := range report.Wallets {
		counts[w.Decision]++
	}
	output.Info("\n%d wallets, %d events: %d hard block, %d soft block, %d allow",
		len(report.Wallets), report.EventCount,
		counts[scoring.DecisionHardBlock], counts[scoring.DecisionSoftBlock], counts[scoring.DecisionAllow])
	return nil
}

func decisionColor(d scoring.Decision) *color.Color {
	switch d {
	case scoring.DecisionHardBlock:
		return color.New(color.FgRed, color.Bold)
	case scoring.DecisionSoftBlock:
		return color.New(color.FgYellow)
	}
	return nil
}

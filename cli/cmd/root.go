package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/scalperguard/cli/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sguard",
	Short: "ScalperGuard CLI",
	Long: `sguard is the command-line interface for ScalperGuard.

Score wallets from a local transfer log or a running scoring service,
and generate synthetic transfer logs for development.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.sguard/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json, yaml")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

// activeProfile resolves --profile against the loaded config.
func activeProfile(cmd *cobra.Command) (*config.Profile, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	name, _ := cmd.Flags().GetString("profile")
	return cfg.GetProfile(name)
}

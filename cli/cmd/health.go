package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/scalperguard/cli/internal/client"
	"github.com/telhawk-systems/scalperguard/cli/pkg/output"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the scoring service",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			profile, err := activeProfile(cmd)
			if err != nil {
				return err
			}
			url = profile.ServiceURL
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := client.NewScoringClient(url).Health(ctx); err != nil {
			output.Error("%s is unhealthy: %v", url, err)
			return err
		}
		output.Success("%s is healthy", url)
		return nil
	},
}

func init() {
	healthCmd.Flags().String("url", "", "scoring service URL (default: profile service URL)")
	rootCmd.AddCommand(healthCmd)
}

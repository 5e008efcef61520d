package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/qcal/internal/cli"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "qcal",
	Short: "qcal derives context-aware calibration environments from quantum programs",
	Long: `qcal locates every occurrence of a target operation inside a context program,
truncates the program around each occurrence and exposes the result as a
step-by-step calibration environment.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "qcal.yaml", "Path to the environment config (yaml or json)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("run-id", "", "Run id used for the history (random when empty)")
}

// loadApp builds the environment described by the --config flag.
func loadApp(ctx context.Context, cmd *cobra.Command, hooks domain.LifecycleHooks) (*cli.App, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	runID, _ := cmd.Flags().GetString("run-id")

	return cli.Load(ctx, path, cli.BuildOptions{
		RunID: runID,
		Debug: debug,
		Hooks: hooks,
	})
}

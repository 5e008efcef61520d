package main

import (
	"fmt"

	"github.com/aretw0/qcal/pkg/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config and derive the truncations",
	Long:  `Loads the config, builds the environment and reports how many occurrences of the target were found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd.Context(), cmd, domain.LifecycleHooks{})
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		defer app.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Config is valid: %d occurrence(s) of %s\n",
			len(app.Env.Occurrences()), app.Config.Target.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

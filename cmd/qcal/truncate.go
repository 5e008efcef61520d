package main

import (
	"github.com/aretw0/qcal/internal/cli"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/spf13/cobra"
)

var truncateCmd = &cobra.Command{
	Use:   "truncate",
	Short: "Print the truncations derived from the context",
	Long: `Lists the truncation of every target occurrence.
Formats: text (colored when attached to a terminal), json, mermaid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		index, _ := cmd.Flags().GetInt("index")

		app, err := loadApp(cmd.Context(), cmd, domain.LifecycleHooks{})
		if err != nil {
			return err
		}
		defer app.Close()

		return cli.WriteTruncations(cmd.OutOrStdout(), app, format, index)
	},
}

func init() {
	rootCmd.AddCommand(truncateCmd)
	truncateCmd.Flags().StringP("format", "f", cli.FormatText, "Output format: text, json or mermaid")
	truncateCmd.Flags().IntP("index", "i", -1, "Only print this truncation")
}

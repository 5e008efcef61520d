package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/qcal"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of qcal",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "qcal version %s\n", strings.TrimSpace(qcal.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"io"
	"os"

	"github.com/aretw0/qcal/internal/cli"
	"github.com/aretw0/qcal/internal/presentation/tui"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Sample actions with a Gaussian policy and report the rewards",
	Long: `Runs episodes against the environment with a fixed Gaussian sampler.
The report is rendered as markdown when stdout is a terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		episodes, _ := cmd.Flags().GetInt("episodes")
		mean, _ := cmd.Flags().GetFloat64Slice("mean")
		std, _ := cmd.Flags().GetFloat64Slice("std")
		quiet, _ := cmd.Flags().GetBool("quiet")

		opts := cli.TrainOptions{Episodes: episodes, Mean: mean, Std: std}
		if cmd.Flags().Changed("seed") {
			seed, _ := cmd.Flags().GetInt64("seed")
			opts.Seed = &seed
		}

		out := cmd.OutOrStdout()
		interactive := tui.IsTerminal(out)
		if !quiet {
			opts.Progress = os.Stderr
		}
		if interactive && !quiet {
			tui.PrintBanner(out)
		}

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		app, err := loadApp(sc, cmd, domain.LifecycleHooks{})
		if err != nil {
			return err
		}
		defer app.Close()

		res, runErr := cli.Train(sc, app, opts)
		if sig := sc.Signal(); sig != nil {
			cli.PrintSystemMessage(os.Stderr, "Interrupted by %v after %d episode(s)", sig, len(res.Report.Episodes))
		}
		if err := writeReport(out, cli.ReportMarkdown(res), interactive); err != nil {
			return err
		}
		return cli.HandleExecutionError(runErr)
	},
}

func writeReport(w io.Writer, markdown string, interactive bool) error {
	if !interactive {
		_, err := io.WriteString(w, markdown)
		return err
	}
	render, err := tui.NewRenderer(tui.Width(w))
	if err != nil {
		return err
	}
	rendered, err := render(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, rendered)
	return err
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().IntP("episodes", "n", 10, "Number of terminal episodes to collect")
	trainCmd.Flags().Float64Slice("mean", nil, "Sampler mean, one value per action dimension (default zeros)")
	trainCmd.Flags().Float64Slice("std", []float64{0.1}, "Sampler standard deviation, shared or per dimension")
	trainCmd.Flags().Int64("seed", 0, "Seed applied on the first reset (overrides the config)")
	trainCmd.Flags().BoolP("quiet", "q", false, "Hide progress and banner")
}

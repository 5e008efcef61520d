package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/aretw0/qcal"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/policy"
)

// TrainOptions configure a sampling run.
type TrainOptions struct {
	Episodes int
	// Mean is the sampler center. Empty means zeros of the action dimension.
	Mean []float64
	// Std has one entry shared by all dimensions or one per dimension.
	Std []float64
	// Seed overrides the config seed on the first reset.
	Seed *int64
	// Progress receives one line per terminal episode. Nil disables it.
	Progress io.Writer
}

// TrainResult is the runner report plus the stored history summary.
type TrainResult struct {
	Report  qcal.Report
	Summary domain.Summary
}

// Train samples actions from a Gaussian policy until opts.Episodes episodes terminated.
func Train(ctx context.Context, app *App, opts TrainOptions) (TrainResult, error) {
	if opts.Episodes < 1 {
		return TrainResult{}, fmt.Errorf("episodes must be >= 1, got %d", opts.Episodes)
	}
	envOpts := app.Env.Options()
	mean := opts.Mean
	if len(mean) == 0 {
		mean = make([]float64, envOpts.ActionDim)
	}
	if len(mean) != envOpts.ActionDim {
		return TrainResult{}, fmt.Errorf("mean has %d values, action_dim is %d", len(mean), envOpts.ActionDim)
	}
	std := opts.Std
	if len(std) == 0 {
		std = []float64{0.1}
	}

	sampler, err := policy.NewGaussian(envOpts.BatchSize, mean, std, app.Session)
	if err != nil {
		return TrainResult{}, err
	}

	app.Logger.Info("Training started", "episodes", opts.Episodes, "batch_size", envOpts.BatchSize, "truncations", len(app.Env.Truncations()))
	runner := &qcal.Runner{
		Policy:   sampler,
		Episodes: opts.Episodes,
		Seed:     opts.Seed,
		Output:   opts.Progress,
	}
	report, runErr := runner.Run(ctx, app.Env)
	res := TrainResult{Report: report}

	summary, err := app.Env.Summary(ctx)
	if err != nil {
		app.Logger.Warn("History summary unavailable", "error", err)
	} else {
		res.Summary = summary
	}
	return res, runErr
}

// ReportMarkdown formats a training result as a markdown document.
func ReportMarkdown(res TrainResult) string {
	var sb strings.Builder
	r := res.Report
	fmt.Fprintf(&sb, "# Training report\n\n")
	fmt.Fprintf(&sb, "- **Run**: `%s`\n", r.RunID)
	fmt.Fprintf(&sb, "- **Episodes**: %d\n", len(r.Episodes))
	fmt.Fprintf(&sb, "- **Global steps**: %d\n", r.GlobalStep)
	if math.IsInf(r.BestReward, -1) {
		sb.WriteString("- **Best reward**: n/a\n")
	} else {
		fmt.Fprintf(&sb, "- **Best reward**: %.6f\n", r.BestReward)
	}
	if len(r.OptimalAction) > 0 {
		fmt.Fprintf(&sb, "- **Optimal action**: `%s`\n", formatVector(r.OptimalAction))
	}
	if res.Summary.Episodes > 0 {
		fmt.Fprintf(&sb, "- **Stored episodes**: %d (last reward %.6f)\n", res.Summary.Episodes, res.Summary.LastReward)
	}

	if len(r.Episodes) > 0 {
		sb.WriteString("\n## Episodes\n\n")
		sb.WriteString("| Episode | Truncation | Mean reward | Mean action |\n")
		sb.WriteString("|---:|---:|---:|---|\n")
		for _, ep := range r.Episodes {
			fmt.Fprintf(&sb, "| %d | %d | %.6f | `%s` |\n", ep.Episode, ep.Truncation, ep.MeanReward, formatVector(ep.MeanAction))
		}
	}
	return sb.String()
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.4f", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

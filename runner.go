package qcal

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/aretw0/qcal/pkg/ports"
)

// Runner drives episodes of an Environment with a Policy.
type Runner struct {
	Policy ports.Policy
	// Episodes is the number of terminal episodes to collect.
	Episodes int
	// Seed, when set, is applied on the first reset.
	Seed *int64
	// Output receives one progress line per episode. Nil disables progress.
	Output io.Writer
}

// EpisodeReport is the outcome of one terminal episode.
type EpisodeReport struct {
	Episode    int       `json:"episode"`
	Truncation int       `json:"truncation"`
	Steps      int       `json:"steps"`
	MeanReward float64   `json:"mean_reward"`
	MeanAction []float64 `json:"mean_action"`
}

// Report summarizes a Run.
type Report struct {
	RunID         string          `json:"run_id"`
	Episodes      []EpisodeReport `json:"episodes"`
	GlobalStep    int             `json:"global_step"`
	BestReward    float64         `json:"best_reward"`
	OptimalAction []float64       `json:"optimal_action"`
}

// Run resets the environment and steps it until Episodes episodes terminated
// or ctx is done. A partial report is returned together with any error.
func (r *Runner) Run(ctx context.Context, env *Environment) (Report, error) {
	if r.Policy == nil {
		return Report{}, fmt.Errorf("runner requires a policy")
	}
	report := Report{RunID: env.RunID(), BestReward: math.Inf(-1)}
	learner, _ := r.Policy.(ports.Learner)

	obs, _, err := env.Reset(ctx, r.Seed)
	if err != nil {
		return report, fmt.Errorf("reset error: %w", err)
	}

	for len(report.Episodes) < r.Episodes {
		if err := ctx.Err(); err != nil {
			return r.finish(env, report), err
		}

		state := env.State()
		batch, err := r.Policy.Act(ctx, obs, state)
		if err != nil {
			return r.finish(env, report), fmt.Errorf("policy error: %w", err)
		}
		res, err := env.Step(ctx, batch)
		if err != nil {
			return r.finish(env, report), fmt.Errorf("step error: %w", err)
		}
		if learner != nil {
			if err := learner.Observe(ctx, batch, res); err != nil {
				return r.finish(env, report), fmt.Errorf("policy error: %w", err)
			}
		}

		if !res.Terminated {
			obs = res.Observation
			continue
		}

		ep := EpisodeReport{
			Episode:    state.Episode,
			Truncation: state.TruncationIndex,
			Steps:      state.TruncationIndex + 1,
			MeanReward: mean(res.Reward),
			MeanAction: env.MeanAction(),
		}
		report.Episodes = append(report.Episodes, ep)
		if r.Output != nil {
			fmt.Fprintf(r.Output, "episode %d  truncation %d  reward %.6f\n", ep.Episode, ep.Truncation, ep.MeanReward)
		}

		if obs, _, err = env.Reset(ctx, nil); err != nil {
			return r.finish(env, report), fmt.Errorf("reset error: %w", err)
		}
	}
	return r.finish(env, report), nil
}

func (r *Runner) finish(env *Environment, report Report) Report {
	report.GlobalStep = env.State().GlobalStep
	report.BestReward = env.BestReward()
	report.OptimalAction = slices.Clone(env.OptimalAction())
	return report
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// Package runtime runs episodes over the truncations of a context.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/aretw0/qcal/internal/actions"
	"github.com/aretw0/qcal/internal/logging"
	"github.com/aretw0/qcal/internal/truncation"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/ports"
	"github.com/aretw0/qcal/pkg/session"
)

// MaxFidelity caps scores before shaping so the reward stays finite.
const MaxFidelity = 1.0 - 1e-6

// Options configures the episode mechanics.
type Options struct {
	BatchSize           int  `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	ActionDim           int  `json:"action_dim" yaml:"action_dim" mapstructure:"action_dim"`
	StepsPerOccurrence  int  `json:"steps_per_occurrence" yaml:"steps_per_occurrence" mapstructure:"steps_per_occurrence"`
	IntermediateRewards bool `json:"intermediate_rewards" yaml:"intermediate_rewards" mapstructure:"intermediate_rewards"`
	NReps               int  `json:"n_reps" yaml:"n_reps" mapstructure:"n_reps"`
}

// Validate checks that every size is positive.
func (o Options) Validate() error {
	switch {
	case o.BatchSize < 1:
		return fmt.Errorf("batch_size must be >= 1, got %d", o.BatchSize)
	case o.ActionDim < 1:
		return fmt.Errorf("action_dim must be >= 1, got %d", o.ActionDim)
	case o.StepsPerOccurrence < 1:
		return fmt.Errorf("steps_per_occurrence must be >= 1, got %d", o.StepsPerOccurrence)
	case o.NReps < 0:
		return fmt.Errorf("n_reps must be >= 0, got %d", o.NReps)
	}
	return nil
}

// ShapeReward maps a score in [0,1] to -ln(1-score) after clipping to [0, MaxFidelity].
func ShapeReward(score float64) float64 {
	return -math.Log(1.0 - min(max(score, 0), MaxFidelity))
}

// Stepper is the episode state machine.
// It accumulates one action batch per target instance of the selected truncation and
// scores the custom program once the last one is written.
// A Stepper is not safe for concurrent use.
type Stepper struct {
	opts     Options
	executor ports.Executor
	session  *session.SimulationSession
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	result truncation.Result
	buf    *actions.Buffer
	state  domain.EpisodeState

	rewardHistory [][]float64
	bestReward    float64
	optimalAction []float64
	meanAction    []float64
}

// Option configures the Stepper.
type Option func(*Stepper)

// WithLogger sets the stepper logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stepper) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Stepper) {
		s.hooks = hooks
	}
}

// WithSession sets the simulation session handed to the executor.
func WithSession(sess *session.SimulationSession) Option {
	return func(s *Stepper) {
		s.session = sess
	}
}

// NewStepper creates a stepper. It has no truncations until Load is called.
func NewStepper(executor ports.Executor, opts Options, o ...Option) (*Stepper, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	s := &Stepper{
		opts:       opts,
		executor:   executor,
		logger:     logging.NewNop(),
		bestReward: math.Inf(-1),
	}
	for _, opt := range o {
		opt(s)
	}
	if s.session == nil {
		s.session = session.New()
	}
	return s, nil
}

// Load installs a new set of truncations and starts a fresh episode.
// Counters and history are kept.
func (s *Stepper) Load(res truncation.Result) error {
	if res.Len() == 0 {
		return domain.ErrTargetNotFound
	}
	s.result = res
	return s.newEpisode()
}

// Loaded reports whether truncations are installed.
func (s *Stepper) Loaded() bool {
	return s.result.Len() > 0
}

// Occurrences returns the number of truncations k.
func (s *Stepper) Occurrences() int {
	return s.result.Len()
}

// Options returns the configuration.
func (s *Stepper) Options() Options {
	return s.opts
}

// Session returns the simulation session.
func (s *Stepper) Session() *session.SimulationSession {
	return s.session
}

// State returns a snapshot of the current episode.
func (s *Stepper) State() domain.EpisodeState {
	return s.state
}

// GlobalStep returns the number of accepted Step calls.
func (s *Stepper) GlobalStep() int {
	return s.state.GlobalStep
}

// SetGlobalStep restores the step counter, e.g. when resuming a run.
func (s *Stepper) SetGlobalStep(n int) {
	s.state.GlobalStep = n
}

// SelectTruncation returns the truncation index an episode started now would train.
// With intermediate rewards occurrences are visited round-robin, otherwise a curriculum
// advances one occurrence every StepsPerOccurrence steps and stays on the last one.
func (s *Stepper) SelectTruncation() int {
	k := s.result.Len()
	if k == 0 {
		return 0
	}
	if s.opts.IntermediateRewards {
		return s.state.GlobalStep % k
	}
	return min(s.state.GlobalStep/s.opts.StepsPerOccurrence, k-1)
}

// EpisodeLength returns the number of steps of the current episode.
func (s *Stepper) EpisodeLength() int {
	return s.state.TruncationIndex + 1
}

// Reset starts a new episode. A non-nil seed reseeds the session.
func (s *Stepper) Reset(ctx context.Context, seed *int64) ([]float64, map[string]any, error) {
	if !s.Loaded() {
		return nil, nil, domain.ErrContextUnbound
	}
	if seed != nil {
		s.session.Reseed(*seed)
	}
	if err := s.newEpisode(); err != nil {
		return nil, nil, err
	}
	s.state.Episode++
	s.emit(ctx, s.hooks.OnReset, &domain.EpisodeEvent{EventBase: s.event(domain.EventReset), State: s.state})
	return s.observation(), s.info(), nil
}

func (s *Stepper) newEpisode() error {
	buf, err := actions.Allocate(s.result.Len(), s.opts.BatchSize, s.opts.ActionDim)
	if err != nil {
		return err
	}
	s.buf = buf
	s.state = domain.EpisodeState{
		Episode:         s.state.Episode,
		TruncationIndex: s.SelectTruncation(),
		Phase:           domain.PhaseReady,
		GlobalStep:      s.state.GlobalStep,
	}
	s.logger.Debug("Episode started", "episode", s.state.Episode, "truncation", s.state.TruncationIndex)
	return nil
}

// Step writes one action batch. actions must have BatchSize rows of ActionDim values.
func (s *Stepper) Step(ctx context.Context, batch [][]float64) (domain.StepResult, error) {
	if !s.Loaded() {
		return domain.StepResult{}, domain.ErrContextUnbound
	}

	if s.state.Terminated {
		s.state.GlobalStep++
		obs, info, err := s.Reset(ctx, nil)
		if err != nil {
			return domain.StepResult{}, err
		}
		return domain.StepResult{
			Observation: obs,
			Reward:      make([]float64, s.opts.BatchSize),
			Terminated:  true,
			Info:        info,
		}, nil
	}

	if err := s.buf.CheckShape(batch); err != nil {
		return domain.StepResult{}, err
	}

	started := time.Now()
	prev := s.state
	s.state.GlobalStep++
	trunc, intra := s.state.TruncationIndex, s.state.IntraStep
	if err := s.buf.Write(trunc, intra, batch); err != nil {
		s.state = prev
		return domain.StepResult{}, err
	}

	var (
		res domain.StepResult
		err error
	)
	if intra < trunc {
		res, err = s.intermediate(ctx, started)
	} else {
		res, err = s.final(ctx, started)
	}
	if err != nil {
		// The row stays written; a retry of the same sub-step overwrites it.
		s.state = prev
		return domain.StepResult{}, err
	}
	return res, nil
}

func (s *Stepper) intermediate(ctx context.Context, started time.Time) (domain.StepResult, error) {
	res := domain.StepResult{Reward: make([]float64, s.opts.BatchSize)}
	if s.opts.IntermediateRewards {
		scores, err := s.execute(ctx)
		if err != nil {
			return domain.StepResult{}, err
		}
		res.Observation = scores
		res.Reward = slices.Clone(scores)
	}

	s.state.IntraStep++
	s.state.Phase = domain.PhaseAccumulating
	if !s.opts.IntermediateRewards {
		res.Observation = s.observation()
	}
	res.Info = s.info()

	s.emit(ctx, s.hooks.OnStep, &domain.EpisodeEvent{
		EventBase: s.event(domain.EventStep),
		State:     s.state,
		Duration:  time.Since(started),
	})
	return res, nil
}

func (s *Stepper) final(ctx context.Context, started time.Time) (domain.StepResult, error) {
	scores, err := s.execute(ctx)
	if err != nil {
		return domain.StepResult{}, err
	}

	mean, err := s.buf.Mean(s.state.TruncationIndex)
	if err != nil {
		return domain.StepResult{}, err
	}
	s.meanAction = mean

	reward := make([]float64, len(scores))
	total := 0.0
	for i, sc := range scores {
		reward[i] = ShapeReward(sc)
		total += reward[i]
	}
	if avg := total / float64(len(reward)); avg > s.bestReward {
		s.bestReward = avg
		s.optimalAction = slices.Clone(mean)
	}
	s.rewardHistory = append(s.rewardHistory, reward)

	s.state.Terminated = true
	s.state.Phase = domain.PhaseTerminal

	res := domain.StepResult{Reward: reward, Terminated: true, Info: s.info()}
	if s.opts.IntermediateRewards {
		res.Observation = scores
	} else {
		res.Observation = s.observation()
	}

	elapsed := time.Since(started)
	s.emit(ctx, s.hooks.OnStep, &domain.EpisodeEvent{
		EventBase: s.event(domain.EventStep),
		State:     s.state,
		Duration:  elapsed,
	})
	s.emit(ctx, s.hooks.OnTerminal, &domain.EpisodeEvent{
		EventBase:  s.event(domain.EventTerminal),
		State:      s.state,
		Reward:     slices.Clone(reward),
		MeanAction: slices.Clone(mean),
		Duration:   elapsed,
	})
	return res, nil
}

// execute scores the selected truncation with the flattened buffer and validates the result.
func (s *Stepper) execute(ctx context.Context) ([]float64, error) {
	trunc := s.state.TruncationIndex
	flat, err := s.buf.Flatten(trunc)
	if err != nil {
		return nil, err
	}
	scores, err := s.executor.Execute(ctx, ports.ExecutionRequest{
		Session:    s.session,
		Truncation: s.result.Truncations[trunc],
		Target:     s.result.Targets[trunc],
		Actions:    flat,
	})
	if err != nil {
		return nil, fmt.Errorf("execute truncation %d: %w", trunc, err)
	}
	if len(scores) != s.opts.BatchSize {
		return nil, &domain.InvalidRewardError{
			Truncation: trunc,
			Reason:     fmt.Sprintf("expected %d scores, got %d", s.opts.BatchSize, len(scores)),
		}
	}
	for i, sc := range scores {
		if math.IsNaN(sc) || math.IsInf(sc, 0) {
			return nil, &domain.InvalidRewardError{
				Truncation: trunc,
				Reason:     fmt.Sprintf("score %d is %v", i, sc),
			}
		}
	}
	return scores, nil
}

// observation is [progress, start time of the current occurrence].
func (s *Stepper) observation() []float64 {
	trunc, intra := s.state.TruncationIndex, s.state.IntraStep
	return []float64{
		float64(intra) / float64(trunc+1),
		float64(s.result.Occurrences[intra].StartTime),
	}
}

func (s *Stepper) info() map[string]any {
	return map[string]any{
		"episode":          s.state.Episode,
		"truncation_index": s.state.TruncationIndex,
		"intra_step":       s.state.IntraStep,
		"global_step":      s.state.GlobalStep,
		"run_id":           s.session.RunID(),
	}
}

// RewardHistory returns the shaped rewards of all terminal steps.
func (s *Stepper) RewardHistory() [][]float64 {
	out := make([][]float64, len(s.rewardHistory))
	for i, r := range s.rewardHistory {
		out[i] = slices.Clone(r)
	}
	return out
}

// BestReward returns the highest mean terminal reward seen, or -Inf.
func (s *Stepper) BestReward() float64 {
	return s.bestReward
}

// OptimalAction returns the mean action of the best episode.
func (s *Stepper) OptimalAction() []float64 {
	return slices.Clone(s.optimalAction)
}

// MeanAction returns the mean action of the last terminal episode.
func (s *Stepper) MeanAction() []float64 {
	return slices.Clone(s.meanAction)
}

// ClearHistory resets the counters and the reward history.
func (s *Stepper) ClearHistory() {
	s.rewardHistory = nil
	s.bestReward = math.Inf(-1)
	s.optimalAction = nil
	s.meanAction = nil
	s.state.GlobalStep = 0
	s.state.Episode = 0
}

func (s *Stepper) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, RunID: s.session.RunID()}
}

func (s *Stepper) emit(ctx context.Context, hook func(context.Context, *domain.EpisodeEvent), ev *domain.EpisodeEvent) {
	if hook != nil {
		hook(ctx, ev)
	}
}

package qcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/qcal/internal/logging"
	"github.com/aretw0/qcal/internal/runtime"
	"github.com/aretw0/qcal/internal/truncation"
	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/history"
	"github.com/aretw0/qcal/pkg/parametrize"
	"github.com/aretw0/qcal/pkg/ports"
	"github.com/aretw0/qcal/pkg/session"
)

// Options configures the episode mechanics (batch size, action dimension,
// steps per occurrence, intermediate rewards, repetitions).
type Options = runtime.Options

// ContextPhase tells whether the active context still carries symbolic parameters.
type ContextPhase string

const (
	// PhaseNone means no context was set yet.
	PhaseNone ContextPhase = ""
	// PhaseBound means the context was given fully bound.
	PhaseBound ContextPhase = "bound"
	// PhaseUnbound means the context is parametrized and bound through AssignParameters.
	PhaseUnbound ContextPhase = "unbound"
)

// Environment is the high-level entry point of the library.
// It owns a context program, derives its truncations and drives episodes over them.
// All methods are safe for concurrent use; calls are serialized.
type Environment struct {
	mu sync.Mutex

	target       domain.Pattern
	device       domain.Device
	opts         Options
	parametrizer ports.Parametrizer
	args         map[string]any

	phase  ContextPhase
	source domain.Program
	values map[string]float64
	bound  domain.Program
	result truncation.Result

	stepper *runtime.Stepper
	session *session.SimulationSession
	history *history.Manager
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
}

// Option defines a functional option for configuring the Environment.
type Option func(*Environment)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Environment) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Environment) {
		e.hooks = hooks
	}
}

// WithDevice sets the initial device. Without it the context is treated as already
// transpiled: identity layout, no coupling map, unit durations.
func WithDevice(device domain.Device) Option {
	return func(e *Environment) {
		e.device = device
	}
}

// WithParametrizer sets the callback that replaces target instances in the custom programs.
// The default is parametrize.Gate.
func WithParametrizer(p ports.Parametrizer, args map[string]any) Option {
	return func(e *Environment) {
		e.parametrizer = p
		e.args = args
	}
}

// WithSession sets the simulation session (run id and RNG) handed to the executor.
func WithSession(sess *session.SimulationSession) Option {
	return func(e *Environment) {
		e.session = sess
	}
}

// WithHistory records every terminal episode through m.
func WithHistory(m *history.Manager) Option {
	return func(e *Environment) {
		e.history = m
	}
}

// New creates an Environment calibrating the operation described by target.
// No context is set; Reset and Step fail with ErrContextUnbound until one is.
func New(executor ports.Executor, target domain.Pattern, opts Options, o ...Option) (*Environment, error) {
	if target.Name == "" || len(target.Qubits) == 0 {
		return nil, fmt.Errorf("target pattern requires a name and qubits")
	}
	env := &Environment{
		target:       target,
		opts:         opts,
		parametrizer: parametrize.Gate,
	}
	for _, opt := range o {
		opt(env)
	}
	if env.logger == nil {
		env.logger = logging.NewNop()
	}
	if env.session == nil {
		env.session = session.New()
	}
	env.logger = env.logger.With("run_id", env.session.RunID())

	hooks := env.hooks
	if env.history != nil {
		hooks = domain.ChainHooks(hooks, domain.LifecycleHooks{OnTerminal: env.record})
	}
	stepper, err := runtime.NewStepper(executor, opts,
		runtime.WithLogger(env.logger),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithSession(env.session),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	env.stepper = stepper
	return env, nil
}

// SetContext installs a fully bound context and rebuilds the truncations.
// On failure the previous context stays active.
func (e *Environment) SetContext(ctx context.Context, program domain.Program) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := program.Validate(); err != nil {
		return fmt.Errorf("invalid context: %w", err)
	}
	if err := program.RequireBound(); err != nil {
		return err
	}
	if err := e.rebuild(ctx, program.Clone(), e.device); err != nil {
		return err
	}
	e.phase = PhaseBound
	e.source = program.Clone()
	e.values = nil
	return nil
}

// SetUnboundContext installs a parametrized context together with values for its symbols.
// Every symbol must end up bound; otherwise an UnresolvedParameterError is returned and
// the previous context stays active.
func (e *Environment) SetUnboundContext(ctx context.Context, program domain.Program, values map[string]float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := program.Validate(); err != nil {
		return fmt.Errorf("invalid context: %w", err)
	}
	bound, err := program.Assign(values)
	if err != nil {
		return err
	}
	if err := bound.RequireBound(); err != nil {
		return err
	}
	if err := e.rebuild(ctx, bound, e.device); err != nil {
		return err
	}
	e.phase = PhaseUnbound
	e.source = program.Clone()
	e.values = maps.Clone(values)
	return nil
}

// AssignParameters rebinds symbols of an unbound context and rebuilds the truncations.
// Given values override the current ones; the others are kept.
func (e *Environment) AssignParameters(ctx context.Context, values map[string]float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseUnbound {
		return fmt.Errorf("assign parameters: %w", domain.ErrContextUnbound)
	}
	merged := maps.Clone(e.values)
	if merged == nil {
		merged = make(map[string]float64, len(values))
	}
	maps.Copy(merged, values)

	bound, err := e.source.Assign(merged)
	if err != nil {
		return err
	}
	if err := bound.RequireBound(); err != nil {
		return err
	}
	if err := e.rebuild(ctx, bound, e.device); err != nil {
		return err
	}
	e.values = merged
	return nil
}

// SetDevice replaces the device (coupling map, physical map, durations).
// When a context is active the truncations are rebuilt; on failure the previous device stays.
func (e *Environment) SetDevice(ctx context.Context, device domain.Device) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseNone {
		if err := e.rebuild(ctx, e.bound, device); err != nil {
			return err
		}
	}
	e.device = device
	return nil
}

// rebuild derives the truncations of program on device and swaps them in on success.
// The caller holds e.mu.
func (e *Environment) rebuild(ctx context.Context, program domain.Program, device domain.Device) error {
	started := time.Now()
	logger := e.logger.With("context", program.Name)

	t := truncation.New(e.parametrizer,
		truncation.WithLogger(logger),
		truncation.WithArgs(e.args),
		truncation.WithParamSize(e.opts.ActionDim),
		truncation.WithNReps(e.opts.NReps),
	)
	res, err := t.Build(program, e.target, device)
	loaded := false
	if err == nil {
		loaded = true
		err = e.stepper.Load(res)
	}

	ev := &domain.RebuildEvent{
		EventBase:   domain.EventBase{Timestamp: time.Now(), Type: domain.EventRebuild, RunID: e.session.RunID()},
		Program:     program.Name,
		Occurrences: res.Len(),
		Duration:    time.Since(started),
		Err:         err,
	}
	if e.hooks.OnRebuild != nil {
		e.hooks.OnRebuild(ctx, ev)
	}
	if err != nil {
		logger.Error("Rebuild failed", "err", err)
		if loaded && e.result.Len() > 0 {
			if loadErr := e.stepper.Load(e.result); loadErr != nil {
				return errors.Join(err, loadErr)
			}
		}
		return err
	}

	logger.Info("Truncations rebuilt", "occurrences", res.Len(), "duration", ev.Duration)
	e.bound = program
	e.result = res
	return nil
}

func (e *Environment) record(ctx context.Context, ev *domain.EpisodeEvent) {
	rec := domain.EpisodeRecord{
		RunID:      ev.RunID,
		Episode:    ev.State.Episode,
		GlobalStep: ev.State.GlobalStep,
		Truncation: ev.State.TruncationIndex,
		MeanAction: slices.Clone(ev.MeanAction),
		RecordedAt: ev.Timestamp,
	}
	for i, r := range ev.Reward {
		rec.MeanReward += r / float64(len(ev.Reward))
		if i == 0 || r > rec.MaxReward {
			rec.MaxReward = r
		}
	}
	if err := e.history.Record(ctx, rec); err != nil {
		e.logger.Warn("Failed to record episode", "episode", rec.Episode, "err", err)
	}
}

// Reset starts a new episode. A non-nil seed reseeds the session RNG.
func (e *Environment) Reset(ctx context.Context, seed *int64) ([]float64, map[string]any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepper.Reset(ctx, seed)
}

// Step submits one batch of actions (BatchSize rows of ActionDim values).
func (e *Environment) Step(ctx context.Context, actions [][]float64) (domain.StepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepper.Step(ctx, actions)
}

// Phase returns the context phase.
func (e *Environment) Phase() ContextPhase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Context returns a copy of the bound context in use.
func (e *Environment) Context() domain.Program {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bound.Clone()
}

// Parameters returns the values bound into an unbound context.
func (e *Environment) Parameters() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.values)
}

// Device returns the active device.
func (e *Environment) Device() domain.Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.device
}

// Options returns the episode options.
func (e *Environment) Options() Options {
	return e.opts
}

// RunID returns the id of the simulation session.
func (e *Environment) RunID() string {
	return e.session.RunID()
}

// Occurrences returns the located target occurrences.
func (e *Environment) Occurrences() []domain.Occurrence {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.result.Occurrences)
}

// Truncations returns the truncations of the active context.
func (e *Environment) Truncations() []domain.Truncation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.result.Truncations)
}

// Truncation returns the truncation of occurrence i.
func (e *Environment) Truncation(i int) (domain.Truncation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= e.result.Len() {
		return domain.Truncation{}, fmt.Errorf("truncation %d out of range [0,%d)", i, e.result.Len())
	}
	return e.result.Truncations[i], nil
}

// Target returns the target descriptor of occurrence i.
func (e *Environment) Target(i int) (domain.Target, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= e.result.Len() {
		return domain.Target{}, fmt.Errorf("target %d out of range [0,%d)", i, e.result.Len())
	}
	return e.result.Targets[i], nil
}

// Targets returns one target descriptor per occurrence.
func (e *Environment) Targets() []domain.Target {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.result.Targets)
}

// State returns the current episode state.
func (e *Environment) State() domain.EpisodeState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepper.State()
}

// EpisodeLength returns the number of steps of the current episode.
func (e *Environment) EpisodeLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepper.EpisodeLength()
}

// RewardHistory returns the shaped rewards of every terminal step.
func (e *Environment) RewardHistory() [][]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepper.RewardHistory()
}

// BestReward returns the highest mean terminal reward, or -Inf when none was recorded.
func (e *Environment) BestReward() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepper.BestReward()
}

// OptimalAction returns the mean action of the best episode.
func (e *Environment) OptimalAction() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepper.OptimalAction()
}

// MeanAction returns the mean action of the last terminal episode.
func (e *Environment) MeanAction() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepper.MeanAction()
}

// ClearHistory resets the step counters and the in-memory reward history.
// Persisted history is left alone.
func (e *Environment) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepper.ClearHistory()
}

// Summary returns the persisted history summary of this run.
func (e *Environment) Summary(ctx context.Context) (domain.Summary, error) {
	if e.history == nil {
		return domain.Summary{}, fmt.Errorf("no history store configured")
	}
	return e.history.Summary(ctx, e.session.RunID())
}

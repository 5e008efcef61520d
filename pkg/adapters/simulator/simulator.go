// Package simulator provides a deterministic in-process executor.
//
// The fidelity model is analytic: each parametrized target instance contributes
// exp(-|a_j - optimum|^2 / width), instances multiply, every nearest neighbor kept in the
// truncation costs a constant crosstalk factor and the result is raised to NReps.
// Optional Gaussian noise is drawn from the simulation session.
package simulator

import (
	"context"
	"fmt"
	"math"

	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// Config parametrizes the fidelity model.
type Config struct {
	Optimum   []float64 `mapstructure:"optimum" yaml:"optimum" json:"optimum"`
	Width     float64   `mapstructure:"width" yaml:"width" json:"width"`
	Crosstalk float64   `mapstructure:"crosstalk" yaml:"crosstalk" json:"crosstalk"`
	Noise     float64   `mapstructure:"noise" yaml:"noise" json:"noise"`
}

// DecodeConfig reads a Config from free-form executor settings.
func DecodeConfig(settings map[string]any) (Config, error) {
	cfg := Config{Width: 1}
	if err := mapstructure.WeakDecode(settings, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode simulator settings: %w", err)
	}
	if cfg.Width <= 0 {
		return Config{}, fmt.Errorf("simulator width must be > 0, got %g", cfg.Width)
	}
	if cfg.Crosstalk < 0 || cfg.Crosstalk >= 1 {
		return Config{}, fmt.Errorf("simulator crosstalk must be in [0, 1), got %g", cfg.Crosstalk)
	}
	return cfg, nil
}

// Executor scores actions with the analytic model.
type Executor struct {
	cfg Config
}

// New creates a simulator executor. A zero width is replaced by 1.
func New(cfg Config) *Executor {
	if cfg.Width <= 0 {
		cfg.Width = 1
	}
	return &Executor{cfg: cfg}
}

var _ ports.Executor = (*Executor)(nil)

// Execute returns one fidelity per action row.
func (e *Executor) Execute(ctx context.Context, req ports.ExecutionRequest) ([]float64, error) {
	levels := req.Truncation.Levels()
	if levels == 0 {
		return nil, fmt.Errorf("truncation %d has no parametrized instances", req.Truncation.Index)
	}

	neighbors := req.Truncation.Mapping.RegisterSize(domain.RoleNearestNeighbor)
	base := math.Pow(1-e.cfg.Crosstalk, float64(neighbors))
	reps := max(req.Target.NReps, 1)

	scores := make([]float64, len(req.Actions))
	for i, row := range req.Actions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Binding validates the row length against the parameter vectors.
		if _, err := req.Truncation.Bind(row); err != nil {
			return nil, err
		}
		dim := len(row) / levels
		f := base
		for j := 0; j < levels; j++ {
			f *= math.Exp(-e.distance(row[j*dim:(j+1)*dim]) / e.cfg.Width)
		}
		f = math.Pow(f, float64(reps))
		if e.cfg.Noise > 0 && req.Session != nil {
			f += e.cfg.Noise * req.Session.NormFloat64()
		}
		scores[i] = min(max(f, 0), 1)
	}
	return scores, nil
}

// distance is the squared distance to the optimum; missing optimum entries are 0.
func (e *Executor) distance(a []float64) float64 {
	d := 0.0
	for k, x := range a {
		opt := 0.0
		if k < len(e.cfg.Optimum) {
			opt = e.cfg.Optimum[k]
		}
		d += (x - opt) * (x - opt)
	}
	return d
}

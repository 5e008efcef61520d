// Package policy holds exploration policies that need no learning algorithm.
package policy

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/session"
)

// Gaussian samples every action independently from N(Mean[d], Std[d]).
type Gaussian struct {
	batch int
	mean  []float64
	std   []float64
	rng   *session.SimulationSession
}

// NewGaussian creates a sampler for batch rows of len(mean) values.
// std must be empty (unit deviation), of length 1 (shared) or of len(mean).
func NewGaussian(batch int, mean, std []float64, rng *session.SimulationSession) (*Gaussian, error) {
	if batch < 1 || len(mean) == 0 {
		return nil, fmt.Errorf("gaussian policy: batch and mean must be non-empty")
	}
	switch len(std) {
	case 0:
		std = []float64{1}
		fallthrough
	case 1:
		std = slices.Repeat(std, len(mean))
	case len(mean):
	default:
		return nil, fmt.Errorf("gaussian policy: %d deviations for %d dimensions", len(std), len(mean))
	}
	if rng == nil {
		rng = session.New()
	}
	return &Gaussian{batch: batch, mean: slices.Clone(mean), std: slices.Clone(std), rng: rng}, nil
}

// Act ignores the observation and draws a fresh batch.
func (g *Gaussian) Act(_ context.Context, _ []float64, _ domain.EpisodeState) ([][]float64, error) {
	out := make([][]float64, g.batch)
	for b := range out {
		row := make([]float64, len(g.mean))
		for d := range row {
			row[d] = g.mean[d] + g.std[d]*g.rng.NormFloat64()
		}
		out[b] = row
	}
	return out, nil
}

// Recenter moves the sampling mean, e.g. to the best action found so far.
func (g *Gaussian) Recenter(mean []float64) error {
	if len(mean) != len(g.mean) {
		return fmt.Errorf("gaussian policy: mean has %d values, want %d", len(mean), len(g.mean))
	}
	copy(g.mean, mean)
	return nil
}

// Mean returns a copy of the sampling mean.
func (g *Gaussian) Mean() []float64 {
	return slices.Clone(g.mean)
}

package ports

import (
	"context"

	"github.com/aretw0/qcal/pkg/domain"
)

// Policy chooses the action batch for the next step.
// Learning algorithms live outside this module; they plug in here.
type Policy interface {
	Act(ctx context.Context, observation []float64, state domain.EpisodeState) ([][]float64, error)
}

// Learner is an optional Policy extension notified with the outcome of each step.
type Learner interface {
	Observe(ctx context.Context, actions [][]float64, result domain.StepResult) error
}

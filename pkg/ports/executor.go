package ports

import (
	"context"

	"github.com/aretw0/qcal/pkg/domain"
	"github.com/aretw0/qcal/pkg/session"
)

// ExecutionRequest carries everything a backend needs to score one batch.
type ExecutionRequest struct {
	Session    *session.SimulationSession
	Truncation domain.Truncation
	Target     domain.Target
	// Actions has one row per batch element; each row holds (Truncation.Index+1)*dim values.
	Actions [][]float64
}

// BatchSize returns the number of rows in the request.
func (r ExecutionRequest) BatchSize() int {
	return len(r.Actions)
}

// Executor scores the custom program of a truncation for each action row.
// It must return exactly one score per row; the stepper validates the result.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) ([]float64, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req ExecutionRequest) ([]float64, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, req ExecutionRequest) ([]float64, error) {
	return f(ctx, req)
}

package ports

import (
	"context"

	"github.com/aretw0/qcal/pkg/domain"
)

// HistoryStore persists the terminal episodes of training runs.
type HistoryStore interface {
	// Append stores one record under rec.RunID.
	Append(ctx context.Context, rec domain.EpisodeRecord) error

	// History returns the records of a run in insertion order.
	// Returns domain.ErrRunNotFound if the run has no records.
	History(ctx context.Context, runID string) ([]domain.EpisodeRecord, error)

	// Delete removes all records of a run.
	Delete(ctx context.Context, runID string) error

	// Runs lists the known run ids.
	Runs(ctx context.Context) ([]string, error)
}

package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/qcal/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunHistoryStoreContract verifies that a HistoryStore implementation
// adheres to the interface contract.
func RunHistoryStoreContract(t *testing.T, store HistoryStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405.000000000")

	record := func(run string, episode int, reward float64) domain.EpisodeRecord {
		return domain.EpisodeRecord{
			RunID:      run,
			Episode:    episode,
			GlobalStep: episode * 3,
			Truncation: episode % 2,
			MeanReward: reward,
			MaxReward:  reward + 0.5,
			MeanAction: []float64{0.1 * float64(episode), -0.2},
			RecordedAt: time.Unix(1700000000+int64(episode), 0).UTC(),
		}
	}

	t.Run("Append and History", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, record(runID, 1, 2.5)))
		require.NoError(t, store.Append(ctx, record(runID, 2, 3.0)))

		got, err := store.History(ctx, runID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].Episode)
		assert.Equal(t, 2, got[1].Episode)
		assert.InDelta(t, 3.0, got[1].MeanReward, 1e-12)
		assert.Equal(t, []float64{0.2, -0.2}, got[1].MeanAction)
		assert.True(t, got[0].RecordedAt.Equal(time.Unix(1700000001, 0)))
	})

	t.Run("History Non-Existent", func(t *testing.T) {
		_, err := store.History(ctx, "missing-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Runs", func(t *testing.T) {
		other := runID + "-other"
		require.NoError(t, store.Append(ctx, record(other, 1, 1.0)))
		defer func() { _ = store.Delete(ctx, other) }()

		runs, err := store.Runs(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, runID)
		assert.Contains(t, runs, other)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, runID))

		_, err := store.History(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "History after Delete should return ErrRunNotFound")

		runs, err := store.Runs(ctx)
		require.NoError(t, err)
		assert.NotContains(t, runs, runID)
	})
}

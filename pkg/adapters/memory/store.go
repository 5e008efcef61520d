package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/qcal/pkg/domain"
)

// Store implements ports.HistoryStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]domain.EpisodeRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]domain.EpisodeRecord),
	}
}

func copyRecord(rec domain.EpisodeRecord) domain.EpisodeRecord {
	rec.MeanAction = slices.Clone(rec.MeanAction)
	return rec
}

// Append stores a copy of the record.
func (s *Store) Append(ctx context.Context, rec domain.EpisodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.RunID] = append(s.data[rec.RunID], copyRecord(rec))
	return nil
}

// History returns copies so callers can't mutate the stored records.
func (s *Store) History(ctx context.Context, runID string) ([]domain.EpisodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.data[runID]
	if !ok || len(records) == 0 {
		return nil, domain.ErrRunNotFound
	}
	out := make([]domain.EpisodeRecord, len(records))
	for i, r := range records {
		out[i] = copyRecord(r)
	}
	return out, nil
}

// Delete removes a run.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// Runs returns the known run ids in sorted order.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.data))
	for id := range s.data {
		runs = append(runs, id)
	}
	slices.Sort(runs)
	return runs, nil
}

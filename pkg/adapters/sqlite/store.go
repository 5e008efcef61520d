// Package sqlite persists training history in a SQLite database (pure Go driver).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/qcal/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	episode      INTEGER NOT NULL,
	global_step  INTEGER NOT NULL,
	truncation   INTEGER NOT NULL,
	mean_reward  REAL NOT NULL,
	max_reward   REAL NOT NULL,
	mean_action  TEXT NOT NULL,
	recorded_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS episodes_run ON episodes (run_id, id);
`

// Store implements ports.HistoryStore on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts one record.
func (s *Store) Append(ctx context.Context, rec domain.EpisodeRecord) error {
	action, err := json.Marshal(rec.MeanAction)
	if err != nil {
		return fmt.Errorf("encode mean action: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO episodes (run_id, episode, global_step, truncation, mean_reward, max_reward, mean_action, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Episode, rec.GlobalStep, rec.Truncation, rec.MeanReward, rec.MaxReward,
		string(action), rec.RecordedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// History returns the records of a run in insertion order.
func (s *Store) History(ctx context.Context, runID string) ([]domain.EpisodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT episode, global_step, truncation, mean_reward, max_reward, mean_action, recorded_at
		FROM episodes WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EpisodeRecord
	for rows.Next() {
		rec := domain.EpisodeRecord{RunID: runID}
		var action, recorded string
		if err := rows.Scan(&rec.Episode, &rec.GlobalStep, &rec.Truncation, &rec.MeanReward, &rec.MaxReward, &action, &recorded); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(action), &rec.MeanAction); err != nil {
			return nil, fmt.Errorf("decode mean action of %s/%d: %w", runID, rec.Episode, err)
		}
		if rec.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, fmt.Errorf("decode timestamp of %s/%d: %w", runID, rec.Episode, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrRunNotFound
	}
	return out, nil
}

// Delete removes all records of a run.
func (s *Store) Delete(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE run_id = ?`, runID)
	return err
}

// Runs lists the distinct run ids in sorted order.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT run_id FROM episodes ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

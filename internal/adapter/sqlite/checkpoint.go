// Package sqlite persists built tweet records so an interrupted run can
// resume without geocoding the same posts again.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
)

// CheckpointStore implements pipeline.Checkpointer using modernc.org/sqlite.
type CheckpointStore struct {
	db *sql.DB
}

// Open opens a SQLite database at the given path, configures WAL mode, and
// applies the schema.
func Open(ctx context.Context, dsn string) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}

	s := &CheckpointStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS checkpoints (
	post_id  TEXT PRIMARY KEY,
	status   TEXT NOT NULL,
	record   TEXT NOT NULL,
	saved_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_checkpoints_status ON checkpoints(status);
`

func (s *CheckpointStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migration); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

// Lookup returns the checkpointed record for postID, if any.
func (s *CheckpointStore) Lookup(ctx context.Context, postID string) (domain.TweetRecord, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM checkpoints WHERE post_id = ?`, postID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TweetRecord{}, false, nil
	}
	if err != nil {
		return domain.TweetRecord{}, false, fmt.Errorf("sqlite: lookup %s: %w", postID, err)
	}

	var r domain.TweetRecord
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return domain.TweetRecord{}, false, fmt.Errorf("sqlite: decode record %s: %w", postID, err)
	}
	return r, true, nil
}

// Save upserts a record keyed by its post ID.
func (s *CheckpointStore) Save(ctx context.Context, r domain.TweetRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("sqlite: marshal record %s: %w", r.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (post_id, status, record, saved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(post_id) DO UPDATE SET status = excluded.status, record = excluded.record, saved_at = excluded.saved_at`,
		r.ID, string(r.Geo.Status), string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save record %s: %w", r.ID, err)
	}
	return nil
}

// Count returns the number of checkpointed records.
func (s *CheckpointStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkpoints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count checkpoints: %w", err)
	}
	return n, nil
}

// CheckReadiness pings the database.
func (s *CheckpointStore) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/state"
)

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (quiz.Snapshot, error) {
	var (
		raw       string
		updatedAt int64
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT snapshot_json, updated_at_unix FROM sessions WHERE session_id = ?`,
		sessionID,
	).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.Snapshot{}, state.ErrNotFound
	}
	if err != nil {
		return quiz.Snapshot{}, err
	}
	if s.expired(updatedAt) {
		return quiz.Snapshot{}, state.ErrNotFound
	}

	var snap quiz.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return quiz.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Save upserts the snapshot; the latest write for a session always wins.
func (s *SQLiteStore) Save(ctx context.Context, sessionID string, snap quiz.Snapshot) error {
	encoded, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (session_id, snapshot_json, updated_at_unix)
		 VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			snapshot_json = excluded.snapshot_json,
			updated_at_unix = excluded.updated_at_unix`,
		sessionID,
		string(encoded),
		s.now().Unix(),
	)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

// PruneExpired removes snapshots older than the store ttl and reports how many
// rows were deleted.
func (s *SQLiteStore) PruneExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at_unix < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) expired(updatedAt int64) bool {
	return s.ttl > 0 && updatedAt < s.now().Add(-s.ttl).Unix()
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

const snapshotColumns = `race_id, user_id, category, roster_id, payload, hash, created_at`

func scanSnapshot(row rowScanner) (storage.SnapshotRecord, error) {
	var (
		rec       storage.SnapshotRecord
		category  string
		createdAt int64
	)
	if err := row.Scan(&rec.RaceID, &rec.UserID, &category, &rec.RosterID, &rec.Payload, &rec.Hash, &createdAt); err != nil {
		return storage.SnapshotRecord{}, err
	}
	rec.Category = rider.Category(category)
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}

// GetSnapshot loads the snapshot for a user and category in a race.
func (s *Store) GetSnapshot(ctx context.Context, raceID, userID string, category rider.Category) (storage.SnapshotRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SnapshotRecord{}, err
	}
	rec, err := scanSnapshot(s.db.QueryRowContext(ctx, `
SELECT `+snapshotColumns+`
FROM race_snapshots
WHERE race_id = ? AND user_id = ? AND category = ?
`, raceID, userID, string(category)))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.SnapshotRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.SnapshotRecord{}, fmt.Errorf("get snapshot: %w", err)
	}
	return rec, nil
}

// ListSnapshots lists a race's snapshots ordered by category then user.
func (s *Store) ListSnapshots(ctx context.Context, raceID string) ([]storage.SnapshotRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+snapshotColumns+`
FROM race_snapshots
WHERE race_id = ?
ORDER BY category, user_id
`, raceID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var records []storage.SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return records, nil
}

// PutSnapshot inserts or overwrites a snapshot.
func (s *Store) PutSnapshot(ctx context.Context, snap storage.SnapshotRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if snap.RaceID == "" || snap.UserID == "" || snap.Category == "" {
		return fmt.Errorf("race id, user id, and category are required")
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO race_snapshots (`+snapshotColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(race_id, user_id, category) DO UPDATE SET
	roster_id = excluded.roster_id,
	payload = excluded.payload,
	hash = excluded.hash,
	created_at = excluded.created_at
`,
		snap.RaceID,
		snap.UserID,
		string(snap.Category),
		snap.RosterID,
		snap.Payload,
		snap.Hash,
		toMillis(snap.CreatedAt),
	); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// DeleteSnapshots removes every snapshot of a race.
func (s *Store) DeleteSnapshots(ctx context.Context, raceID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM race_snapshots WHERE race_id = ?`, raceID)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	return rowsAffected(res, "delete snapshots")
}

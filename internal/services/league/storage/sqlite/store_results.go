package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/scoring"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

// PutResults upserts raw results.
func (s *Store) PutResults(ctx context.Context, results []storage.ResultRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, r := range results {
		if r.RaceID == "" || r.RiderID == "" {
			return fmt.Errorf("race id and rider id are required")
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
		var position sql.NullInt64
		if r.Position != nil {
			position = sql.NullInt64{Int64: int64(*r.Position), Valid: true}
		}
		if _, err := s.db.ExecContext(ctx, `
INSERT INTO race_results (race_id, rider_id, status, position, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(race_id, rider_id) DO UPDATE SET
	status = excluded.status,
	position = excluded.position,
	updated_at = excluded.updated_at
`,
			r.RaceID,
			r.RiderID,
			string(r.Status),
			position,
			toMillis(r.UpdatedAt),
		); err != nil {
			return fmt.Errorf("put result %s: %w", r.RiderID, err)
		}
	}
	return nil
}

// ListResults lists a race's results ordered by rider id.
func (s *Store) ListResults(ctx context.Context, raceID string) ([]storage.ResultRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT race_id, rider_id, status, position, updated_at
FROM race_results
WHERE race_id = ?
ORDER BY rider_id
`, raceID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var records []storage.ResultRecord
	for rows.Next() {
		var (
			rec       storage.ResultRecord
			status    string
			position  sql.NullInt64
			updatedAt int64
		)
		if err := rows.Scan(&rec.RaceID, &rec.RiderID, &status, &position, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		parsed, ok := scoring.ParseResultStatus(status)
		if !ok {
			return nil, fmt.Errorf("result %s/%s has unknown status %q", rec.RaceID, rec.RiderID, status)
		}
		rec.Status = parsed
		if position.Valid {
			p := int(position.Int64)
			rec.Position = &p
		}
		rec.UpdatedAt = fromMillis(updatedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return records, nil
}

// DeleteResults removes every raw result of a race.
func (s *Store) DeleteResults(ctx context.Context, raceID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM race_results WHERE race_id = ?`, raceID)
	if err != nil {
		return 0, fmt.Errorf("delete results: %w", err)
	}
	return rowsAffected(res, "delete results")
}

// GetResultSet loads the result set last used to settle a race.
func (s *Store) GetResultSet(ctx context.Context, raceID string) (storage.ResultSetRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ResultSetRecord{}, err
	}
	var (
		rec       storage.ResultSetRecord
		final     int
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT race_id, hash, is_final, updated_at
FROM race_result_sets
WHERE race_id = ?
`, raceID).Scan(&rec.RaceID, &rec.Hash, &final, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ResultSetRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ResultSetRecord{}, fmt.Errorf("get result set: %w", err)
	}
	rec.Final = final != 0
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}

// PutResultSet upserts the result set used for a race.
func (s *Store) PutResultSet(ctx context.Context, set storage.ResultSetRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if set.RaceID == "" || set.Hash == "" {
		return fmt.Errorf("race id and hash are required")
	}
	if set.UpdatedAt.IsZero() {
		set.UpdatedAt = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO race_result_sets (race_id, hash, is_final, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(race_id) DO UPDATE SET
	hash = excluded.hash,
	is_final = excluded.is_final,
	updated_at = excluded.updated_at
`, set.RaceID, set.Hash, boolToInt(set.Final), toMillis(set.UpdatedAt)); err != nil {
		return fmt.Errorf("put result set: %w", err)
	}
	return nil
}

// DeleteResultSet removes a race's result set record.
func (s *Store) DeleteResultSet(ctx context.Context, raceID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM race_result_sets WHERE race_id = ?`, raceID)
	if err != nil {
		return 0, fmt.Errorf("delete result set: %w", err)
	}
	return rowsAffected(res, "delete result set")
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

const scoreColumns = `race_id, user_id, category, roster_id, total_points, breakdown, snapshot_hash, result_hash, computed_at`

func scanScore(row rowScanner) (storage.ScoreRecord, error) {
	var (
		rec        storage.ScoreRecord
		category   string
		computedAt int64
	)
	if err := row.Scan(&rec.RaceID, &rec.UserID, &category, &rec.RosterID, &rec.Total, &rec.Breakdown, &rec.SnapshotHash, &rec.ResultHash, &computedAt); err != nil {
		return storage.ScoreRecord{}, err
	}
	rec.Category = rider.Category(category)
	rec.ComputedAt = fromMillis(computedAt)
	return rec, nil
}

// GetScore loads a user's score for a race.
func (s *Store) GetScore(ctx context.Context, raceID, userID string, category rider.Category) (storage.ScoreRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ScoreRecord{}, err
	}
	rec, err := scanScore(s.db.QueryRowContext(ctx, `
SELECT `+scoreColumns+`
FROM race_scores
WHERE race_id = ? AND user_id = ? AND category = ?
`, raceID, userID, string(category)))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ScoreRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ScoreRecord{}, fmt.Errorf("get score: %w", err)
	}
	return rec, nil
}

// PutScore inserts or overwrites a score.
func (s *Store) PutScore(ctx context.Context, score storage.ScoreRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if score.RaceID == "" || score.UserID == "" || score.Category == "" {
		return fmt.Errorf("race id, user id, and category are required")
	}
	if score.ComputedAt.IsZero() {
		score.ComputedAt = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO race_scores (`+scoreColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(race_id, user_id, category) DO UPDATE SET
	roster_id = excluded.roster_id,
	total_points = excluded.total_points,
	breakdown = excluded.breakdown,
	snapshot_hash = excluded.snapshot_hash,
	result_hash = excluded.result_hash,
	computed_at = excluded.computed_at
`,
		score.RaceID,
		score.UserID,
		string(score.Category),
		score.RosterID,
		score.Total,
		score.Breakdown,
		score.SnapshotHash,
		score.ResultHash,
		toMillis(score.ComputedAt),
	); err != nil {
		return fmt.Errorf("put score: %w", err)
	}
	return nil
}

// ListRaceScores lists a race's scores for one category.
func (s *Store) ListRaceScores(ctx context.Context, raceID string, category rider.Category) ([]storage.ScoreRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.queryScores(ctx, `
SELECT `+scoreColumns+`
FROM race_scores
WHERE race_id = ? AND category = ?
ORDER BY user_id
`, raceID, string(category))
}

// ListSettledScores lists the scores of every settled race in a season.
func (s *Store) ListSettledScores(ctx context.Context, seasonID string, category rider.Category) ([]storage.ScoreRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.queryScores(ctx, `
SELECT s.race_id, s.user_id, s.category, s.roster_id, s.total_points, s.breakdown, s.snapshot_hash, s.result_hash, s.computed_at
FROM race_scores s
JOIN races r ON r.id = s.race_id
WHERE r.season_id = ? AND r.status = ? AND s.category = ?
ORDER BY r.starts_at, s.race_id, s.user_id
`, seasonID, string(race.StatusSettled), string(category))
}

func (s *Store) queryScores(ctx context.Context, query string, args ...any) ([]storage.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	var records []storage.ScoreRecord
	for rows.Next() {
		rec, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return records, nil
}

// DeleteScores removes every score of a race.
func (s *Store) DeleteScores(ctx context.Context, raceID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM race_scores WHERE race_id = ?`, raceID)
	if err != nil {
		return 0, fmt.Errorf("delete scores: %w", err)
	}
	return rowsAffected(res, "delete scores")
}

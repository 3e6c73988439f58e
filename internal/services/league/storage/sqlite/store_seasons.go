package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

// PutSeason upserts a season.
func (s *Store) PutSeason(ctx context.Context, season storage.SeasonRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	season.ID = strings.TrimSpace(season.ID)
	if season.ID == "" {
		return fmt.Errorf("season id is required")
	}
	if season.CreatedAt.IsZero() {
		season.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO seasons (id, name, starts_at, ends_at, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	starts_at = excluded.starts_at,
	ends_at = excluded.ends_at
`,
		season.ID,
		season.Name,
		toMillis(season.StartsAt),
		toMillis(season.EndsAt),
		toMillis(season.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put season: %w", err)
	}
	return nil
}

// GetSeason loads a season by id.
func (s *Store) GetSeason(ctx context.Context, id string) (storage.SeasonRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SeasonRecord{}, err
	}

	var (
		rec                         storage.SeasonRecord
		startsAt, endsAt, createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, name, starts_at, ends_at, created_at
FROM seasons
WHERE id = ?
`, id).Scan(&rec.ID, &rec.Name, &startsAt, &endsAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.SeasonRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.SeasonRecord{}, fmt.Errorf("get season: %w", err)
	}
	rec.StartsAt = fromMillis(startsAt)
	rec.EndsAt = fromMillis(endsAt)
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}

const raceColumns = `id, season_id, name, starts_at, lock_at, status, needs_resettle, results_final, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRace(row rowScanner) (storage.RaceRecord, error) {
	var (
		rec                                    storage.RaceRecord
		status                                 string
		needsResettle, resultsFinal            int
		startsAt, lockAt, createdAt, updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.SeasonID, &rec.Name, &startsAt, &lockAt, &status, &needsResettle, &resultsFinal, &createdAt, &updatedAt); err != nil {
		return storage.RaceRecord{}, err
	}
	parsed, ok := race.ParseStatus(status)
	if !ok {
		return storage.RaceRecord{}, fmt.Errorf("race %s has unknown status %q", rec.ID, status)
	}
	rec.Status = parsed
	rec.NeedsResettle = needsResettle != 0
	rec.ResultsFinal = resultsFinal != 0
	rec.StartsAt = fromMillis(startsAt)
	rec.LockAt = fromMillis(lockAt)
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}

// PutRace upserts a race.
func (s *Store) PutRace(ctx context.Context, r storage.RaceRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return fmt.Errorf("race id is required")
	}
	if r.SeasonID == "" {
		return fmt.Errorf("season id is required")
	}
	if r.Status == "" {
		r.Status = race.StatusScheduled
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO races (`+raceColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	starts_at = excluded.starts_at,
	lock_at = excluded.lock_at,
	status = excluded.status,
	needs_resettle = excluded.needs_resettle,
	results_final = excluded.results_final,
	updated_at = excluded.updated_at
`,
		r.ID,
		r.SeasonID,
		r.Name,
		toMillis(r.StartsAt),
		toMillis(r.LockAt),
		string(r.Status),
		boolToInt(r.NeedsResettle),
		boolToInt(r.ResultsFinal),
		toMillis(r.CreatedAt),
		toMillis(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put race: %w", err)
	}
	return nil
}

// GetRace loads a race by id.
func (s *Store) GetRace(ctx context.Context, id string) (storage.RaceRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.RaceRecord{}, err
	}
	rec, err := scanRace(s.db.QueryRowContext(ctx, `SELECT `+raceColumns+` FROM races WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.RaceRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.RaceRecord{}, fmt.Errorf("get race: %w", err)
	}
	return rec, nil
}

// ListRaces lists a season's races by start time.
func (s *Store) ListRaces(ctx context.Context, seasonID string) ([]storage.RaceRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.queryRaces(ctx, `SELECT `+raceColumns+` FROM races WHERE season_id = ? ORDER BY starts_at, id`, seasonID)
}

// ListRacesByStatus lists races in any of statuses by start time.
func (s *Store) ListRacesByStatus(ctx context.Context, statuses ...race.Status) ([]storage.RaceRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	return s.queryRaces(ctx, `SELECT `+raceColumns+` FROM races WHERE status IN (`+placeholders(len(args))+`) ORDER BY starts_at, id`, args...)
}

func (s *Store) queryRaces(ctx context.Context, query string, args ...any) ([]storage.RaceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	defer rows.Close()

	var records []storage.RaceRecord
	for rows.Next() {
		rec, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan race: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate races: %w", err)
	}
	return records, nil
}

// UpdateRaceState writes the lifecycle state when it differs from the
// stored one.
func (s *Store) UpdateRaceState(ctx context.Context, id string, state storage.RaceState, updatedAt time.Time) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	status := string(state.Status)
	needsResettle := boolToInt(state.NeedsResettle)
	resultsFinal := boolToInt(state.ResultsFinal)
	res, err := s.db.ExecContext(ctx, `
UPDATE races
SET status = ?, needs_resettle = ?, results_final = ?, updated_at = ?
WHERE id = ? AND (status <> ? OR needs_resettle <> ? OR results_final <> ?)
`,
		status,
		needsResettle,
		resultsFinal,
		toMillis(updatedAt),
		id,
		status,
		needsResettle,
		resultsFinal,
	)
	if err != nil {
		return false, fmt.Errorf("update race state: %w", err)
	}
	n, err := rowsAffected(res, "update race state")
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := s.GetRace(ctx, id); err != nil {
			return false, err
		}
	}
	return n > 0, nil
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

// ListCostUpdates lists the cost changes applied from a race.
func (s *Store) ListCostUpdates(ctx context.Context, raceID string) ([]storage.CostUpdateRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT race_id, rider_id, previous_cost, new_cost, delta, result_hash, applied_at
FROM rider_cost_updates
WHERE race_id = ?
ORDER BY rider_id
`, raceID)
	if err != nil {
		return nil, fmt.Errorf("list cost updates: %w", err)
	}
	defer rows.Close()

	var records []storage.CostUpdateRecord
	for rows.Next() {
		var (
			rec       storage.CostUpdateRecord
			appliedAt int64
		)
		if err := rows.Scan(&rec.RaceID, &rec.RiderID, &rec.PreviousCost, &rec.NewCost, &rec.Delta, &rec.ResultHash, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan cost update: %w", err)
		}
		rec.AppliedAt = fromMillis(appliedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cost updates: %w", err)
	}
	return records, nil
}

// PutCostUpdates records applied cost changes.
func (s *Store) PutCostUpdates(ctx context.Context, updates []storage.CostUpdateRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, u := range updates {
		if u.RaceID == "" || u.RiderID == "" {
			return fmt.Errorf("race id and rider id are required")
		}
		if u.AppliedAt.IsZero() {
			u.AppliedAt = now
		}
		if _, err := s.db.ExecContext(ctx, `
INSERT INTO rider_cost_updates (race_id, rider_id, previous_cost, new_cost, delta, result_hash, applied_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(race_id, rider_id) DO UPDATE SET
	previous_cost = excluded.previous_cost,
	new_cost = excluded.new_cost,
	delta = excluded.delta,
	result_hash = excluded.result_hash,
	applied_at = excluded.applied_at
`,
			u.RaceID,
			u.RiderID,
			u.PreviousCost,
			u.NewCost,
			u.Delta,
			u.ResultHash,
			toMillis(u.AppliedAt),
		); err != nil {
			return fmt.Errorf("put cost update %s: %w", u.RiderID, err)
		}
	}
	return nil
}

// DeleteCostUpdates removes a race's cost audit rows.
func (s *Store) DeleteCostUpdates(ctx context.Context, raceID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM rider_cost_updates WHERE race_id = ?`, raceID)
	if err != nil {
		return 0, fmt.Errorf("delete cost updates: %w", err)
	}
	return rowsAffected(res, "delete cost updates")
}

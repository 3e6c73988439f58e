package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

// PutRiders upserts catalog riders.
func (s *Store) PutRiders(ctx context.Context, riders []storage.RiderRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, r := range riders {
		r.ID = strings.TrimSpace(r.ID)
		if r.ID == "" {
			return fmt.Errorf("rider id is required")
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
		if _, err := s.db.ExecContext(ctx, `
INSERT INTO riders (id, name, gender, category, cost, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	gender = excluded.gender,
	category = excluded.category,
	cost = excluded.cost,
	updated_at = excluded.updated_at
`,
			r.ID,
			r.Name,
			string(r.Gender),
			string(r.Category),
			r.Cost,
			toMillis(r.UpdatedAt),
		); err != nil {
			return fmt.Errorf("put rider %s: %w", r.ID, err)
		}
	}
	return nil
}

// GetRiders returns the riders known among ids.
func (s *Store) GetRiders(ctx context.Context, ids []string) (map[string]storage.RiderRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]storage.RiderRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, gender, category, cost, updated_at
FROM riders
WHERE id IN (`+placeholders(len(args))+`)
`, args...)
	if err != nil {
		return nil, fmt.Errorf("get riders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec              storage.RiderRecord
			gender, category string
			updatedAt        int64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &gender, &category, &rec.Cost, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan rider: %w", err)
		}
		rec.Gender = rider.Gender(gender)
		rec.Category = rider.Category(category)
		rec.UpdatedAt = fromMillis(updatedAt)
		out[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate riders: %w", err)
	}
	return out, nil
}

// Profiles implements rider.Catalog.
func (s *Store) Profiles(ctx context.Context, ids []string) (map[string]rider.Profile, error) {
	records, err := s.GetRiders(ctx, ids)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]rider.Profile, len(records))
	for id, rec := range records {
		profiles[id] = rec.Profile()
	}
	return profiles, nil
}

// UpdateRiderCost sets a rider's catalog cost.
func (s *Store) UpdateRiderCost(ctx context.Context, id string, cost int64, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE riders SET cost = ?, updated_at = ? WHERE id = ?`, cost, toMillis(updatedAt), id)
	if err != nil {
		return fmt.Errorf("update rider cost: %w", err)
	}
	n, err := rowsAffected(res, "update rider cost")
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var _ rider.Catalog = (*Store)(nil)

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

const (
	roleStarter = "starter"
	roleBench   = "bench"
)

const rosterColumns = `id, user_id, season_id, category, name, budget_cap, transfers_used, current_race_id, created_at, updated_at`

func scanRoster(row rowScanner) (storage.RosterRecord, error) {
	var (
		rec                  storage.RosterRecord
		category             string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.SeasonID, &category, &rec.Name, &rec.BudgetCap, &rec.TransfersUsed, &rec.CurrentRaceID, &createdAt, &updatedAt); err != nil {
		return storage.RosterRecord{}, err
	}
	rec.Category = rider.Category(category)
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}

// GetRoster loads a user's team with its members.
func (s *Store) GetRoster(ctx context.Context, userID, seasonID string, category rider.Category) (storage.RosterRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.RosterRecord{}, err
	}
	rec, err := scanRoster(s.db.QueryRowContext(ctx, `
SELECT `+rosterColumns+`
FROM rosters
WHERE user_id = ? AND season_id = ? AND category = ?
`, userID, seasonID, string(category)))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.RosterRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.RosterRecord{}, fmt.Errorf("get roster: %w", err)
	}

	members, err := s.listMembers(ctx, []string{rec.ID})
	if err != nil {
		return storage.RosterRecord{}, err
	}
	rec.Members = members[rec.ID]
	return rec, nil
}

// ListRosters lists every team of a season category with members, ordered by
// user id.
func (s *Store) ListRosters(ctx context.Context, seasonID string, category rider.Category) ([]storage.RosterRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+rosterColumns+`
FROM rosters
WHERE season_id = ? AND category = ?
ORDER BY user_id
`, seasonID, string(category))
	if err != nil {
		return nil, fmt.Errorf("list rosters: %w", err)
	}

	var records []storage.RosterRecord
	for rows.Next() {
		rec, err := scanRoster(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		records = append(records, rec)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate rosters: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	members, err := s.listMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Members = members[records[i].ID]
	}
	return records, nil
}

func (s *Store) listMembers(ctx context.Context, rosterIDs []string) (map[string][]storage.RosterMember, error) {
	args := make([]any, len(rosterIDs))
	for i, id := range rosterIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT roster_id, rider_id, slot, role, cost
FROM roster_members
WHERE roster_id IN (`+placeholders(len(args))+`)
ORDER BY roster_id, role DESC, slot
`, args...)
	if err != nil {
		return nil, fmt.Errorf("list roster members: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]storage.RosterMember, len(rosterIDs))
	for rows.Next() {
		var (
			rosterID, role string
			m              storage.RosterMember
		)
		if err := rows.Scan(&rosterID, &m.RiderID, &m.Slot, &role, &m.Cost); err != nil {
			return nil, fmt.Errorf("scan roster member: %w", err)
		}
		m.Bench = role == roleBench
		out[rosterID] = append(out[rosterID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster members: %w", err)
	}
	return out, nil
}

// PutRoster upserts a team and replaces its members.
func (s *Store) PutRoster(ctx context.Context, roster storage.RosterRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if roster.ID == "" || roster.UserID == "" || roster.SeasonID == "" {
		return fmt.Errorf("roster id, user id, and season id are required")
	}
	now := time.Now().UTC()
	if roster.CreatedAt.IsZero() {
		roster.CreatedAt = now
	}
	if roster.UpdatedAt.IsZero() {
		roster.UpdatedAt = now
	}

	return s.InTx(ctx, func(tx storage.Store) error {
		st := tx.(*Store)
		if _, err := st.db.ExecContext(ctx, `
INSERT INTO rosters (`+rosterColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	budget_cap = excluded.budget_cap,
	transfers_used = excluded.transfers_used,
	current_race_id = excluded.current_race_id,
	updated_at = excluded.updated_at
`,
			roster.ID,
			roster.UserID,
			roster.SeasonID,
			string(roster.Category),
			roster.Name,
			roster.BudgetCap,
			roster.TransfersUsed,
			roster.CurrentRaceID,
			toMillis(roster.CreatedAt),
			toMillis(roster.UpdatedAt),
		); err != nil {
			return fmt.Errorf("put roster: %w", err)
		}

		if _, err := st.db.ExecContext(ctx, `DELETE FROM roster_members WHERE roster_id = ?`, roster.ID); err != nil {
			return fmt.Errorf("clear roster members: %w", err)
		}
		for _, m := range roster.Members {
			role := roleStarter
			slot := m.Slot
			if m.Bench {
				role = roleBench
				slot = 0
			}
			if _, err := st.db.ExecContext(ctx, `
INSERT INTO roster_members (roster_id, rider_id, slot, role, cost)
VALUES (?, ?, ?, ?, ?)
`, roster.ID, m.RiderID, slot, role, m.Cost); err != nil {
				return fmt.Errorf("put roster member %s: %w", m.RiderID, err)
			}
		}
		return nil
	})
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

// GetJoker loads a user's played joker for a season.
func (s *Store) GetJoker(ctx context.Context, userID, seasonID string) (storage.JokerRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.JokerRecord{}, err
	}
	var (
		rec      storage.JokerRecord
		usedAt   int64
		category string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT user_id, season_id, used_at, active_race_id, active_category
FROM jokers
WHERE user_id = ? AND season_id = ?
`, userID, seasonID).Scan(&rec.UserID, &rec.SeasonID, &usedAt, &rec.ActiveRaceID, &category)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.JokerRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.JokerRecord{}, fmt.Errorf("get joker: %w", err)
	}
	rec.UsedAt = fromMillis(usedAt)
	rec.ActiveCategory = rider.Category(category)
	return rec, nil
}

// PutJoker records a played joker. A second joker for the same user and
// season violates the primary key.
func (s *Store) PutJoker(ctx context.Context, joker storage.JokerRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if joker.UserID == "" || joker.SeasonID == "" {
		return fmt.Errorf("user id and season id are required")
	}
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO jokers (user_id, season_id, used_at, active_race_id, active_category)
VALUES (?, ?, ?, ?, ?)
`,
		joker.UserID,
		joker.SeasonID,
		toMillis(joker.UsedAt),
		joker.ActiveRaceID,
		string(joker.ActiveCategory),
	); err != nil {
		return fmt.Errorf("put joker: %w", err)
	}
	return nil
}

package app

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/joker"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

// UseJoker plays the user's season joker on one category: the team is
// emptied and transfers are unlimited until the next race locks.
func (s *Service) UseJoker(ctx context.Context, userID, category, seasonID string) (rec storage.JokerRecord, err error) {
	ctx, span := s.startSpan(ctx, "UseJoker",
		attribute.String("user.id", userID), attribute.String("season.id", seasonID), attribute.String("category", category))
	defer func() { finish(span, err) }()

	userID = strings.TrimSpace(userID)
	seasonID = strings.TrimSpace(seasonID)
	if userID == "" || seasonID == "" {
		return storage.JokerRecord{}, inputInvalid("user and season are required")
	}
	cat, err := s.category(category)
	if err != nil {
		return storage.JokerRecord{}, err
	}

	err = s.store.InTx(ctx, func(tx storage.Store) error {
		window, races, err := s.seasonWindow(ctx, tx, seasonID)
		if err != nil {
			return err
		}
		state := joker.State{}
		existing, err := tx.GetJoker(ctx, userID, seasonID)
		switch {
		case err == nil:
			state = jokerState(existing)
		case !isNotFound(err):
			return err
		}
		team, err := tx.GetRoster(ctx, userID, seasonID, cat)
		exists := err == nil
		if err != nil && !isNotFound(err) {
			return err
		}

		if err := joker.Check(joker.Request{
			State:          state,
			Window:         window,
			HasSettledRace: hasSettledRace(races),
			RosterExists:   exists,
		}); err != nil {
			return err
		}

		now := s.now()
		team.Members = nil
		team.TransfersUsed = 0
		team.CurrentRaceID = ""
		team.UpdatedAt = now
		if err := tx.PutRoster(ctx, team); err != nil {
			return err
		}

		rec = storage.JokerRecord{
			UserID:         userID,
			SeasonID:       seasonID,
			UsedAt:         now,
			ActiveRaceID:   window.NextRaceID(),
			ActiveCategory: cat,
		}
		if err := tx.PutJoker(ctx, rec); err != nil {
			return fmt.Errorf("record joker: %w", err)
		}
		return nil
	})
	if err != nil {
		return storage.JokerRecord{}, err
	}
	return rec, nil
}

// JokerState returns the user's joker for the season. An unplayed joker is
// the zero state.
func (s *Service) JokerState(ctx context.Context, userID, seasonID string) (joker.State, error) {
	var state joker.State
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		rec, err := tx.GetJoker(ctx, userID, seasonID)
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		state = jokerState(rec)
		return nil
	})
	return state, err
}

package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/joker"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/roster"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

const defaultTeamName = "My team"

// StarterInput places a rider in a starter slot.
type StarterInput struct {
	Slot    int    `validate:"gte=0"`
	RiderID string `validate:"required"`
}

// RosterInput is a requested team composition.
type RosterInput struct {
	UserID   string         `validate:"required"`
	SeasonID string         `validate:"required"`
	Category string         `validate:"required"`
	Name     string         `validate:"max=80"`
	Starters []StarterInput `validate:"dive"`
	// BenchID is empty for a team without a bench rider.
	BenchID string
}

// UpsertRoster creates or updates a user's team. The editing window must be
// open, the team must satisfy every composition rule, and an existing team
// may not exceed its transfer allowance.
func (s *Service) UpsertRoster(ctx context.Context, in RosterInput) (rec storage.RosterRecord, err error) {
	ctx, span := s.startSpan(ctx, "UpsertRoster",
		attribute.String("user.id", in.UserID),
		attribute.String("season.id", in.SeasonID),
		attribute.String("category", in.Category),
	)
	defer func() { finish(span, err) }()

	if err := s.validateInput(ctx, apperrors.CodeInputInvalid, in, nil); err != nil {
		return storage.RosterRecord{}, err
	}
	category, err := s.category(in.Category)
	if err != nil {
		return storage.RosterRecord{}, err
	}
	starters := make([]roster.Starter, len(in.Starters))
	for i, st := range in.Starters {
		starters[i] = roster.Starter{Slot: st.Slot, RiderID: strings.TrimSpace(st.RiderID)}
	}
	benchID := strings.TrimSpace(in.BenchID)

	err = s.store.InTx(ctx, func(tx storage.Store) error {
		window, races, err := s.seasonWindow(ctx, tx, in.SeasonID)
		if err != nil {
			return err
		}
		if !window.Open {
			return windowClosed(window)
		}

		existing, err := tx.GetRoster(ctx, in.UserID, in.SeasonID, category)
		exists := err == nil
		if err != nil && !isNotFound(err) {
			return err
		}

		ids := roster.MemberIDs(starters, benchID)
		profiles, _, err := rider.Lookup(ctx, tx, ids)
		if err != nil {
			return err
		}

		budgetCap := s.cfg.BudgetCap
		var overrides map[string]int64
		var previousIDs []string
		if exists {
			budgetCap = existing.BudgetCap
			overrides = roster.GrandfatherCosts(memberCosts(existing.Members), ids, profiles)
			prevStarters, prevBench := rosterLineup(existing.Members)
			previousIDs = roster.MemberIDs(prevStarters, prevBench)
		}

		if err := roster.Check(roster.Input{
			Category:      category,
			Starters:      starters,
			BenchID:       benchID,
			Profiles:      profiles,
			BudgetCap:     budgetCap,
			CostOverrides: overrides,
			Rules:         s.cfg.Rules,
		}); err != nil {
			return err
		}

		jokerActive := false
		if j, err := tx.GetJoker(ctx, in.UserID, in.SeasonID); err == nil {
			jokerActive = jokerState(j).ActiveFor(window.NextRaceID(), category)
		} else if !isNotFound(err) {
			return err
		}

		outcome := roster.ApplyTransfers(roster.TransferPolicy{
			Enforced:       exists && hasSettledRace(races) && !jokerActive,
			Cap:            s.cfg.TransferCap,
			PreviousAnchor: existing.CurrentRaceID,
			PreviousUsed:   existing.TransfersUsed,
			Anchor:         window.NextRaceID(),
		}, roster.CountTransfers(previousIDs, ids))
		if outcome.Exceeded {
			return apperrors.WithMetadata(apperrors.CodeTransferLimitExceeded, "transfer limit exceeded", map[string]string{
				"Needed":    strconv.Itoa(outcome.Needed),
				"Remaining": strconv.Itoa(outcome.Remaining),
			})
		}

		now := s.now()
		rec = existing
		if !exists {
			rosterID, err := s.newID()
			if err != nil {
				return fmt.Errorf("generate roster id: %w", err)
			}
			rec = storage.RosterRecord{
				ID:        rosterID,
				UserID:    in.UserID,
				SeasonID:  in.SeasonID,
				Category:  category,
				Name:      defaultTeamName,
				BudgetCap: budgetCap,
				CreatedAt: now,
			}
		}
		if name := strings.TrimSpace(in.Name); name != "" {
			rec.Name = name
		}
		rec.TransfersUsed = outcome.Used
		rec.CurrentRaceID = window.NextRaceID()
		rec.UpdatedAt = now
		rec.Members = members(starters, benchID, profiles, overrides)
		return tx.PutRoster(ctx, rec)
	})
	if err != nil {
		return storage.RosterRecord{}, err
	}
	return rec, nil
}

// members converts a validated lineup to stored members charged at their
// effective cost.
func members(starters []roster.Starter, benchID string, profiles map[string]rider.Profile, overrides map[string]int64) []storage.RosterMember {
	out := make([]storage.RosterMember, 0, len(starters)+1)
	for _, st := range starters {
		c, _ := roster.EffectiveCost(st.RiderID, profiles, overrides)
		out = append(out, storage.RosterMember{RiderID: st.RiderID, Slot: st.Slot, Cost: c})
	}
	if benchID != "" {
		c, _ := roster.EffectiveCost(benchID, profiles, overrides)
		out = append(out, storage.RosterMember{RiderID: benchID, Bench: true, Cost: c})
	}
	return out
}

// GetRoster loads a user's team.
func (s *Service) GetRoster(ctx context.Context, userID, seasonID, category string) (rec storage.RosterRecord, err error) {
	ctx, span := s.startSpan(ctx, "GetRoster", attribute.String("user.id", userID), attribute.String("season.id", seasonID))
	defer func() { finish(span, err) }()

	cat, err := s.category(category)
	if err != nil {
		return storage.RosterRecord{}, err
	}
	rec, err = s.store.GetRoster(ctx, userID, seasonID, cat)
	if err != nil {
		return storage.RosterRecord{}, fmt.Errorf("get roster: %w", err)
	}
	return rec, nil
}

// EditingWindow reports whether teams of a season may currently be edited.
func (s *Service) EditingWindow(ctx context.Context, seasonID string) (w race.Window, err error) {
	ctx, span := s.startSpan(ctx, "EditingWindow", attribute.String("season.id", seasonID))
	defer func() { finish(span, err) }()

	w, _, err = s.seasonWindow(ctx, s.store, seasonID)
	return w, err
}

func jokerState(rec storage.JokerRecord) joker.State {
	usedAt := rec.UsedAt
	return joker.State{UsedAt: &usedAt, ActiveRaceID: rec.ActiveRaceID, ActiveCategory: rec.ActiveCategory}
}

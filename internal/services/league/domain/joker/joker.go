// Package joker holds the rules for the once-per-season team reset.
package joker

import (
	"time"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
)

// State is a user's joker for one season.
type State struct {
	UsedAt         *time.Time
	ActiveRaceID   string
	ActiveCategory rider.Category
}

// Used reports whether the joker was already played.
func (s State) Used() bool {
	return s.UsedAt != nil
}

// ActiveFor reports whether the joker lifts transfer limits for the given
// race and category.
func (s State) ActiveFor(raceID string, category rider.Category) bool {
	return s.Used() && raceID != "" && s.ActiveRaceID == raceID && s.ActiveCategory == category
}

// Request is everything needed to decide whether a joker may be played.
type Request struct {
	State          State
	Window         race.Window
	HasSettledRace bool
	RosterExists   bool
}

// Check returns nil when the joker may be played, or the application error
// explaining why not.
func Check(req Request) error {
	if req.State.Used() {
		return apperrors.New(apperrors.CodeJokerAlreadyUsed, "joker already used this season")
	}
	if !req.Window.Open {
		return apperrors.WithMetadata(apperrors.CodeEditingWindowClosed, "editing window closed",
			map[string]string{"Reason": string(req.Window.Reason)})
	}
	if !req.HasSettledRace {
		return apperrors.New(apperrors.CodeJokerNotAvailable, "joker unavailable before the first settled race")
	}
	if !req.RosterExists {
		return apperrors.New(apperrors.CodeNotFound, "team not found")
	}
	return nil
}

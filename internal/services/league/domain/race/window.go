package race

import (
	"sort"
	"time"
)

// Race is the calendar view of a race used by the window calculator.
type Race struct {
	ID       string
	StartsAt time.Time
	LockAt   time.Time
	Status   Status
}

// ClosedReason explains why the editing window is closed.
type ClosedReason string

const (
	ReasonNone                  ClosedReason = ""
	ReasonNoUpcomingRace        ClosedReason = "no_upcoming_race"
	ReasonLockPassed            ClosedReason = "lock_passed"
	ReasonRaceLocked            ClosedReason = "race_locked"
	ReasonPreviousRaceUnsettled ClosedReason = "previous_race_unsettled"
)

// Window is the editing window for a season at a given instant.
type Window struct {
	Open   bool
	Reason ClosedReason
	// Next is the earliest race starting after now.
	Next *Race
	// LastStarted is the latest race starting at or before now.
	LastStarted *Race
}

// NextRaceID returns the id of the next race or "".
func (w Window) NextRaceID() string {
	if w.Next == nil {
		return ""
	}
	return w.Next.ID
}

// ComputeWindow derives the editing window from the season's races. Teams
// may be edited only while a next race exists, its lock time is in the
// future, it has not been locked, and the last started race is settled.
func ComputeWindow(races []Race, now time.Time) Window {
	ordered := append([]Race(nil), races...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartsAt.Equal(ordered[j].StartsAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].StartsAt.Before(ordered[j].StartsAt)
	})

	var window Window
	for i := range ordered {
		r := ordered[i]
		if r.StartsAt.After(now) {
			if window.Next == nil {
				window.Next = &r
			}
			continue
		}
		window.LastStarted = &r
	}

	switch {
	case window.Next == nil:
		window.Reason = ReasonNoUpcomingRace
	case !now.Before(window.Next.LockAt):
		window.Reason = ReasonLockPassed
	case window.Next.Status != StatusScheduled:
		window.Reason = ReasonRaceLocked
	case window.LastStarted != nil && window.LastStarted.Status != StatusSettled:
		window.Reason = ReasonPreviousRaceUnsettled
	default:
		window.Open = true
	}
	return window
}

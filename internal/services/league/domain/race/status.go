// Package race holds the race lifecycle labels, their transition rules, and
// the editing window derived from a season's race calendar.
package race

import "strings"

// Status is the lifecycle label of a race.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusLocked      Status = "locked"
	StatusProvisional Status = "provisional"
	StatusFinal       Status = "final"
	StatusSettled     Status = "settled"
)

// ParseStatus normalizes a stored status label.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusScheduled:
		return StatusScheduled, true
	case StatusLocked:
		return StatusLocked, true
	case StatusProvisional:
		return StatusProvisional, true
	case StatusFinal:
		return StatusFinal, true
	case StatusSettled:
		return StatusSettled, true
	default:
		return "", false
	}
}

// LockedOrLater reports whether snapshots exist for the race.
func (s Status) LockedOrLater() bool {
	switch s {
	case StatusLocked, StatusProvisional, StatusFinal, StatusSettled:
		return true
	default:
		return false
	}
}

// HasResults reports whether the race has moved past locked.
func (s Status) HasResults() bool {
	switch s {
	case StatusProvisional, StatusFinal, StatusSettled:
		return true
	default:
		return false
	}
}

// IsTransitionAllowed enforces the race lifecycle. Unlock back to scheduled
// is the administrative escape and is allowed from every locked status.
func IsTransitionAllowed(from, to Status) bool {
	switch from {
	case StatusScheduled:
		return to == StatusLocked
	case StatusLocked:
		return to == StatusProvisional || to == StatusFinal || to == StatusScheduled
	case StatusProvisional:
		return to == StatusFinal || to == StatusSettled || to == StatusScheduled
	case StatusFinal:
		return to == StatusProvisional || to == StatusSettled || to == StatusScheduled
	case StatusSettled:
		return to == StatusScheduled
	default:
		return false
	}
}

// ResultsStatus is the status a race takes after a results upload. A settled
// race keeps its status; the caller flags it for resettlement instead.
func ResultsStatus(current Status, final bool) Status {
	if current == StatusSettled {
		return StatusSettled
	}
	if final {
		return StatusFinal
	}
	return StatusProvisional
}

// SettleReadiness describes whether settlement may run.
type SettleReadiness struct {
	AllowProvisional bool
	Force            bool
}

// ReadyForSettlement reports whether a race with status s may be settled.
func (r SettleReadiness) ReadyForSettlement(s Status) bool {
	switch s {
	case StatusFinal, StatusSettled:
		return true
	case StatusProvisional:
		return r.AllowProvisional || r.Force
	case StatusLocked:
		return r.Force
	default:
		return false
	}
}

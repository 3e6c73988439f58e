// Package cost revalues riders after a race from their final results.
package cost

import (
	"github.com/shopspring/decimal"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/scoring"
)

// RoundingStep is the unit every adjusted cost is rounded up to.
const RoundingStep = 1000

var (
	step        = decimal.NewFromInt(RoundingStep)
	hundred     = decimal.NewFromInt(100)
	nonFinisher = decimal.NewFromInt(90)
)

// Adjust returns the new cost for a rider with the given result. Top ten
// finishers gain (11 - position) percent, non-finishers lose ten percent,
// and both are rounded up to the next RoundingStep. Everyone else keeps
// their cost.
func Adjust(current int64, r scoring.Result) int64 {
	base := decimal.NewFromInt(current)
	switch {
	case r.Status.Finished():
		if r.Position == nil || *r.Position < 1 || *r.Position > 10 {
			return current
		}
		pct := decimal.NewFromInt(int64(100 + 11 - *r.Position))
		return roundUp(base.Mul(pct).Div(hundred))
	case r.Status == "":
		return current
	default:
		return roundUp(base.Mul(nonFinisher).Div(hundred))
	}
}

func roundUp(v decimal.Decimal) int64 {
	return v.Div(step).Ceil().Mul(step).IntPart()
}

// Update is one rider's cost change for a race.
type Update struct {
	RiderID      string
	PreviousCost int64
	NewCost      int64
	Delta        int64
}

// Plan computes the cost changes for every rider in results whose cost is
// known. Riders whose cost would not change are omitted. Updates are ordered
// by rider id.
func Plan(costs map[string]int64, results scoring.ResultSet) []Update {
	var updates []Update
	for _, r := range results.Sorted() {
		current, ok := costs[r.RiderID]
		if !ok {
			continue
		}
		next := Adjust(current, r)
		if next == current {
			continue
		}
		updates = append(updates, Update{RiderID: r.RiderID, PreviousCost: current, NewCost: next, Delta: next - current})
	}
	return updates
}

// Applied is a previously recorded update.
type Applied struct {
	RiderID      string
	PreviousCost int64
	ResultHash   string
}

// Action is what the adjuster must do for a race.
type Action int

const (
	// ActionApply writes a fresh plan.
	ActionApply Action = iota
	// ActionSkip leaves everything as is; the hash was already applied.
	ActionSkip
	// ActionReapply reverts prior updates before applying a fresh plan.
	ActionReapply
	// ActionConflict refuses to apply a different result set.
	ActionConflict
)

// Decide chooses the action for a race given its recorded updates, the
// hash of the result set being settled, and whether re-application is
// forced.
func Decide(applied []Applied, resultHash string, force bool) Action {
	if len(applied) == 0 {
		return ActionApply
	}
	if force {
		return ActionReapply
	}
	for _, a := range applied {
		if a.ResultHash != resultHash {
			return ActionConflict
		}
	}
	return ActionSkip
}

// Revert maps each rider back to the cost recorded before the race.
func Revert(applied []Applied) map[string]int64 {
	restored := make(map[string]int64, len(applied))
	for _, a := range applied {
		restored[a.RiderID] = a.PreviousCost
	}
	return restored
}

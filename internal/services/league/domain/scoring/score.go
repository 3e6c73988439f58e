package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/encoding"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/snapshot"
)

// BreakdownVersion is the layout written by Score.
const BreakdownVersion = 1

// SubstitutionReason records the outcome of the bench check.
type SubstitutionReason string

const (
	ReasonApplied             SubstitutionReason = "applied"
	ReasonNoBench             SubstitutionReason = "no_bench"
	ReasonNoEligibleStarter   SubstitutionReason = "no_eligible_starter"
	ReasonNoValidSubstitution SubstitutionReason = "no_valid_substitution"
)

// Substitution describes the bench decision for one snapshot.
type Substitution struct {
	Reason SubstitutionReason `json:"reason"`
	// Slot and OutRiderID identify the replaced starter when applied.
	Slot       *int   `json:"slot,omitempty"`
	OutRiderID string `json:"outRiderId,omitempty"`
	InRiderID  string `json:"inRiderId,omitempty"`
}

// Line is one rider's contribution.
type Line struct {
	Slot     int          `json:"slot"`
	RiderID  string       `json:"riderId"`
	Gender   rider.Gender `json:"gender"`
	Cost     int64        `json:"cost"`
	Status   ResultStatus `json:"status"`
	Position *int         `json:"position,omitempty"`
	// Points is the rider's own score; FinalPoints is what counts after
	// substitution.
	Points      int  `json:"points"`
	FinalPoints int  `json:"finalPoints"`
	Substituted bool `json:"substituted,omitempty"`
}

// Breakdown is the versioned scoring record stored with a race score.
type Breakdown struct {
	Version      int          `json:"version"`
	Starters     []Line       `json:"starters"`
	Bench        *Line        `json:"bench,omitempty"`
	Substitution Substitution `json:"substitution"`
	Total        int          `json:"total"`
}

// Score computes the breakdown for a snapshot. Only starter final points
// count toward the total; the bench contributes only through substitution.
func Score(p snapshot.Payload, results ResultSet, table Table) Breakdown {
	b := Breakdown{Version: BreakdownVersion, Starters: make([]Line, 0, len(p.Starters))}
	for _, m := range p.Starters {
		b.Starters = append(b.Starters, line(m, results, table))
	}

	if p.Bench == nil {
		b.Substitution = Substitution{Reason: ReasonNoBench}
	} else {
		bench := line(*p.Bench, results, table)
		b.Bench = &bench
		b.Substitution = substitute(b.Starters, bench)
	}

	for _, l := range b.Starters {
		b.Total += l.FinalPoints
	}
	return b
}

func line(m snapshot.Member, results ResultSet, table Table) Line {
	r := results.For(m.RiderID)
	points := table.PointsFor(r)
	return Line{
		Slot:        m.Slot,
		RiderID:     m.RiderID,
		Gender:      m.Gender,
		Cost:        m.Cost,
		Status:      r.Status,
		Position:    r.Position,
		Points:      points,
		FinalPoints: points,
	}
}

// substitute replaces the most expensive gender-matched non-starter with the
// bench rider, preferring the lowest slot on equal cost.
func substitute(starters []Line, bench Line) Substitution {
	anyEligible := false
	chosen := -1
	for i, s := range starters {
		if !s.Status.substitutable() {
			continue
		}
		anyEligible = true
		if s.Gender != bench.Gender {
			continue
		}
		if chosen < 0 {
			chosen = i
			continue
		}
		best := starters[chosen]
		if s.Cost > best.Cost || (s.Cost == best.Cost && s.Slot < best.Slot) {
			chosen = i
		}
	}

	switch {
	case !anyEligible:
		return Substitution{Reason: ReasonNoEligibleStarter}
	case chosen < 0:
		return Substitution{Reason: ReasonNoValidSubstitution}
	}

	out := &starters[chosen]
	out.FinalPoints = bench.Points
	out.Substituted = true
	slot := out.Slot
	return Substitution{Reason: ReasonApplied, Slot: &slot, OutRiderID: out.RiderID, InRiderID: bench.RiderID}
}

// Encode returns the canonical stored form of the breakdown.
func (b Breakdown) Encode() ([]byte, error) {
	return encoding.CanonicalJSON(b)
}

// DecodeBreakdown parses a stored breakdown, rejecting unknown versions and
// totals that disagree with the starter lines.
func DecodeBreakdown(data []byte) (Breakdown, error) {
	var b Breakdown
	if err := json.Unmarshal(data, &b); err != nil {
		return Breakdown{}, fmt.Errorf("decode breakdown: %w", err)
	}
	if b.Version != BreakdownVersion {
		return Breakdown{}, fmt.Errorf("decode breakdown: unsupported version %d", b.Version)
	}
	sum := 0
	for _, l := range b.Starters {
		sum += l.FinalPoints
	}
	if sum != b.Total {
		return Breakdown{}, fmt.Errorf("decode breakdown: total %d does not match lines %d", b.Total, sum)
	}
	return b, nil
}

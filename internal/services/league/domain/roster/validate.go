// Package roster holds the composition rules every saved or locked team must
// satisfy, budget grandfathering, and transfer counting.
package roster

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
)

// Rules configures team composition.
type Rules struct {
	StarterCount int
	MaleSlots    int
	FemaleSlots  int
}

// DefaultRules returns the standard six-starter, four plus two composition.
func DefaultRules() Rules {
	return Rules{StarterCount: 6, MaleSlots: 4, FemaleSlots: 2}
}

// Starter is a rider placed in a numbered starter slot.
type Starter struct {
	Slot    int    `json:"slot"`
	RiderID string `json:"riderId"`
}

// Input is everything Validate needs; it performs no lookups of its own.
type Input struct {
	Category rider.Category
	Starters []Starter
	// BenchID is empty when the team has no bench rider.
	BenchID   string
	Profiles  map[string]rider.Profile
	BudgetCap int64
	// CostOverrides replaces the catalog cost for grandfathered riders.
	CostOverrides map[string]int64
	Rules         Rules
}

// ViolationCode names a single broken composition rule.
type ViolationCode string

const (
	ViolationStarterCount       ViolationCode = "starter_count"
	ViolationStarterSlots       ViolationCode = "starter_slots"
	ViolationDuplicateRider     ViolationCode = "duplicate_rider"
	ViolationUnknownRider       ViolationCode = "unknown_rider"
	ViolationGenderSlots        ViolationCode = "gender_slots"
	ViolationCategoryIneligible ViolationCode = "category_ineligible"
	ViolationOverBudget         ViolationCode = "over_budget"
)

// Violation describes one rule failure.
type Violation struct {
	Code    ViolationCode `json:"code"`
	RiderID string        `json:"riderId,omitempty"`
	Message string        `json:"message"`
}

// Validate checks every composition rule and returns all violations found.
// An empty result means the team is valid.
func Validate(in Input) []Violation {
	rules := in.Rules
	if rules.StarterCount == 0 {
		rules = DefaultRules()
	}

	var violations []Violation
	add := func(code ViolationCode, riderID, format string, args ...any) {
		violations = append(violations, Violation{Code: code, RiderID: riderID, Message: fmt.Sprintf(format, args...)})
	}

	if len(in.Starters) != rules.StarterCount {
		add(ViolationStarterCount, "", "expected %d starters, got %d", rules.StarterCount, len(in.Starters))
	}
	if !slotsContiguous(in.Starters) {
		add(ViolationStarterSlots, "", "starter slots must be 0..%d without gaps or repeats", len(in.Starters)-1)
	}

	seen := make(map[string]struct{}, len(in.Starters)+1)
	for _, id := range MemberIDs(in.Starters, in.BenchID) {
		if _, ok := seen[id]; ok {
			add(ViolationDuplicateRider, id, "rider %s appears more than once", id)
			continue
		}
		seen[id] = struct{}{}
	}

	for _, id := range UniqueMemberIDs(in.Starters, in.BenchID) {
		if _, ok := in.Profiles[id]; !ok {
			add(ViolationUnknownRider, id, "rider %s is not in the catalog", id)
		}
	}

	var male, female int
	for _, starter := range in.Starters {
		profile, ok := in.Profiles[starter.RiderID]
		if !ok {
			continue
		}
		switch profile.Gender {
		case rider.GenderMale:
			male++
		case rider.GenderFemale:
			female++
		}
	}
	if male != rules.MaleSlots || female != rules.FemaleSlots {
		add(ViolationGenderSlots, "", "starters need %d male and %d female riders, got %d and %d",
			rules.MaleSlots, rules.FemaleSlots, male, female)
	}

	for _, id := range UniqueMemberIDs(in.Starters, in.BenchID) {
		profile, ok := in.Profiles[id]
		if !ok {
			continue
		}
		if !profile.Category.EligibleFor(in.Category) {
			add(ViolationCategoryIneligible, id, "rider %s (%s) cannot ride for %s", id, profile.Category, in.Category)
		}
	}

	if total := TotalCost(in.Starters, in.BenchID, in.Profiles, in.CostOverrides); total > in.BudgetCap {
		add(ViolationOverBudget, "", "team costs %d, over the cap of %d", total, in.BudgetCap)
	}

	return violations
}

// TotalCost sums the effective cost of every distinct member. Unknown riders
// contribute nothing.
func TotalCost(starters []Starter, benchID string, profiles map[string]rider.Profile, overrides map[string]int64) int64 {
	var total int64
	for _, id := range UniqueMemberIDs(starters, benchID) {
		cost, ok := EffectiveCost(id, profiles, overrides)
		if ok {
			total += cost
		}
	}
	return total
}

// EffectiveCost returns the override for id when present, otherwise the
// catalog cost.
func EffectiveCost(id string, profiles map[string]rider.Profile, overrides map[string]int64) (int64, bool) {
	if cost, ok := overrides[id]; ok {
		return cost, true
	}
	profile, ok := profiles[id]
	if !ok {
		return 0, false
	}
	return profile.Cost, true
}

// MemberIDs lists starter ids in slot order followed by the bench id.
func MemberIDs(starters []Starter, benchID string) []string {
	ordered := append([]Starter(nil), starters...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Slot < ordered[j].Slot })
	ids := make([]string, 0, len(ordered)+1)
	for _, s := range ordered {
		ids = append(ids, s.RiderID)
	}
	if benchID != "" {
		ids = append(ids, benchID)
	}
	return ids
}

// UniqueMemberIDs is MemberIDs without repeats.
func UniqueMemberIDs(starters []Starter, benchID string) []string {
	all := MemberIDs(starters, benchID)
	seen := make(map[string]struct{}, len(all))
	out := all[:0]
	for _, id := range all {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func slotsContiguous(starters []Starter) bool {
	seen := make(map[int]struct{}, len(starters))
	for _, s := range starters {
		if s.Slot < 0 || s.Slot >= len(starters) {
			return false
		}
		if _, ok := seen[s.Slot]; ok {
			return false
		}
		seen[s.Slot] = struct{}{}
	}
	return true
}

// ValidationError reports every violation of a rejected team.
type ValidationError struct {
	Violations []Violation
}

// Error implements error.
func (e *ValidationError) Error() string {
	codes := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		codes = append(codes, string(v.Code))
	}
	return "roster invalid: " + strings.Join(codes, ", ")
}

// Unwrap exposes the ROSTER_INVALID application error.
func (e *ValidationError) Unwrap() error {
	return apperrors.WithMetadata(apperrors.CodeRosterInvalid, e.Error(), map[string]string{
		"Count": strconv.Itoa(len(e.Violations)),
	})
}

// Check wraps Validate, returning a *ValidationError when the team is invalid.
func Check(in Input) error {
	if violations := Validate(in); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

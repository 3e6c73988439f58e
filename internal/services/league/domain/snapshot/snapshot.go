// Package snapshot builds the immutable team record captured when a race
// locks. Scoring reads only snapshots, never live teams.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/encoding"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/roster"
)

// Version is the payload layout written by Build.
const Version = 1

// Member is a locked rider with the attributes scoring needs.
type Member struct {
	Slot    int          `json:"slot"`
	RiderID string       `json:"riderId"`
	Gender  rider.Gender `json:"gender"`
	Cost    int64        `json:"cost"`
}

// Payload is the versioned snapshot body.
type Payload struct {
	Version  int            `json:"version"`
	Category rider.Category `json:"category"`
	Starters []Member       `json:"starters"`
	Bench    *Member        `json:"bench,omitempty"`
}

// BuildInput carries a validated team and its resolved profiles.
type BuildInput struct {
	Category      rider.Category
	Starters      []roster.Starter
	BenchID       string
	Profiles      map[string]rider.Profile
	CostOverrides map[string]int64
}

// Build captures a validated team. Starters are ordered by slot; cost is the
// effective cost at lock time.
func Build(in BuildInput) (Payload, error) {
	payload := Payload{Version: Version, Category: in.Category, Starters: make([]Member, 0, len(in.Starters))}
	ordered := append([]roster.Starter(nil), in.Starters...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Slot < ordered[j].Slot })

	for _, s := range ordered {
		member, err := member(s.Slot, s.RiderID, in.Profiles, in.CostOverrides)
		if err != nil {
			return Payload{}, err
		}
		payload.Starters = append(payload.Starters, member)
	}
	if in.BenchID != "" {
		bench, err := member(-1, in.BenchID, in.Profiles, in.CostOverrides)
		if err != nil {
			return Payload{}, err
		}
		payload.Bench = &bench
	}
	return payload, nil
}

func member(slot int, riderID string, profiles map[string]rider.Profile, overrides map[string]int64) (Member, error) {
	profile, ok := profiles[riderID]
	if !ok {
		return Member{}, fmt.Errorf("rider %s has no profile", riderID)
	}
	cost, _ := roster.EffectiveCost(riderID, profiles, overrides)
	return Member{Slot: slot, RiderID: riderID, Gender: profile.Gender, Cost: cost}, nil
}

// Hash returns the content hash of the payload.
func (p Payload) Hash() (string, error) {
	return encoding.ContentHash(p)
}

// Encode returns the canonical bytes stored for the payload.
func (p Payload) Encode() ([]byte, error) {
	return encoding.CanonicalJSON(p)
}

// Decode parses a stored payload, rejecting unknown versions and bodies
// missing the fields scoring depends on.
func Decode(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if p.Version != Version {
		return Payload{}, fmt.Errorf("decode snapshot: unsupported version %d", p.Version)
	}
	for i, m := range p.Starters {
		if m.RiderID == "" {
			return Payload{}, fmt.Errorf("decode snapshot: starter %d has no rider", i)
		}
		if !m.Gender.Valid() {
			return Payload{}, fmt.Errorf("decode snapshot: starter %s has gender %q", m.RiderID, m.Gender)
		}
	}
	if p.Bench != nil && (p.Bench.RiderID == "" || !p.Bench.Gender.Valid()) {
		return Payload{}, fmt.Errorf("decode snapshot: malformed bench")
	}
	return p, nil
}

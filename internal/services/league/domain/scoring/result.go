// Package scoring turns a locked snapshot and a race result set into a
// points breakdown, applying at most one bench substitution.
package scoring

import (
	"sort"
	"strings"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/encoding"
)

// ResultStatus is a rider's race outcome.
type ResultStatus string

const (
	StatusFinished ResultStatus = "finished"
	StatusDNF      ResultStatus = "dnf"
	StatusDNS      ResultStatus = "dns"
	StatusDNQ      ResultStatus = "dnq"
	StatusDSQ      ResultStatus = "dsq"
)

// ParseResultStatus normalizes a result status label.
func ParseResultStatus(value string) (ResultStatus, bool) {
	switch ResultStatus(strings.ToLower(strings.TrimSpace(value))) {
	case StatusFinished:
		return StatusFinished, true
	case StatusDNF:
		return StatusDNF, true
	case StatusDNS:
		return StatusDNS, true
	case StatusDNQ:
		return StatusDNQ, true
	case StatusDSQ:
		return StatusDSQ, true
	default:
		return "", false
	}
}

// Finished reports whether the rider completed the race.
func (s ResultStatus) Finished() bool {
	return s == StatusFinished
}

// substitutable reports whether a starter with this status may be replaced
// by the bench rider.
func (s ResultStatus) substitutable() bool {
	return s == StatusDNS || s == StatusDNF || s == StatusDNQ
}

// Result is one rider's outcome in a race.
type Result struct {
	RiderID  string       `json:"riderId"`
	Status   ResultStatus `json:"status"`
	Position *int         `json:"position,omitempty"`
}

// ResultSet indexes results by rider id.
type ResultSet map[string]Result

// NewResultSet indexes results.
func NewResultSet(results []Result) ResultSet {
	set := make(ResultSet, len(results))
	for _, r := range results {
		set[r.RiderID] = r
	}
	return set
}

// For returns the result for riderID, treating a missing result as a
// non-start.
func (s ResultSet) For(riderID string) Result {
	if r, ok := s[riderID]; ok {
		return r
	}
	return Result{RiderID: riderID, Status: StatusDNS}
}

// Sorted returns the results ordered by rider id.
func (s ResultSet) Sorted() []Result {
	out := make([]Result, 0, len(s))
	for _, r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RiderID < out[j].RiderID })
	return out
}

// Hash is the content hash of the full result set, independent of input
// order.
func (s ResultSet) Hash() (string, error) {
	return encoding.ContentHash(s.Sorted())
}

// Table maps finishing positions to points.
type Table struct {
	// Points[i] is awarded for position i+1.
	Points []int
	// DisqualifiedPenalty is added (usually zero or negative) for dsq.
	DisqualifiedPenalty int
}

// DefaultTable returns the standard twenty-position table.
func DefaultTable() Table {
	return Table{Points: []int{30, 25, 21, 18, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}}
}

// PointsFor scores a single result.
func (t Table) PointsFor(r Result) int {
	switch r.Status {
	case StatusFinished:
		if r.Position == nil {
			return 0
		}
		pos := *r.Position
		if pos < 1 || pos > len(t.Points) {
			return 0
		}
		return t.Points[pos-1]
	case StatusDSQ:
		return t.DisqualifiedPenalty
	default:
		return 0
	}
}

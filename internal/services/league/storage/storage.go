// Package storage defines the persistence contracts of the league engine.
//
// Every mutating engine operation runs through Transactor.InTx so that a
// failure anywhere leaves nothing partially committed.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/scoring"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// SeasonRecord is a league season.
type SeasonRecord struct {
	ID        string
	Name      string
	StartsAt  time.Time
	EndsAt    time.Time
	CreatedAt time.Time
}

// RaceRecord is one race of a season and its lifecycle state.
type RaceRecord struct {
	ID            string
	SeasonID      string
	Name          string
	StartsAt      time.Time
	LockAt        time.Time
	Status        race.Status
	NeedsResettle bool
	// ResultsFinal records whether the latest results upload was final.
	ResultsFinal bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RaceState is the mutable lifecycle part of a race.
type RaceState struct {
	Status        race.Status
	NeedsResettle bool
	ResultsFinal  bool
}

// State returns the race's lifecycle state.
func (r RaceRecord) State() RaceState {
	return RaceState{Status: r.Status, NeedsResettle: r.NeedsResettle, ResultsFinal: r.ResultsFinal}
}

// RiderRecord is a catalog rider.
type RiderRecord struct {
	ID        string
	Name      string
	Gender    rider.Gender
	Category  rider.Category
	Cost      int64
	UpdatedAt time.Time
}

// Profile converts the record to the engine's rider view.
func (r RiderRecord) Profile() rider.Profile {
	return rider.Profile{ID: r.ID, Name: r.Name, Gender: r.Gender, Category: r.Category, Cost: r.Cost}
}

// RosterMember is a rider on a team and the cost the team was charged.
type RosterMember struct {
	RiderID string
	// Slot is the starter slot; ignored for the bench.
	Slot  int
	Bench bool
	Cost  int64
}

// RosterRecord is a user's team for one season and category.
type RosterRecord struct {
	ID            string
	UserID        string
	SeasonID      string
	Category      rider.Category
	Name          string
	BudgetCap     int64
	TransfersUsed int
	// CurrentRaceID anchors TransfersUsed to the race it counts against.
	CurrentRaceID string
	Members       []RosterMember
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SnapshotRecord is a team captured when a race locked.
type SnapshotRecord struct {
	RaceID    string
	UserID    string
	Category  rider.Category
	RosterID  string
	Payload   []byte
	Hash      string
	CreatedAt time.Time
}

// ResultRecord is one rider's raw race outcome.
type ResultRecord struct {
	RaceID    string
	RiderID   string
	Status    scoring.ResultStatus
	Position  *int
	UpdatedAt time.Time
}

// ResultSetRecord is the result set last used to settle a race.
type ResultSetRecord struct {
	RaceID    string
	Hash      string
	Final     bool
	UpdatedAt time.Time
}

// ScoreRecord is a settled race score for one user and category.
type ScoreRecord struct {
	RaceID       string
	UserID       string
	Category     rider.Category
	RosterID     string
	Total        int
	Breakdown    []byte
	SnapshotHash string
	ResultHash   string
	ComputedAt   time.Time
}

// CostUpdateRecord audits one rider cost change applied from a race.
type CostUpdateRecord struct {
	RaceID       string
	RiderID      string
	PreviousCost int64
	NewCost      int64
	Delta        int64
	ResultHash   string
	AppliedAt    time.Time
}

// JokerRecord is a played joker.
type JokerRecord struct {
	UserID         string
	SeasonID       string
	UsedAt         time.Time
	ActiveRaceID   string
	ActiveCategory rider.Category
}

// SeasonStore persists seasons.
type SeasonStore interface {
	PutSeason(ctx context.Context, season SeasonRecord) error
	// GetSeason returns ErrNotFound when the season does not exist.
	GetSeason(ctx context.Context, id string) (SeasonRecord, error)
}

// RaceStore persists races and their lifecycle state.
type RaceStore interface {
	PutRace(ctx context.Context, r RaceRecord) error
	// GetRace returns ErrNotFound when the race does not exist.
	GetRace(ctx context.Context, id string) (RaceRecord, error)
	ListRaces(ctx context.Context, seasonID string) ([]RaceRecord, error)
	ListRacesByStatus(ctx context.Context, statuses ...race.Status) ([]RaceRecord, error)
	// UpdateRaceState writes the lifecycle state, reporting whether the row
	// changed. Returns ErrNotFound when the race does not exist.
	UpdateRaceState(ctx context.Context, id string, state RaceState, updatedAt time.Time) (bool, error)
}

// RiderStore is the rider catalog.
type RiderStore interface {
	rider.Catalog
	PutRiders(ctx context.Context, riders []RiderRecord) error
	// GetRiders returns the riders it knows among ids.
	GetRiders(ctx context.Context, ids []string) (map[string]RiderRecord, error)
	UpdateRiderCost(ctx context.Context, id string, cost int64, updatedAt time.Time) error
}

// RosterStore persists teams.
type RosterStore interface {
	// GetRoster returns ErrNotFound when the user has no team.
	GetRoster(ctx context.Context, userID, seasonID string, category rider.Category) (RosterRecord, error)
	ListRosters(ctx context.Context, seasonID string, category rider.Category) ([]RosterRecord, error)
	// PutRoster upserts the team and replaces its members.
	PutRoster(ctx context.Context, roster RosterRecord) error
}

// SnapshotStore persists lock-time snapshots.
type SnapshotStore interface {
	// GetSnapshot returns ErrNotFound when no snapshot exists.
	GetSnapshot(ctx context.Context, raceID, userID string, category rider.Category) (SnapshotRecord, error)
	ListSnapshots(ctx context.Context, raceID string) ([]SnapshotRecord, error)
	PutSnapshot(ctx context.Context, snap SnapshotRecord) error
	DeleteSnapshots(ctx context.Context, raceID string) (int64, error)
}

// ResultStore persists raw results and the result set used for settlement.
type ResultStore interface {
	PutResults(ctx context.Context, results []ResultRecord) error
	ListResults(ctx context.Context, raceID string) ([]ResultRecord, error)
	DeleteResults(ctx context.Context, raceID string) (int64, error)
	// GetResultSet returns ErrNotFound before the race was first settled.
	GetResultSet(ctx context.Context, raceID string) (ResultSetRecord, error)
	PutResultSet(ctx context.Context, set ResultSetRecord) error
	DeleteResultSet(ctx context.Context, raceID string) (int64, error)
}

// ScoreStore persists race scores.
type ScoreStore interface {
	// GetScore returns ErrNotFound when the user has no score for the race.
	GetScore(ctx context.Context, raceID, userID string, category rider.Category) (ScoreRecord, error)
	PutScore(ctx context.Context, score ScoreRecord) error
	ListRaceScores(ctx context.Context, raceID string, category rider.Category) ([]ScoreRecord, error)
	// ListSettledScores returns every score of settled races in the season.
	ListSettledScores(ctx context.Context, seasonID string, category rider.Category) ([]ScoreRecord, error)
	DeleteScores(ctx context.Context, raceID string) (int64, error)
}

// CostUpdateStore persists rider cost audit rows.
type CostUpdateStore interface {
	ListCostUpdates(ctx context.Context, raceID string) ([]CostUpdateRecord, error)
	PutCostUpdates(ctx context.Context, updates []CostUpdateRecord) error
	DeleteCostUpdates(ctx context.Context, raceID string) (int64, error)
}

// JokerStore persists played jokers.
type JokerStore interface {
	// GetJoker returns ErrNotFound when the joker is unused.
	GetJoker(ctx context.Context, userID, seasonID string) (JokerRecord, error)
	PutJoker(ctx context.Context, joker JokerRecord) error
}

// Store aggregates every league store.
type Store interface {
	SeasonStore
	RaceStore
	RiderStore
	RosterStore
	SnapshotStore
	ResultStore
	ScoreStore
	CostUpdateStore
	JokerStore
}

// Transactor runs fn against a store bound to a single transaction,
// committing when fn returns nil and rolling back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// TxStore is a store that can also open transactions.
type TxStore interface {
	Store
	Transactor
}

package app

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/cost"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/scoring"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/snapshot"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

// ResultInput is one rider's published outcome.
type ResultInput struct {
	RiderID  string `validate:"required"`
	Status   string `validate:"required,oneof=finished dnf dns dnq dsq"`
	Position *int   `validate:"omitempty,min=1"`
}

// UpsertRaceResults records results for a locked race. Rows are upserted by
// rider, so partial uploads accumulate. A settled race keeps its status and
// is flagged for resettlement when its results changed.
func (s *Service) UpsertRaceResults(ctx context.Context, raceID string, inputs []ResultInput, final bool) (rec storage.RaceRecord, err error) {
	ctx, span := s.startSpan(ctx, "UpsertRaceResults", attribute.String("race.id", raceID), attribute.Bool("final", final))
	defer func() { finish(span, err) }()

	records, err := s.resultRecords(ctx, raceID, inputs)
	if err != nil {
		return storage.RaceRecord{}, err
	}

	err = s.store.InTx(ctx, func(tx storage.Store) error {
		r, err := tx.GetRace(ctx, raceID)
		if err != nil {
			return fmt.Errorf("get race %s: %w", raceID, err)
		}
		if !r.Status.LockedOrLater() {
			return apperrors.WithMetadata(apperrors.CodeRaceNotLocked, "race not locked",
				map[string]string{"RaceID": r.ID, "Status": string(r.Status)})
		}
		if err := tx.PutResults(ctx, records); err != nil {
			return err
		}

		state := storage.RaceState{
			Status:        race.ResultsStatus(r.Status, final),
			NeedsResettle: r.NeedsResettle,
			ResultsFinal:  final,
		}
		if r.Status == race.StatusSettled && !state.NeedsResettle {
			state.NeedsResettle, err = s.resultsDrifted(ctx, tx, r.ID, final)
			if err != nil {
				return err
			}
		}
		now := s.now()
		if _, err := tx.UpdateRaceState(ctx, r.ID, state, now); err != nil {
			return err
		}
		rec, err = tx.GetRace(ctx, r.ID)
		return err
	})
	if err != nil {
		return storage.RaceRecord{}, err
	}
	return rec, nil
}

func (s *Service) resultRecords(ctx context.Context, raceID string, inputs []ResultInput) ([]storage.ResultRecord, error) {
	if len(inputs) == 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeResultInvalid, "no results",
			map[string]string{"RaceID": raceID})
	}
	now := s.now()
	seen := make(map[string]bool, len(inputs))
	records := make([]storage.ResultRecord, 0, len(inputs))
	for _, in := range inputs {
		if err := s.validateInput(ctx, apperrors.CodeResultInvalid, in, map[string]string{"RiderID": in.RiderID}); err != nil {
			return nil, err
		}
		if seen[in.RiderID] {
			return nil, apperrors.WithMetadata(apperrors.CodeResultInvalid, "duplicate rider result",
				map[string]string{"RiderID": in.RiderID, "Reason": "duplicate"})
		}
		seen[in.RiderID] = true
		status, _ := scoring.ParseResultStatus(in.Status)
		records = append(records, storage.ResultRecord{
			RaceID:    raceID,
			RiderID:   in.RiderID,
			Status:    status,
			Position:  in.Position,
			UpdatedAt: now,
		})
	}
	return records, nil
}

// resultsDrifted reports whether the race's results no longer match the
// result set it was settled with.
func (s *Service) resultsDrifted(ctx context.Context, tx storage.Store, raceID string, final bool) (bool, error) {
	set, err := tx.GetResultSet(ctx, raceID)
	if isNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	results, err := loadResults(ctx, tx, raceID)
	if err != nil {
		return false, err
	}
	hash, err := results.Hash()
	if err != nil {
		return false, fmt.Errorf("hash results: %w", err)
	}
	return hash != set.Hash || (final && !set.Final), nil
}

func loadResults(ctx context.Context, tx storage.Store, raceID string) (scoring.ResultSet, error) {
	rows, err := tx.ListResults(ctx, raceID)
	if err != nil {
		return nil, err
	}
	results := make([]scoring.Result, len(rows))
	for i, row := range rows {
		results[i] = scoring.Result{RiderID: row.RiderID, Status: row.Status, Position: row.Position}
	}
	return scoring.NewResultSet(results), nil
}

// SettleOptions controls SettleRace.
type SettleOptions struct {
	// Force settles any locked race and reapplies cost updates.
	Force            bool
	AllowProvisional bool
}

// SettleReport counts what a settlement wrote. A repeat settlement over
// unchanged input reports no writes.
type SettleReport struct {
	ResultHash      string
	ScoresWritten   int
	ScoresUnchanged int
	CostUpdates     int
	RaceUpdated     bool
}

// Writes reports whether the settlement changed anything.
func (r SettleReport) Writes() bool {
	return r.ScoresWritten > 0 || r.CostUpdates > 0 || r.RaceUpdated
}

// SettleRace scores every snapshot of the race against its current results
// and, once results are final, adjusts rider costs.
func (s *Service) SettleRace(ctx context.Context, raceID string, opts SettleOptions) (report SettleReport, err error) {
	ctx, span := s.startSpan(ctx, "SettleRace", attribute.String("race.id", raceID), attribute.Bool("force", opts.Force))
	defer func() { finish(span, err) }()

	err = s.store.InTx(ctx, func(tx storage.Store) error {
		report = SettleReport{}
		r, err := tx.GetRace(ctx, raceID)
		if err != nil {
			return fmt.Errorf("get race %s: %w", raceID, err)
		}
		if !settleAllowed(r, opts) {
			return notReady(r)
		}
		results, err := loadResults(ctx, tx, r.ID)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return notReady(r)
		}
		hash, err := results.Hash()
		if err != nil {
			return fmt.Errorf("hash results: %w", err)
		}
		report.ResultHash = hash

		final := r.ResultsFinal || r.Status == race.StatusFinal
		now := s.now()
		set, err := tx.GetResultSet(ctx, r.ID)
		if err != nil && !isNotFound(err) {
			return err
		}
		if err != nil || set.Hash != hash || set.Final != final {
			if err := tx.PutResultSet(ctx, storage.ResultSetRecord{RaceID: r.ID, Hash: hash, Final: final, UpdatedAt: now}); err != nil {
				return err
			}
		}

		if err := s.scoreSnapshots(ctx, tx, r.ID, results, hash, &report); err != nil {
			return err
		}

		if final {
			report.CostUpdates, err = s.adjustCosts(ctx, tx, r.ID, results, hash, r.NeedsResettle || opts.Force)
		} else {
			// Costs follow final results only, so a provisional correction
			// withdraws updates applied from an earlier final set.
			report.CostUpdates, err = s.revertCosts(ctx, tx, r.ID)
		}
		if err != nil {
			return err
		}

		state := r.State()
		state.Status = race.StatusSettled
		state.NeedsResettle = false
		report.RaceUpdated, err = tx.UpdateRaceState(ctx, r.ID, state, now)
		return err
	})
	if err != nil {
		return SettleReport{}, err
	}
	return report, nil
}

// settleAllowed reports whether opts permit settling r. A settled race
// awaiting a non-final correction needs the same opt-in as a provisional one.
func settleAllowed(r storage.RaceRecord, opts SettleOptions) bool {
	readiness := race.SettleReadiness{AllowProvisional: opts.AllowProvisional, Force: opts.Force}
	status := r.Status
	if status == race.StatusSettled && r.NeedsResettle && !r.ResultsFinal {
		status = race.StatusProvisional
	}
	return readiness.ReadyForSettlement(status)
}

func notReady(r storage.RaceRecord) error {
	return apperrors.WithMetadata(apperrors.CodeRaceNotReadyForSettlement, "race not ready for settlement",
		map[string]string{"RaceID": r.ID, "Status": string(r.Status)})
}

func (s *Service) scoreSnapshots(ctx context.Context, tx storage.Store, raceID string, results scoring.ResultSet, resultHash string, report *SettleReport) error {
	snaps, err := tx.ListSnapshots(ctx, raceID)
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		prior, err := tx.GetScore(ctx, raceID, snap.UserID, snap.Category)
		switch {
		case err == nil && prior.SnapshotHash == snap.Hash && prior.ResultHash == resultHash:
			report.ScoresUnchanged++
			continue
		case err != nil && !isNotFound(err):
			return err
		}

		payload, err := snapshot.Decode(snap.Payload)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeRecordCorrupt, "snapshot unreadable for "+snap.UserID, err)
		}
		breakdown := scoring.Score(payload, results, s.cfg.Table)
		body, err := breakdown.Encode()
		if err != nil {
			return fmt.Errorf("encode breakdown: %w", err)
		}
		if err := tx.PutScore(ctx, storage.ScoreRecord{
			RaceID:       raceID,
			UserID:       snap.UserID,
			Category:     snap.Category,
			RosterID:     snap.RosterID,
			Total:        breakdown.Total,
			Breakdown:    body,
			SnapshotHash: snap.Hash,
			ResultHash:   resultHash,
			ComputedAt:   s.now(),
		}); err != nil {
			return err
		}
		report.ScoresWritten++
	}
	return nil
}

// adjustCosts applies the race's cost changes once per result hash. It
// returns the number of riders whose cost was written.
func (s *Service) adjustCosts(ctx context.Context, tx storage.Store, raceID string, results scoring.ResultSet, resultHash string, force bool) (int, error) {
	prior, err := tx.ListCostUpdates(ctx, raceID)
	if err != nil {
		return 0, err
	}
	written := 0
	switch cost.Decide(appliedCosts(prior), resultHash, force) {
	case cost.ActionSkip:
		return 0, nil
	case cost.ActionConflict:
		return 0, apperrors.WithMetadata(apperrors.CodeCostUpdateConflict, "cost updates applied from different results",
			map[string]string{"RaceID": raceID, "Applied": strconv.Itoa(len(prior))})
	case cost.ActionReapply:
		if written, err = s.revertCosts(ctx, tx, raceID); err != nil {
			return 0, err
		}
	}

	ids := make([]string, 0, len(results))
	for riderID := range results {
		ids = append(ids, riderID)
	}
	riders, err := tx.GetRiders(ctx, ids)
	if err != nil {
		return 0, err
	}
	costs := make(map[string]int64, len(riders))
	for riderID, r := range riders {
		costs[riderID] = r.Cost
	}

	plan := cost.Plan(costs, results)
	if len(plan) == 0 {
		return written, nil
	}
	now := s.now()
	records := make([]storage.CostUpdateRecord, len(plan))
	for i, u := range plan {
		if err := tx.UpdateRiderCost(ctx, u.RiderID, u.NewCost, now); err != nil {
			return 0, fmt.Errorf("update cost of %s: %w", u.RiderID, err)
		}
		records[i] = storage.CostUpdateRecord{
			RaceID:       raceID,
			RiderID:      u.RiderID,
			PreviousCost: u.PreviousCost,
			NewCost:      u.NewCost,
			Delta:        u.Delta,
			ResultHash:   resultHash,
			AppliedAt:    now,
		}
	}
	if err := tx.PutCostUpdates(ctx, records); err != nil {
		return 0, err
	}
	return written + len(plan), nil
}

// RaceResults returns the race's current results and the set last settled.
func (s *Service) RaceResults(ctx context.Context, raceID string) (scoring.ResultSet, storage.ResultSetRecord, error) {
	var (
		results scoring.ResultSet
		set     storage.ResultSetRecord
	)
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetRace(ctx, raceID); err != nil {
			return fmt.Errorf("get race %s: %w", raceID, err)
		}
		var err error
		if results, err = loadResults(ctx, tx, raceID); err != nil {
			return err
		}
		set, err = tx.GetResultSet(ctx, raceID)
		if isNotFound(err) {
			return nil
		}
		return err
	})
	return results, set, err
}

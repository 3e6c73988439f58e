package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/cost"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/encoding"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/roster"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/snapshot"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

// LockOptions controls LockRace.
type LockOptions struct {
	// Force locks before lockAt and overwrites conflicting snapshots.
	Force bool
}

// LockReport counts what a lock did.
type LockReport struct {
	Created      int
	Unchanged    int
	Overwritten  int
	Skipped      int
	Transitioned bool
}

// LockRace captures a snapshot of every valid team for the race. Invalid
// teams are skipped and score nothing. Re-locking reconciles snapshots
// without changing the race status again.
func (s *Service) LockRace(ctx context.Context, raceID string, opts LockOptions) (report LockReport, err error) {
	ctx, span := s.startSpan(ctx, "LockRace", attribute.String("race.id", raceID), attribute.Bool("force", opts.Force))
	defer func() { finish(span, err) }()

	err = s.store.InTx(ctx, func(tx storage.Store) error {
		report = LockReport{}
		r, err := tx.GetRace(ctx, raceID)
		if err != nil {
			return fmt.Errorf("get race %s: %w", raceID, err)
		}
		if r.Status.HasResults() {
			return statusDisallows(r, "lock")
		}
		now := s.now()
		if !opts.Force && now.Before(r.LockAt) {
			return apperrors.WithMetadata(apperrors.CodeRaceLockNotDue, "race lock not due", map[string]string{
				"RaceID": r.ID,
				"LockAt": r.LockAt.Format(encoding.TimeLayout),
			})
		}

		for _, category := range s.cfg.Categories() {
			if err := s.lockCategory(ctx, tx, r, category, opts.Force, &report); err != nil {
				return err
			}
		}

		if r.Status == race.StatusScheduled {
			state := r.State()
			state.Status = race.StatusLocked
			changed, err := tx.UpdateRaceState(ctx, r.ID, state, now)
			if err != nil {
				return err
			}
			report.Transitioned = changed
		}
		return nil
	})
	if err != nil {
		return LockReport{}, err
	}
	return report, nil
}

func (s *Service) lockCategory(ctx context.Context, tx storage.Store, r storage.RaceRecord, category rider.Category, force bool, report *LockReport) error {
	rosters, err := tx.ListRosters(ctx, r.SeasonID, category)
	if err != nil {
		return err
	}
	var ids []string
	for _, rec := range rosters {
		for _, m := range rec.Members {
			ids = append(ids, m.RiderID)
		}
	}
	profiles, _, err := rider.Lookup(ctx, tx, ids)
	if err != nil {
		return err
	}

	for _, rec := range rosters {
		starters, bench := rosterLineup(rec.Members)
		memberIDs := roster.MemberIDs(starters, bench)
		overrides := roster.GrandfatherCosts(memberCosts(rec.Members), memberIDs, profiles)
		in := roster.Input{
			Category:      category,
			Starters:      starters,
			BenchID:       bench,
			Profiles:      profiles,
			BudgetCap:     rec.BudgetCap,
			CostOverrides: overrides,
			Rules:         s.cfg.Rules,
		}
		if len(roster.Validate(in)) > 0 {
			report.Skipped++
			continue
		}

		payload, err := snapshot.Build(snapshot.BuildInput{
			Category:      category,
			Starters:      starters,
			BenchID:       bench,
			Profiles:      profiles,
			CostOverrides: overrides,
		})
		if err != nil {
			return err
		}
		hash, err := payload.Hash()
		if err != nil {
			return fmt.Errorf("hash snapshot: %w", err)
		}
		body, err := payload.Encode()
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}

		existing, err := tx.GetSnapshot(ctx, r.ID, rec.UserID, category)
		switch {
		case err == nil && existing.Hash == hash:
			report.Unchanged++
			continue
		case err == nil && !force:
			return apperrors.WithMetadata(apperrors.CodeSnapshotConflict, "snapshot conflict", map[string]string{
				"RaceID":   r.ID,
				"UserID":   rec.UserID,
				"Category": string(category),
			})
		case err == nil:
			report.Overwritten++
		case isNotFound(err):
			report.Created++
		default:
			return err
		}

		if err := tx.PutSnapshot(ctx, storage.SnapshotRecord{
			RaceID:    r.ID,
			UserID:    rec.UserID,
			Category:  category,
			RosterID:  rec.ID,
			Payload:   body,
			Hash:      hash,
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}
	}
	return nil
}

// UnlockOptions controls UnlockRace.
type UnlockOptions struct {
	// Force is required once results were published; it also discards
	// scores, results, and the cost changes they caused.
	Force bool
}

// UnlockReport counts what an unlock removed.
type UnlockReport struct {
	SnapshotsDeleted  int64
	ScoresDeleted     int64
	ResultsDeleted    int64
	CostsReverted     int
	ResultSetsDeleted int64
	Transitioned      bool
}

// UnlockRace returns a race to scheduled, deleting its snapshots.
func (s *Service) UnlockRace(ctx context.Context, raceID string, opts UnlockOptions) (report UnlockReport, err error) {
	ctx, span := s.startSpan(ctx, "UnlockRace", attribute.String("race.id", raceID), attribute.Bool("force", opts.Force))
	defer func() { finish(span, err) }()

	err = s.store.InTx(ctx, func(tx storage.Store) error {
		report = UnlockReport{}
		r, err := tx.GetRace(ctx, raceID)
		if err != nil {
			return fmt.Errorf("get race %s: %w", raceID, err)
		}
		if r.Status.HasResults() && !opts.Force {
			return apperrors.WithMetadata(apperrors.CodeRaceUnlockRequiresForce, "unlock requires force",
				map[string]string{"RaceID": r.ID, "Status": string(r.Status)})
		}

		if report.SnapshotsDeleted, err = tx.DeleteSnapshots(ctx, r.ID); err != nil {
			return err
		}
		if r.Status.HasResults() {
			if report.CostsReverted, err = s.revertCosts(ctx, tx, r.ID); err != nil {
				return err
			}
			if report.ScoresDeleted, err = tx.DeleteScores(ctx, r.ID); err != nil {
				return err
			}
			if report.ResultSetsDeleted, err = tx.DeleteResultSet(ctx, r.ID); err != nil {
				return err
			}
			if report.ResultsDeleted, err = tx.DeleteResults(ctx, r.ID); err != nil {
				return err
			}
		}

		report.Transitioned, err = tx.UpdateRaceState(ctx, r.ID, storage.RaceState{Status: race.StatusScheduled}, s.now())
		return err
	})
	if err != nil {
		return UnlockReport{}, err
	}
	return report, nil
}

// revertCosts restores the costs riders had before the race changed them and
// drops the audit rows.
func (s *Service) revertCosts(ctx context.Context, tx storage.Store, raceID string) (int, error) {
	updates, err := tx.ListCostUpdates(ctx, raceID)
	if err != nil {
		return 0, err
	}
	restored := cost.Revert(appliedCosts(updates))
	ids := make([]string, 0, len(restored))
	for riderID := range restored {
		ids = append(ids, riderID)
	}
	sort.Strings(ids)

	now := s.now()
	for _, riderID := range ids {
		err := tx.UpdateRiderCost(ctx, riderID, restored[riderID], now)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("revert cost of %s: %w", riderID, err)
		}
	}
	if _, err := tx.DeleteCostUpdates(ctx, raceID); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func appliedCosts(updates []storage.CostUpdateRecord) []cost.Applied {
	out := make([]cost.Applied, len(updates))
	for i, u := range updates {
		out[i] = cost.Applied{RiderID: u.RiderID, PreviousCost: u.PreviousCost, ResultHash: u.ResultHash}
	}
	return out
}

func statusDisallows(r storage.RaceRecord, operation string) error {
	return apperrors.WithMetadata(apperrors.CodeRaceStatusDisallowsOp, fmt.Sprintf("race status %s disallows %s", r.Status, operation),
		map[string]string{"RaceID": r.ID, "Status": string(r.Status), "Operation": operation})
}

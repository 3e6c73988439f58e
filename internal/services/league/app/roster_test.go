package app

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/roster"
)

func TestUpsertRosterCreatesTeam(t *testing.T) {
	h := seeded(t)
	rec, err := h.svc.UpsertRoster(context.Background(), lineup("u1", "m5", "m1", "m2", "m3", "m4", "f1", "f2"))
	if err != nil {
		t.Fatalf("upsert roster: %v", err)
	}
	if rec.ID != "id-1" {
		t.Fatalf("roster id = %q, want id-1", rec.ID)
	}
	if rec.Name != defaultTeamName {
		t.Fatalf("name = %q, want %q", rec.Name, defaultTeamName)
	}
	if rec.CurrentRaceID != "r1" || rec.TransfersUsed != 0 {
		t.Fatalf("anchor = %q/%d, want r1/0", rec.CurrentRaceID, rec.TransfersUsed)
	}

	got, err := h.svc.GetRoster(context.Background(), "u1", "s1", "elite")
	if err != nil {
		t.Fatalf("get roster: %v", err)
	}
	if len(got.Members) != 7 {
		t.Fatalf("members = %d, want 7", len(got.Members))
	}
	starters, bench := rosterLineup(got.Members)
	if bench != "m5" || len(starters) != 6 || starters[0].RiderID != "m1" {
		t.Fatalf("lineup = %+v bench %q", starters, bench)
	}
}

func TestUpsertRosterKeepsNameAndID(t *testing.T) {
	h := seeded(t)
	ctx := context.Background()
	in := lineup("u1", "", "m1", "m2", "m3", "m4", "f1", "f2")
	in.Name = "Crosswind"
	first, err := h.svc.UpsertRoster(ctx, in)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	in.Name = ""
	second, err := h.svc.UpsertRoster(ctx, in)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID || second.Name != "Crosswind" {
		t.Fatalf("second = %s/%q, want %s/Crosswind", second.ID, second.Name, first.ID)
	}
}

func TestUpsertRosterRejectsInvalidTeam(t *testing.T) {
	h := seeded(t)
	_, err := h.svc.UpsertRoster(context.Background(), lineup("u1", "", "m1", "m2", "m3", "m4", "m5", "f1"))
	wantCode(t, err, apperrors.CodeRosterInvalid)

	var verr *roster.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Violations) != 1 || verr.Violations[0].Code != roster.ViolationGenderSlots {
		t.Fatalf("violations = %+v, want gender_slots", verr.Violations)
	}
}

func TestUpsertRosterBudgetCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BudgetCap = 650000
	h := newHarness(t, cfg)
	seed(t, h)

	_, err := h.svc.UpsertRoster(context.Background(), lineup("u1", "m5", "m1", "m2", "m3", "m4", "f1", "f2"))
	wantCode(t, err, apperrors.CodeRosterInvalid)

	if _, err := h.svc.UpsertRoster(context.Background(), lineup("u1", "", "m1", "m2", "m3", "m4", "f1", "f2")); err != nil {
		t.Fatalf("team without bench at 600000: %v", err)
	}
}

func TestUpsertRosterInputErrors(t *testing.T) {
	h := seeded(t)
	ctx := context.Background()

	in := lineup("", "", "m1")
	_, err := h.svc.UpsertRoster(ctx, in)
	wantCode(t, err, apperrors.CodeInputInvalid)

	in = lineup("u1", "", "m1", "m2", "m3", "m4", "f1", "f2")
	in.Category = "u23"
	_, err = h.svc.UpsertRoster(ctx, in)
	wantCode(t, err, apperrors.CodeCategoryDisabled)

	in.Category = "elite"
	in.SeasonID = "missing"
	_, err = h.svc.UpsertRoster(ctx, in)
	wantCode(t, err, apperrors.CodeNotFound)
}

func TestUpsertRosterWindowClosed(t *testing.T) {
	h := seeded(t)
	h.clock.now = afterLock

	w, err := h.svc.EditingWindow(context.Background(), "s1")
	if err != nil {
		t.Fatalf("editing window: %v", err)
	}
	if w.Open || w.Reason != race.ReasonLockPassed {
		t.Fatalf("window = %+v, want closed by lock_passed", w)
	}

	_, err = h.svc.UpsertRoster(context.Background(), lineup("u1", "m5", "m1", "m2", "m3", "m4", "f1", "f2"))
	wantCode(t, err, apperrors.CodeEditingWindowClosed)
	if got := apperrors.GetMetadata(err)["Reason"]; got != string(race.ReasonLockPassed) {
		t.Fatalf("reason = %q, want lock_passed", got)
	}
}

func TestUpsertRosterFreeChangesBeforeFirstSettlement(t *testing.T) {
	h := seeded(t)
	h.teams(t)
	rec, err := h.svc.UpsertRoster(context.Background(), lineup("u1", "f3", "m3", "m4", "m5", "m6", "f1", "f2"))
	if err != nil {
		t.Fatalf("rebuild team: %v", err)
	}
	if rec.TransfersUsed != 0 {
		t.Fatalf("transfers used = %d, want 0", rec.TransfersUsed)
	}
}

func TestUpsertRosterTransferLimit(t *testing.T) {
	h := seeded(t)
	h.settledRace1(t)
	h.clock.now = betweenRaces
	ctx := context.Background()

	rec, err := h.svc.UpsertRoster(ctx, lineup("u1", "m5", "m1", "m2", "m3", "m6", "f1", "f2"))
	if err != nil {
		t.Fatalf("one transfer: %v", err)
	}
	if rec.TransfersUsed != 1 || rec.CurrentRaceID != "r2" {
		t.Fatalf("transfers = %d anchored to %q, want 1 on r2", rec.TransfersUsed, rec.CurrentRaceID)
	}
	for _, m := range rec.Members {
		if m.RiderID == "m1" && m.Cost != 100000 {
			t.Fatalf("retained m1 charged %d, want grandfathered 100000", m.Cost)
		}
	}

	_, err = h.svc.UpsertRoster(ctx, lineup("u1", "m5", "m1", "m2", "m4", "m6", "f1", "f3"))
	wantCode(t, err, apperrors.CodeTransferLimitExceeded)
	meta := apperrors.GetMetadata(err)
	if meta["Needed"] != "2" || meta["Remaining"] != "1" {
		t.Fatalf("metadata = %v, want Needed 2 Remaining 1", meta)
	}
}

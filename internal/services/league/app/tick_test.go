package app

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

func TestRunTickLocksDueRaces(t *testing.T) {
	h := seeded(t)
	h.teams(t)
	ctx := context.Background()

	report, err := h.svc.RunTick(ctx, TickOptions{})
	if err != nil {
		t.Fatalf("tick before lock: %v", err)
	}
	if len(report.Outcomes) != 0 {
		t.Fatalf("outcomes = %+v, want none before lockAt", report.Outcomes)
	}

	h.clock.now = afterLock
	report, err = h.svc.RunTick(ctx, TickOptions{})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(report.Outcomes) != 1 {
		t.Fatalf("outcomes = %+v, want one lock", report.Outcomes)
	}
	o := report.Outcomes[0]
	if o.RaceID != "r1" || o.Action != TickLock || o.Err != nil || o.Lock.Created != 2 {
		t.Fatalf("outcome = %+v", o)
	}

	report, err = h.svc.RunTick(ctx, TickOptions{})
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if len(report.Outcomes) != 0 {
		t.Fatalf("outcomes = %+v, want none once locked", report.Outcomes)
	}
}

func TestRunTickSettlesFinalRaces(t *testing.T) {
	h := seeded(t)
	h.teams(t)
	h.clock.now = afterLock
	ctx := context.Background()
	if _, err := h.svc.RunTick(ctx, TickOptions{}); err != nil {
		t.Fatalf("lock tick: %v", err)
	}
	if _, err := h.svc.UpsertRaceResults(ctx, "r1", race1Results(), true); err != nil {
		t.Fatalf("results: %v", err)
	}

	report, err := h.svc.RunTick(ctx, TickOptions{})
	if err != nil {
		t.Fatalf("settle tick: %v", err)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Action != TickSettle || report.Outcomes[0].Settle.ScoresWritten != 2 {
		t.Fatalf("outcomes = %+v, want one settlement", report.Outcomes)
	}

	report, err = h.svc.RunTick(ctx, TickOptions{})
	if err != nil {
		t.Fatalf("idle tick: %v", err)
	}
	if len(report.Outcomes) != 0 {
		t.Fatalf("outcomes = %+v, want none for a settled race", report.Outcomes)
	}
}

func TestRunTickProvisionalNeedsOptIn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowProvisional = true
	h := newHarness(t, cfg)
	seed(t, h)
	h.teams(t)
	h.clock.now = afterLock
	ctx := context.Background()
	if _, err := h.svc.LockRace(ctx, "r1", LockOptions{}); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := h.svc.UpsertRaceResults(ctx, "r1", race1Results(), false); err != nil {
		t.Fatalf("results: %v", err)
	}

	report, err := h.svc.RunTick(ctx, TickOptions{})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Err != nil {
		t.Fatalf("outcomes = %+v, want provisional settlement", report.Outcomes)
	}
}

func TestRunTickProvisionalCorrectionNeedsOptIn(t *testing.T) {
	h := seeded(t)
	h.settledRace1(t)
	ctx := context.Background()

	corrected := race1Results()
	corrected[0] = ResultInput{RiderID: "m1", Status: "dnf"}
	if _, err := h.svc.UpsertRaceResults(ctx, "r1", corrected, false); err != nil {
		t.Fatalf("provisional correction: %v", err)
	}

	report, err := h.svc.RunTick(ctx, TickOptions{})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(report.Outcomes) != 0 {
		t.Fatalf("outcomes = %+v, want none without provisional opt-in", report.Outcomes)
	}
	r, err := h.store.GetRace(ctx, "r1")
	if err != nil {
		t.Fatalf("get race: %v", err)
	}
	if r.Status != race.StatusSettled || !r.NeedsResettle || r.ResultsFinal {
		t.Fatalf("state = %+v, want settled awaiting a provisional resettle", r.State())
	}

	report, err = h.svc.RunTick(ctx, TickOptions{AllowProvisional: true})
	if err != nil {
		t.Fatalf("provisional tick: %v", err)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Err != nil {
		t.Fatalf("outcomes = %+v, want one settlement", report.Outcomes)
	}
	settle := report.Outcomes[0].Settle
	if settle.ScoresWritten != 2 || settle.CostUpdates != 8 {
		t.Fatalf("settle = %+v, want fresh scores and 8 reverted costs", settle)
	}
	for _, id := range []string{"m1", "m3", "f3"} {
		if got := riderCost(t, h, id); got != 100000 {
			t.Fatalf("%s cost = %d, want 100000 once final costs are withdrawn", id, got)
		}
	}
	updates, err := h.store.ListCostUpdates(ctx, "r1")
	if err != nil {
		t.Fatalf("list cost updates: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("cost updates = %d, want none for provisional results", len(updates))
	}
	r, err = h.store.GetRace(ctx, "r1")
	if err != nil {
		t.Fatalf("get race: %v", err)
	}
	if r.NeedsResettle {
		t.Fatal("expected needsResettle cleared")
	}
}

func TestRunTickIsolatesFailures(t *testing.T) {
	h := seeded(t)
	h.teams(t)
	h.clock.now = afterLock
	ctx := context.Background()
	// A final race without results cannot settle.
	if err := h.store.PutRace(ctx, storage.RaceRecord{
		ID:        "r0",
		SeasonID:  "s1",
		Name:      "broken",
		StartsAt:  race1Start.Add(-48 * time.Hour),
		LockAt:    race1Start.Add(-49 * time.Hour),
		Status:    race.StatusFinal,
		CreatedAt: beforeLock,
		UpdatedAt: beforeLock,
	}); err != nil {
		t.Fatalf("put race: %v", err)
	}

	report, err := h.svc.RunTick(ctx, TickOptions{})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(report.Outcomes) != 2 || report.Failed() != 1 {
		t.Fatalf("outcomes = %+v, want one lock and one failed settle", report.Outcomes)
	}
	for _, o := range report.Outcomes {
		switch o.RaceID {
		case "r1":
			if o.Err != nil {
				t.Fatalf("r1 lock: %v", o.Err)
			}
		case "r0":
			if apperrors.GetCode(o.Err) != apperrors.CodeRaceNotReadyForSettlement {
				t.Fatalf("r0 error = %v, want not ready", o.Err)
			}
		}
	}
}

func TestSettleDue(t *testing.T) {
	tests := []struct {
		rec   storage.RaceRecord
		allow bool
		want  bool
	}{
		{storage.RaceRecord{Status: race.StatusFinal}, false, true},
		{storage.RaceRecord{Status: race.StatusSettled}, true, false},
		{storage.RaceRecord{Status: race.StatusSettled, NeedsResettle: true, ResultsFinal: true}, false, true},
		{storage.RaceRecord{Status: race.StatusSettled, NeedsResettle: true}, false, false},
		{storage.RaceRecord{Status: race.StatusSettled, NeedsResettle: true}, true, true},
		{storage.RaceRecord{Status: race.StatusProvisional}, false, false},
		{storage.RaceRecord{Status: race.StatusProvisional}, true, true},
		{storage.RaceRecord{Status: race.StatusLocked}, true, false},
	}
	for _, tc := range tests {
		if got := settleDue(tc.rec, tc.allow); got != tc.want {
			t.Fatalf("settleDue(%s, resettle=%v, allow=%v) = %v, want %v", tc.rec.Status, tc.rec.NeedsResettle, tc.allow, got, tc.want)
		}
	}
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	h := seeded(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.svc.RunLoop(ctx, 5*time.Millisecond, TickOptions{})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run loop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not stop")
	}
}

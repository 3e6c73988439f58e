package app

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	"github.com/louisbranch/fantasy.league/internal/platform/timeouts"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

// TickOptions controls one tick pass.
type TickOptions struct {
	AllowProvisional bool
	// ForceLock overwrites conflicting snapshots of due races.
	ForceLock bool
	// ForceSettle reapplies cost updates of settled races.
	ForceSettle bool
}

// TickAction names what a tick attempted on a race.
type TickAction string

const (
	TickLock   TickAction = "lock"
	TickSettle TickAction = "settle"
)

// RaceOutcome is the result of one tick action.
type RaceOutcome struct {
	RaceID string
	Action TickAction
	Lock   LockReport
	Settle SettleReport
	Err    error
}

// TickReport lists every race the tick touched.
type TickReport struct {
	Outcomes []RaceOutcome
}

// Failed counts the outcomes that returned an error.
func (r TickReport) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// RunTick locks every scheduled race whose lock time passed and settles
// every race with settleable results. Each race runs in its own
// transaction; one failing race never stops the others.
func (s *Service) RunTick(ctx context.Context, opts TickOptions) (report TickReport, err error) {
	ctx, span := s.startSpan(ctx, "RunTick", attribute.Bool("allow_provisional", opts.AllowProvisional))
	defer func() { finish(span, err) }()

	allowProvisional := opts.AllowProvisional || s.cfg.AllowProvisional

	scheduled, err := s.store.ListRacesByStatus(ctx, race.StatusScheduled)
	if err != nil {
		return TickReport{}, err
	}
	now := s.now()
	for _, r := range scheduled {
		if now.Before(r.LockAt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		lock, lockErr := s.LockRace(ctx, r.ID, LockOptions{Force: opts.ForceLock})
		report.Outcomes = append(report.Outcomes, RaceOutcome{RaceID: r.ID, Action: TickLock, Lock: lock, Err: lockErr})
		logOutcome(report.Outcomes[len(report.Outcomes)-1])
	}

	candidates, err := s.store.ListRacesByStatus(ctx, race.StatusProvisional, race.StatusFinal, race.StatusSettled)
	if err != nil {
		return report, err
	}
	for _, r := range candidates {
		if !settleDue(r, allowProvisional) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		settle, settleErr := s.SettleRace(ctx, r.ID, SettleOptions{Force: opts.ForceSettle, AllowProvisional: allowProvisional})
		report.Outcomes = append(report.Outcomes, RaceOutcome{RaceID: r.ID, Action: TickSettle, Settle: settle, Err: settleErr})
		logOutcome(report.Outcomes[len(report.Outcomes)-1])
	}
	return report, nil
}

func settleDue(r storage.RaceRecord, allowProvisional bool) bool {
	switch r.Status {
	case race.StatusFinal:
		return true
	case race.StatusSettled:
		return r.NeedsResettle && (r.ResultsFinal || allowProvisional)
	case race.StatusProvisional:
		return allowProvisional
	default:
		return false
	}
}

func logOutcome(o RaceOutcome) {
	if o.Err != nil {
		log.Printf("tick %s race %s: %s: %v", o.Action, o.RaceID, apperrors.GetCode(o.Err).GRPCCode(), o.Err)
		return
	}
	switch o.Action {
	case TickLock:
		log.Printf("tick lock race %s: created=%d unchanged=%d overwritten=%d skipped=%d",
			o.RaceID, o.Lock.Created, o.Lock.Unchanged, o.Lock.Overwritten, o.Lock.Skipped)
	case TickSettle:
		log.Printf("tick settle race %s: scores=%d unchanged=%d costs=%d",
			o.RaceID, o.Settle.ScoresWritten, o.Settle.ScoresUnchanged, o.Settle.CostUpdates)
	}
}

// RunLoop ticks immediately and then every interval until ctx is done.
func (s *Service) RunLoop(ctx context.Context, interval time.Duration, opts TickOptions) error {
	if interval <= 0 {
		interval = timeouts.TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.tickOnce(ctx, opts)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Service) tickOnce(ctx context.Context, opts TickOptions) {
	tickCtx, cancel := context.WithTimeout(ctx, timeouts.Tick)
	defer cancel()
	report, err := s.RunTick(tickCtx, opts)
	if err != nil && ctx.Err() == nil {
		log.Printf("tick: %v", err)
	}
	if failed := report.Failed(); failed > 0 {
		log.Printf("tick: %d of %d race actions failed", failed, len(report.Outcomes))
	}
}

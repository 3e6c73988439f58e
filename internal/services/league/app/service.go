// Package app runs the league season engine: team edits, race locking,
// results, settlement, jokers, and standings over a transactional store.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	"github.com/louisbranch/fantasy.league/internal/platform/id"
	platformotel "github.com/louisbranch/fantasy.league/internal/platform/otel"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/roster"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/scoring"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

const tracerName = "github.com/louisbranch/fantasy.league/internal/services/league/app"

// Config holds the league rules threaded into the service.
type Config struct {
	// SecondCategoryEnabled turns on the u23 team category.
	SecondCategoryEnabled bool
	BudgetCap             int64
	TransferCap           int
	// AllowProvisional lets the tick settle races with provisional results.
	AllowProvisional bool
	Rules            roster.Rules
	Table            scoring.Table
}

// DefaultConfig returns the standard league rules.
func DefaultConfig() Config {
	return Config{
		BudgetCap:   1000000,
		TransferCap: 2,
		Rules:       roster.DefaultRules(),
		Table:       scoring.DefaultTable(),
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.BudgetCap <= 0 {
		c.BudgetCap = def.BudgetCap
	}
	if c.TransferCap < 0 {
		c.TransferCap = def.TransferCap
	}
	if c.Rules.StarterCount <= 0 {
		c.Rules = def.Rules
	}
	if len(c.Table.Points) == 0 {
		c.Table = def.Table
	}
	return c
}

// Categories lists the enabled team categories.
func (c Config) Categories() []rider.Category {
	if c.SecondCategoryEnabled {
		return []rider.Category{rider.CategoryElite, rider.CategoryU23}
	}
	return []rider.Category{rider.CategoryElite}
}

// Service exposes the league operations.
type Service struct {
	store    storage.TxStore
	cfg      Config
	clock    func() time.Time
	newID    id.Generator
	tracer   trace.Tracer
	validate *validator.Validate
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the service clock.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen id.Generator) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService builds a Service over store.
func NewService(store storage.TxStore, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("league store is required")
	}
	s := &Service{
		store:    store,
		cfg:      cfg.normalized(),
		clock:    time.Now,
		newID:    id.NewID,
		tracer:   platformotel.Tracer(tracerName),
		validate: validator.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Config returns the normalized rules the service runs with.
func (s *Service) Config() Config {
	return s.cfg
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// startSpan opens an operation span; finish records err on it.
func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "league."+name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, string(apperrors.GetCode(err)))
	}
	span.End()
}

// validateInput checks struct tags, reporting the first failing field.
func (s *Service) validateInput(ctx context.Context, code apperrors.Code, input any, metadata map[string]string) error {
	err := s.validate.StructCtx(ctx, input)
	if err == nil {
		return nil
	}
	reason := err.Error()
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
	meta := map[string]string{"Reason": reason}
	for k, v := range metadata {
		meta[k] = v
	}
	return apperrors.WithMetadata(code, "invalid input: "+reason, meta)
}

func inputInvalid(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeInputInvalid, "invalid input: "+reason, map[string]string{"Reason": reason})
}

// category resolves a team category label against the enabled categories.
func (s *Service) category(value string) (rider.Category, error) {
	category, ok := rider.ParseTeamCategory(value)
	if !ok {
		return "", inputInvalid(fmt.Sprintf("unknown category %q", strings.TrimSpace(value)))
	}
	for _, enabled := range s.cfg.Categories() {
		if enabled == category {
			return category, nil
		}
	}
	return "", apperrors.WithMetadata(apperrors.CodeCategoryDisabled, "category disabled",
		map[string]string{"Category": string(category)})
}

func calendar(records []storage.RaceRecord) []race.Race {
	out := make([]race.Race, len(records))
	for i, r := range records {
		out[i] = race.Race{ID: r.ID, StartsAt: r.StartsAt, LockAt: r.LockAt, Status: r.Status}
	}
	return out
}

func hasSettledRace(records []storage.RaceRecord) bool {
	for _, r := range records {
		if r.Status == race.StatusSettled {
			return true
		}
	}
	return false
}

// seasonWindow loads the season's races and derives the editing window.
func (s *Service) seasonWindow(ctx context.Context, tx storage.Store, seasonID string) (race.Window, []storage.RaceRecord, error) {
	if _, err := tx.GetSeason(ctx, seasonID); err != nil {
		return race.Window{}, nil, fmt.Errorf("get season %s: %w", seasonID, err)
	}
	races, err := tx.ListRaces(ctx, seasonID)
	if err != nil {
		return race.Window{}, nil, err
	}
	return race.ComputeWindow(calendar(races), s.now()), races, nil
}

func windowClosed(w race.Window) error {
	return apperrors.WithMetadata(apperrors.CodeEditingWindowClosed, "editing window closed: "+string(w.Reason),
		map[string]string{"Reason": string(w.Reason)})
}

// rosterLineup splits stored members into starters and the bench id.
func rosterLineup(members []storage.RosterMember) ([]roster.Starter, string) {
	var (
		starters []roster.Starter
		bench    string
	)
	for _, m := range members {
		if m.Bench {
			bench = m.RiderID
			continue
		}
		starters = append(starters, roster.Starter{Slot: m.Slot, RiderID: m.RiderID})
	}
	return starters, bench
}

func memberCosts(members []storage.RosterMember) map[string]int64 {
	costs := make(map[string]int64, len(members))
	for _, m := range members {
		costs[m.RiderID] = m.Cost
	}
	return costs
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/race"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

// SeasonInput creates a season. ID is generated when empty.
type SeasonInput struct {
	ID       string
	Name     string    `validate:"required,max=120"`
	StartsAt time.Time `validate:"required"`
	EndsAt   time.Time `validate:"required,gtfield=StartsAt"`
}

// CreateSeason stores a new season.
func (s *Service) CreateSeason(ctx context.Context, in SeasonInput) (rec storage.SeasonRecord, err error) {
	ctx, span := s.startSpan(ctx, "CreateSeason")
	defer func() { finish(span, err) }()

	if err := s.validateInput(ctx, apperrors.CodeInputInvalid, in, nil); err != nil {
		return storage.SeasonRecord{}, err
	}
	seasonID := strings.TrimSpace(in.ID)
	if seasonID == "" {
		if seasonID, err = s.newID(); err != nil {
			return storage.SeasonRecord{}, fmt.Errorf("generate season id: %w", err)
		}
	}

	err = s.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetSeason(ctx, seasonID); err == nil {
			return apperrors.New(apperrors.CodeAlreadyExists, "season already exists")
		} else if !isNotFound(err) {
			return err
		}
		rec = storage.SeasonRecord{
			ID:        seasonID,
			Name:      strings.TrimSpace(in.Name),
			StartsAt:  in.StartsAt.UTC(),
			EndsAt:    in.EndsAt.UTC(),
			CreatedAt: s.now(),
		}
		return tx.PutSeason(ctx, rec)
	})
	return rec, err
}

// RaceInput schedules a race. ID is generated when empty.
type RaceInput struct {
	ID       string
	SeasonID string    `validate:"required"`
	Name     string    `validate:"required,max=120"`
	StartsAt time.Time `validate:"required"`
	LockAt   time.Time `validate:"required,ltefield=StartsAt"`
}

// CreateRace schedules a race in an existing season.
func (s *Service) CreateRace(ctx context.Context, in RaceInput) (rec storage.RaceRecord, err error) {
	ctx, span := s.startSpan(ctx, "CreateRace", attribute.String("season.id", in.SeasonID))
	defer func() { finish(span, err) }()

	if err := s.validateInput(ctx, apperrors.CodeInputInvalid, in, nil); err != nil {
		return storage.RaceRecord{}, err
	}
	raceID := strings.TrimSpace(in.ID)
	if raceID == "" {
		if raceID, err = s.newID(); err != nil {
			return storage.RaceRecord{}, fmt.Errorf("generate race id: %w", err)
		}
	}

	err = s.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetSeason(ctx, in.SeasonID); err != nil {
			return fmt.Errorf("get season %s: %w", in.SeasonID, err)
		}
		if _, err := tx.GetRace(ctx, raceID); err == nil {
			return apperrors.New(apperrors.CodeAlreadyExists, "race already exists")
		} else if !isNotFound(err) {
			return err
		}
		now := s.now()
		rec = storage.RaceRecord{
			ID:        raceID,
			SeasonID:  in.SeasonID,
			Name:      strings.TrimSpace(in.Name),
			StartsAt:  in.StartsAt.UTC(),
			LockAt:    in.LockAt.UTC(),
			Status:    race.StatusScheduled,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.PutRace(ctx, rec)
	})
	return rec, err
}

// RiderInput is one catalog entry to import.
type RiderInput struct {
	ID       string `validate:"required"`
	Name     string `validate:"required,max=120"`
	Gender   string `validate:"required,oneof=m f"`
	Category string `validate:"required,oneof=elite u23 both"`
	Cost     int64  `validate:"gte=0"`
}

// PutRiders imports catalog riders, replacing existing entries.
func (s *Service) PutRiders(ctx context.Context, riders []RiderInput) (err error) {
	ctx, span := s.startSpan(ctx, "PutRiders", attribute.Int("riders.count", len(riders)))
	defer func() { finish(span, err) }()

	records := make([]storage.RiderRecord, 0, len(riders))
	seen := make(map[string]struct{}, len(riders))
	now := s.now()
	for _, in := range riders {
		if err := s.validateInput(ctx, apperrors.CodeInputInvalid, in, nil); err != nil {
			return err
		}
		riderID := strings.TrimSpace(in.ID)
		if _, dup := seen[riderID]; dup {
			return inputInvalid(fmt.Sprintf("rider %s listed twice", riderID))
		}
		seen[riderID] = struct{}{}
		records = append(records, storage.RiderRecord{
			ID:        riderID,
			Name:      strings.TrimSpace(in.Name),
			Gender:    rider.Gender(in.Gender),
			Category:  rider.Category(in.Category),
			Cost:      in.Cost,
			UpdatedAt: now,
		})
	}

	return s.store.InTx(ctx, func(tx storage.Store) error {
		return tx.PutRiders(ctx, records)
	})
}

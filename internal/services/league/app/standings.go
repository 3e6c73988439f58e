package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/standings"
	"github.com/louisbranch/fantasy.league/internal/services/league/storage"
)

// Leaderboard is one category's ranking for a race.
type Leaderboard struct {
	Category rider.Category
	Rows     []standings.LeaderboardRow
}

// Standings is one category's season table.
type Standings struct {
	Category rider.Category
	Rows     []standings.Row
}

// RaceLeaderboard ranks the race's scores per enabled category.
func (s *Service) RaceLeaderboard(ctx context.Context, raceID string) (boards []Leaderboard, err error) {
	ctx, span := s.startSpan(ctx, "RaceLeaderboard", attribute.String("race.id", raceID))
	defer func() { finish(span, err) }()

	err = s.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetRace(ctx, raceID); err != nil {
			return fmt.Errorf("get race %s: %w", raceID, err)
		}
		boards = boards[:0]
		for _, category := range s.cfg.Categories() {
			records, err := tx.ListRaceScores(ctx, raceID, category)
			if err != nil {
				return err
			}
			boards = append(boards, Leaderboard{Category: category, Rows: standings.Leaderboard(scores(records))})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return boards, nil
}

// SeasonStandings folds every settled race score of the season into a table
// per enabled category. Teams without scores are listed with zero points.
func (s *Service) SeasonStandings(ctx context.Context, seasonID string) (tables []Standings, err error) {
	ctx, span := s.startSpan(ctx, "SeasonStandings", attribute.String("season.id", seasonID))
	defer func() { finish(span, err) }()

	err = s.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetSeason(ctx, seasonID); err != nil {
			return fmt.Errorf("get season %s: %w", seasonID, err)
		}
		tables = tables[:0]
		for _, category := range s.cfg.Categories() {
			rosters, err := tx.ListRosters(ctx, seasonID, category)
			if err != nil {
				return err
			}
			records, err := tx.ListSettledScores(ctx, seasonID, category)
			if err != nil {
				return err
			}
			teams := make([]standings.Team, len(rosters))
			for i, r := range rosters {
				teams[i] = standings.Team{UserID: r.UserID, RosterID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
			}
			tables = append(tables, Standings{Category: category, Rows: standings.Season(teams, scores(records))})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

func scores(records []storage.ScoreRecord) []standings.Score {
	out := make([]standings.Score, len(records))
	for i, r := range records {
		out[i] = standings.Score{RaceID: r.RaceID, UserID: r.UserID, Total: r.Total}
	}
	return out
}

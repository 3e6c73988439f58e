// Package standings ranks users within a race and across a season.
package standings

import (
	"sort"
	"time"
)

// Score is one user's settled total for one race.
type Score struct {
	RaceID string
	UserID string
	Total  int
}

// LeaderboardRow is a ranked race score. Equal totals share a rank and the
// next rank skips accordingly (1, 1, 3).
type LeaderboardRow struct {
	Rank   int
	UserID string
	Total  int
}

// Leaderboard ranks scores of a single race by total, then user id.
func Leaderboard(scores []Score) []LeaderboardRow {
	ordered := append([]Score(nil), scores...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Total != ordered[j].Total {
			return ordered[i].Total > ordered[j].Total
		}
		return ordered[i].UserID < ordered[j].UserID
	})
	rows := make([]LeaderboardRow, len(ordered))
	for i, s := range ordered {
		rank := i + 1
		if i > 0 && s.Total == ordered[i-1].Total {
			rank = rows[i-1].Rank
		}
		rows[i] = LeaderboardRow{Rank: rank, UserID: s.UserID, Total: s.Total}
	}
	return rows
}

// Team is a season roster taking part in the standings.
type Team struct {
	UserID    string
	RosterID  string
	Name      string
	CreatedAt time.Time
}

// Row is a user's season line.
type Row struct {
	Rank        int
	UserID      string
	RosterID    string
	Name        string
	Total       int
	RaceWins    int
	BestRace    int
	Podiums     int
	RacesScored int
	CreatedAt   time.Time
}

// Season folds race scores into standings. Every team appears, even with no
// scores. Ties on total are broken by race wins, best single race, podium
// finishes, earlier team creation, then user id. Scores for users without a
// team are ignored.
func Season(teams []Team, scores []Score) []Row {
	rows := make(map[string]*Row, len(teams))
	for _, t := range teams {
		rows[t.UserID] = &Row{UserID: t.UserID, RosterID: t.RosterID, Name: t.Name, CreatedAt: t.CreatedAt}
	}

	byRace := make(map[string][]Score)
	for _, s := range scores {
		row, ok := rows[s.UserID]
		if !ok {
			continue
		}
		row.Total += s.Total
		if row.RacesScored == 0 || s.Total > row.BestRace {
			row.BestRace = s.Total
		}
		row.RacesScored++
		byRace[s.RaceID] = append(byRace[s.RaceID], s)
	}
	for _, raceScores := range byRace {
		for _, lb := range Leaderboard(raceScores) {
			row := rows[lb.UserID]
			if lb.Rank == 1 {
				row.RaceWins++
			}
			if lb.Rank <= 3 {
				row.Podiums++
			}
		}
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func less(a, b Row) bool {
	switch {
	case a.Total != b.Total:
		return a.Total > b.Total
	case a.RaceWins != b.RaceWins:
		return a.RaceWins > b.RaceWins
	case a.BestRace != b.BestRace:
		return a.BestRace > b.BestRace
	case a.Podiums != b.Podiums:
		return a.Podiums > b.Podiums
	case !a.CreatedAt.Equal(b.CreatedAt):
		return a.CreatedAt.Before(b.CreatedAt)
	default:
		return a.UserID < b.UserID
	}
}

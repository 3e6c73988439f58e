package standings

import (
	"reflect"
	"testing"
	"time"
)

func TestLeaderboardCompetitionRanking(t *testing.T) {
	rows := Leaderboard([]Score{
		{UserID: "c", Total: 10},
		{UserID: "b", Total: 30},
		{UserID: "a", Total: 30},
		{UserID: "d", Total: 5},
	})
	want := []LeaderboardRow{{1, "a", 30}, {1, "b", 30}, {3, "c", 10}, {4, "d", 5}}
	for i, w := range want {
		if rows[i] != w {
			t.Fatalf("row %d = %+v, want %+v", i, rows[i], w)
		}
	}
}

func TestSeasonIncludesTeamsWithoutScores(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := Season([]Team{{UserID: "idle", CreatedAt: now}, {UserID: "busy", CreatedAt: now}},
		[]Score{{RaceID: "r1", UserID: "busy", Total: 12}, {RaceID: "r1", UserID: "stranger", Total: 99}})
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].UserID != "busy" || rows[1].UserID != "idle" || rows[1].Total != 0 {
		t.Fatalf("rows = %+v", rows)
	}
}

func order(rows []Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	return ids
}

func TestSeasonTieBreakChain(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	teams := func(ids ...string) []Team {
		out := make([]Team, len(ids))
		for i, id := range ids {
			out[i] = Team{UserID: id, CreatedAt: early}
		}
		return out
	}

	tests := []struct {
		name   string
		teams  []Team
		scores []Score
		want   []string
	}{
		{
			// a and b total 30; a won r1 while b has the better single race.
			name:  "race wins",
			teams: teams("a", "b", "x"),
			scores: []Score{
				{RaceID: "r1", UserID: "a", Total: 25}, {RaceID: "r1", UserID: "b", Total: 2}, {RaceID: "r1", UserID: "x", Total: 0},
				{RaceID: "r2", UserID: "a", Total: 5}, {RaceID: "r2", UserID: "b", Total: 28}, {RaceID: "r2", UserID: "x", Total: 40},
			},
			want: []string{"x", "a", "b"},
		},
		{
			name:  "best single race",
			teams: teams("a", "b", "x"),
			scores: []Score{
				{RaceID: "r1", UserID: "x", Total: 50}, {RaceID: "r1", UserID: "a", Total: 18}, {RaceID: "r1", UserID: "b", Total: 10},
				{RaceID: "r2", UserID: "x", Total: 50}, {RaceID: "r2", UserID: "a", Total: 2}, {RaceID: "r2", UserID: "b", Total: 10},
			},
			want: []string{"x", "a", "b"},
		},
		{
			// a and b total 20, no wins, best race 10; a reached the podium twice.
			name:  "podiums",
			teams: teams("a", "b", "w", "u", "v"),
			scores: []Score{
				{RaceID: "r1", UserID: "w", Total: 40}, {RaceID: "r1", UserID: "b", Total: 10}, {RaceID: "r1", UserID: "a", Total: 10},
				{RaceID: "r2", UserID: "w", Total: 40}, {RaceID: "r2", UserID: "a", Total: 10},
				{RaceID: "r3", UserID: "w", Total: 40}, {RaceID: "r3", UserID: "u", Total: 30}, {RaceID: "r3", UserID: "v", Total: 20},
				{RaceID: "r3", UserID: "b", Total: 10}, {RaceID: "r3", UserID: "a", Total: 0},
			},
			want: []string{"w", "u", "v", "a", "b"},
		},
		{
			name:   "earlier creation",
			teams:  []Team{{UserID: "a", CreatedAt: late}, {UserID: "b", CreatedAt: early}},
			scores: []Score{{RaceID: "r1", UserID: "a", Total: 10}, {RaceID: "r1", UserID: "b", Total: 10}},
			want:   []string{"b", "a"},
		},
		{
			name:   "user id",
			teams:  teams("b", "a"),
			scores: []Score{{RaceID: "r1", UserID: "a", Total: 10}, {RaceID: "r1", UserID: "b", Total: 10}},
			want:   []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := order(Season(tt.teams, tt.scores))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeasonCountsWinsAndPodiums(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := Season([]Team{{UserID: "a", CreatedAt: at}, {UserID: "b", CreatedAt: at}}, []Score{
		{RaceID: "r1", UserID: "a", Total: 30}, {RaceID: "r1", UserID: "b", Total: 20},
		{RaceID: "r2", UserID: "a", Total: 5}, {RaceID: "r2", UserID: "b", Total: 15},
	})
	if rows[0].UserID != "a" || rows[0].BestRace != 30 || rows[0].RacesScored != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].RaceWins != 1 || rows[1].RaceWins != 1 || rows[0].Podiums != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Rank != 1 || rows[1].Rank != 2 {
		t.Fatalf("ranks = %d/%d", rows[0].Rank, rows[1].Rank)
	}
}

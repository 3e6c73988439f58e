package leaguectl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"

	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
)

func TestParseConfigCommandFirst(t *testing.T) {
	t.Setenv("FANTASY_LEAGUE_DB_PATH", "/tmp/env.db")
	fs := flag.NewFlagSet("leaguectl", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"settle", "-race", "r1", "-force"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Command != "settle" || cfg.RaceID != "r1" || !cfg.Force {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Fatalf("db path = %q, want env value", cfg.DBPath)
	}
	if cfg.Timeout <= 0 {
		t.Fatalf("timeout = %v, want default", cfg.Timeout)
	}
}

func TestParseConfigCommandAfterFlags(t *testing.T) {
	fs := flag.NewFlagSet("leaguectl", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-season", "s1", "standings"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Command != "standings" || cfg.SeasonID != "s1" {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.DBPath != "data/league.db" {
		t.Fatalf("db path = %q, want default", cfg.DBPath)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	err := Run(context.Background(), Config{Command: "replay"}, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("err = %v, want unknown command", err)
	}
}

func TestRunRequiresFlags(t *testing.T) {
	cfg := Config{Command: "lock", DBPath: filepath.Join(t.TempDir(), "league.db")}
	err := Run(context.Background(), cfg, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "-race is required") {
		t.Fatalf("err = %v, want missing race", err)
	}
}

func TestRunSeasonFlow(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "league.db")
	ctx := context.Background()
	now := time.Now().UTC()

	run := func(cfg Config) string {
		t.Helper()
		cfg.DBPath = dbPath
		cfg.TransferCap = 2
		var out, errOut bytes.Buffer
		if err := Run(ctx, cfg, &out, &errOut); err != nil {
			t.Fatalf("%s: %v (stderr %s)", cfg.Command, err, errOut.String())
		}
		return out.String()
	}

	run(Config{
		Command:  "create-season",
		SeasonID: "s1",
		Name:     "2026",
		StartsAt: now.AddDate(0, -1, 0).Format(time.RFC3339),
		EndsAt:   now.AddDate(0, 6, 0).Format(time.RFC3339),
	})
	run(Config{
		Command:  "create-race",
		SeasonID: "s1",
		RaceID:   "r1",
		Name:     "Opening",
		StartsAt: now.Add(time.Hour).Format(time.RFC3339),
		LockAt:   now.Add(-time.Minute).Format(time.RFC3339),
	})

	riders := filepath.Join(dir, "riders.json")
	writeFile(t, riders, `[{"id":"m1","name":"A","gender":"m","category":"elite","cost":1000}]`)
	run(Config{Command: "riders", File: riders})

	lock := run(Config{Command: "lock", RaceID: "r1", JSONOutput: true})
	var report struct {
		Created      int
		Transitioned bool
	}
	if err := json.Unmarshal([]byte(lock), &report); err != nil {
		t.Fatalf("decode lock report %q: %v", lock, err)
	}
	if !report.Transitioned {
		t.Fatalf("lock report = %+v, want transitioned", report)
	}

	results := filepath.Join(dir, "results.json")
	writeFile(t, results, `[{"riderId":"m1","status":"finished","position":1}]`)
	run(Config{Command: "results", RaceID: "r1", File: results, Final: true})
	run(Config{Command: "settle", RaceID: "r1"})

	board := run(Config{Command: "leaderboard", RaceID: "r1"})
	if !strings.Contains(board, "elite") {
		t.Fatalf("leaderboard output = %q", board)
	}
	table := run(Config{Command: "standings", SeasonID: "s1"})
	if !strings.Contains(table, "rank") {
		t.Fatalf("standings output = %q", table)
	}
}

func TestRunDescribesLeagueErrors(t *testing.T) {
	cfg := Config{Command: "settle", RaceID: "missing", DBPath: filepath.Join(t.TempDir(), "league.db")}
	err := Run(context.Background(), cfg, nil, nil)
	if err == nil || !strings.HasPrefix(err.Error(), "NOT_FOUND: ") {
		t.Fatalf("err = %v, want NOT_FOUND prefix", err)
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("err = %T, want *CommandError", err)
	}
	if cmdErr.Status != codes.NotFound {
		t.Fatalf("status = %v, want NotFound", cmdErr.Status)
	}
	if got := ExitCode(err); got != ExitRejected {
		t.Fatalf("exit code = %d, want %d", got, ExitRejected)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   codes.Code
		message  string
		exitCode int
	}{
		{
			name:     "rejected",
			err:      apperrors.WithMetadata(apperrors.CodeRaceNotLocked, "race not locked", map[string]string{"RaceID": "r1"}),
			status:   codes.FailedPrecondition,
			message:  "Race r1 must be locked before results are accepted",
			exitCode: ExitRejected,
		},
		{
			name:     "wrapped conflict",
			err:      fmt.Errorf("settle: %w", apperrors.New(apperrors.CodeCostUpdateConflict, "conflict")),
			status:   codes.Aborted,
			exitCode: ExitRejected,
		},
		{
			name:     "server fault",
			err:      apperrors.Wrap(apperrors.CodeRecordCorrupt, "bad breakdown", errors.New("eof")),
			status:   codes.Internal,
			exitCode: ExitFault,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := describe(tc.err, "en-US")
			var cmdErr *CommandError
			if !errors.As(err, &cmdErr) {
				t.Fatalf("describe = %T, want *CommandError", err)
			}
			if cmdErr.Status != tc.status {
				t.Fatalf("status = %v, want %v", cmdErr.Status, tc.status)
			}
			if tc.message != "" && cmdErr.Message != tc.message {
				t.Fatalf("message = %q, want %q", cmdErr.Message, tc.message)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("describe lost the cause %v", tc.err)
			}
			if got := ExitCode(err); got != tc.exitCode {
				t.Fatalf("exit code = %d, want %d", got, tc.exitCode)
			}
		})
	}
}

func TestExitCodePlainError(t *testing.T) {
	err := describe(errors.New("disk full"), "")
	if got := ExitCode(err); got != ExitFault {
		t.Fatalf("exit code = %d, want %d", got, ExitFault)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Package leaguectl implements the league administration command.
package leaguectl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/louisbranch/fantasy.league/internal/platform/config"
	"github.com/louisbranch/fantasy.league/internal/platform/discovery"
	apperrors "github.com/louisbranch/fantasy.league/internal/platform/errors"
	platformgrpc "github.com/louisbranch/fantasy.league/internal/platform/grpc"
	"github.com/louisbranch/fantasy.league/internal/platform/timeouts"
	leagueapp "github.com/louisbranch/fantasy.league/internal/services/league/app"
	leaguesqlite "github.com/louisbranch/fantasy.league/internal/services/league/storage/sqlite"
)

// Commands lists the supported subcommands.
var Commands = []string{
	"create-season", "create-race", "riders", "lock", "unlock", "results",
	"settle", "tick", "leaderboard", "standings", "health",
}

// Config holds leaguectl configuration.
type Config struct {
	Command string

	DBPath                string        `env:"FANTASY_LEAGUE_DB_PATH" envDefault:"data/league.db"`
	Addr                  string        `env:"FANTASY_LEAGUE_ADDR"`
	Timeout               time.Duration `env:"FANTASY_LEAGUE_CTL_TIMEOUT"`
	SecondCategoryEnabled bool          `env:"FANTASY_LEAGUE_SECOND_CATEGORY_ENABLED"`
	BudgetCap             int64         `env:"FANTASY_LEAGUE_BUDGET_CAP"`
	TransferCap           int           `env:"FANTASY_LEAGUE_TRANSFER_CAP" envDefault:"2"`

	SeasonID         string
	RaceID           string
	Name             string
	StartsAt         string
	EndsAt           string
	LockAt           string
	File             string
	Final            bool
	Force            bool
	AllowProvisional bool
	JSONOutput       bool
	Locale           string
}

// ParseConfig reads the environment, then the subcommand and its flags:
//
//	leaguectl <command> [flags]
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.AdminCommand
	}

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cfg.Command = args[0]
		args = args[1:]
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the league sqlite database (default: FANTASY_LEAGUE_DB_PATH or data/league.db)")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "league runtime gRPC address for health (default: FANTASY_LEAGUE_ADDR or league:8095)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	fs.BoolVar(&cfg.SecondCategoryEnabled, "second-category", cfg.SecondCategoryEnabled, "include u23 teams")
	fs.StringVar(&cfg.SeasonID, "season", "", "season id")
	fs.StringVar(&cfg.RaceID, "race", "", "race id")
	fs.StringVar(&cfg.Name, "name", "", "season or race name")
	fs.StringVar(&cfg.StartsAt, "starts", "", "start time (RFC 3339)")
	fs.StringVar(&cfg.EndsAt, "ends", "", "season end time (RFC 3339)")
	fs.StringVar(&cfg.LockAt, "lock", "", "race lock time (RFC 3339, default: start time)")
	fs.StringVar(&cfg.File, "file", "", "JSON input file for riders or results")
	fs.BoolVar(&cfg.Final, "final", false, "mark uploaded results as final")
	fs.BoolVar(&cfg.Force, "force", false, "force lock, unlock, or settlement")
	fs.BoolVar(&cfg.AllowProvisional, "allow-provisional", false, "settle provisional results")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.StringVar(&cfg.Locale, "locale", "en-US", "locale for error messages")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Command == "" {
		cfg.Command = fs.Arg(0)
	}
	return cfg, nil
}

// Run executes the configured command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if !knownCommand(cfg.Command) {
		return fmt.Errorf("unknown command %q (want one of %s)", cfg.Command, strings.Join(Commands, ", "))
	}

	if cfg.Command == "health" {
		addr := discovery.OrDefaultGRPCAddr(cfg.Addr, discovery.ServiceLeague)
		logf := func(format string, args ...any) { fmt.Fprintf(errOut, format+"\n", args...) }
		if err := platformgrpc.Probe(ctx, addr, leagueapp.HealthService, cfg.Timeout, logf); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s is serving\n", addr)
		return nil
	}

	store, err := leaguesqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open league store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "close league store: %v\n", closeErr)
		}
	}()

	svcCfg := leagueapp.DefaultConfig()
	svcCfg.SecondCategoryEnabled = cfg.SecondCategoryEnabled
	svcCfg.AllowProvisional = cfg.AllowProvisional
	svcCfg.TransferCap = cfg.TransferCap
	if cfg.BudgetCap > 0 {
		svcCfg.BudgetCap = cfg.BudgetCap
	}
	svc, err := leagueapp.NewService(store, svcCfg)
	if err != nil {
		return err
	}

	report, err := execute(ctx, svc, cfg)
	if err != nil {
		return describe(err, cfg.Locale)
	}
	return write(out, cfg.JSONOutput, report)
}

func knownCommand(name string) bool {
	for _, c := range Commands {
		if c == name {
			return true
		}
	}
	return false
}

func execute(ctx context.Context, svc *leagueapp.Service, cfg Config) (any, error) {
	switch cfg.Command {
	case "create-season":
		starts, err := parseTime("starts", cfg.StartsAt)
		if err != nil {
			return nil, err
		}
		ends, err := parseTime("ends", cfg.EndsAt)
		if err != nil {
			return nil, err
		}
		return svc.CreateSeason(ctx, leagueapp.SeasonInput{ID: cfg.SeasonID, Name: cfg.Name, StartsAt: starts, EndsAt: ends})
	case "create-race":
		starts, err := parseTime("starts", cfg.StartsAt)
		if err != nil {
			return nil, err
		}
		lockAt := starts
		if cfg.LockAt != "" {
			if lockAt, err = parseTime("lock", cfg.LockAt); err != nil {
				return nil, err
			}
		}
		return svc.CreateRace(ctx, leagueapp.RaceInput{ID: cfg.RaceID, SeasonID: cfg.SeasonID, Name: cfg.Name, StartsAt: starts, LockAt: lockAt})
	case "riders":
		var riders []riderFile
		if err := readJSON(cfg.File, &riders); err != nil {
			return nil, err
		}
		inputs := make([]leagueapp.RiderInput, len(riders))
		for i, r := range riders {
			inputs[i] = leagueapp.RiderInput{ID: r.ID, Name: r.Name, Gender: r.Gender, Category: r.Category, Cost: r.Cost}
		}
		if err := svc.PutRiders(ctx, inputs); err != nil {
			return nil, err
		}
		return map[string]int{"riders": len(inputs)}, nil
	case "lock":
		if err := require("race", cfg.RaceID); err != nil {
			return nil, err
		}
		return svc.LockRace(ctx, cfg.RaceID, leagueapp.LockOptions{Force: cfg.Force})
	case "unlock":
		if err := require("race", cfg.RaceID); err != nil {
			return nil, err
		}
		return svc.UnlockRace(ctx, cfg.RaceID, leagueapp.UnlockOptions{Force: cfg.Force})
	case "results":
		if err := require("race", cfg.RaceID); err != nil {
			return nil, err
		}
		var results []resultFile
		if err := readJSON(cfg.File, &results); err != nil {
			return nil, err
		}
		inputs := make([]leagueapp.ResultInput, len(results))
		for i, r := range results {
			inputs[i] = leagueapp.ResultInput{RiderID: r.RiderID, Status: r.Status, Position: r.Position}
		}
		rec, err := svc.UpsertRaceResults(ctx, cfg.RaceID, inputs, cfg.Final)
		if err != nil {
			return nil, err
		}
		return rec.State(), nil
	case "settle":
		if err := require("race", cfg.RaceID); err != nil {
			return nil, err
		}
		return svc.SettleRace(ctx, cfg.RaceID, leagueapp.SettleOptions{Force: cfg.Force, AllowProvisional: cfg.AllowProvisional})
	case "tick":
		report, err := svc.RunTick(ctx, leagueapp.TickOptions{AllowProvisional: cfg.AllowProvisional})
		if err != nil {
			return nil, err
		}
		return tickRows(report), nil
	case "leaderboard":
		if err := require("race", cfg.RaceID); err != nil {
			return nil, err
		}
		return svc.RaceLeaderboard(ctx, cfg.RaceID)
	case "standings":
		if err := require("season", cfg.SeasonID); err != nil {
			return nil, err
		}
		return svc.SeasonStandings(ctx, cfg.SeasonID)
	}
	return nil, fmt.Errorf("unhandled command %q", cfg.Command)
}

type riderFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	Category string `json:"category"`
	Cost     int64  `json:"cost"`
}

type resultFile struct {
	RiderID  string `json:"riderId"`
	Status   string `json:"status"`
	Position *int   `json:"position,omitempty"`
}

type tickRow struct {
	RaceID string `json:"raceId"`
	Action string `json:"action"`
	Error  string `json:"error,omitempty"`
}

func tickRows(report leagueapp.TickReport) []tickRow {
	rows := make([]tickRow, len(report.Outcomes))
	for i, o := range report.Outcomes {
		rows[i] = tickRow{RaceID: o.RaceID, Action: string(o.Action)}
		if o.Err != nil {
			rows[i].Error = o.Err.Error()
		}
	}
	return rows
}

func require(flagName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("-%s is required", flagName)
	}
	return nil
}

func parseTime(flagName, value string) (time.Time, error) {
	if err := require(flagName, value); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("-%s: %w", flagName, err)
	}
	return t, nil
}

func readJSON(path string, target any) error {
	if err := require("file", path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Exit statuses for failed commands. Usage errors exit with
// config.ExitUsage.
const (
	ExitFault    = 1
	ExitRejected = 3
)

// CommandError is a league error as reported to the operator.
type CommandError struct {
	Code    apperrors.Code
	Status  codes.Code
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s (%s): %v", e.Code, e.Message, e.Status, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode maps a Run error to a process exit status. Requests the league
// rejected exit with ExitRejected; everything else is a fault.
func ExitCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code.IsClientError() {
		return ExitRejected
	}
	return ExitFault
}

// describe renders league errors through their gRPC status so the operator
// sees the code, the status class, and the localized message.
func describe(err error, locale string) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return err
	}
	st := status.Convert(apperrors.HandleError(err, locale))
	msg := st.Message()
	for _, detail := range st.Details() {
		if localized, ok := detail.(*errdetails.LocalizedMessage); ok {
			msg = localized.GetMessage()
		}
	}
	return &CommandError{Code: appErr.Code, Status: st.Code(), Message: msg, Err: err}
}

func write(out io.Writer, asJSON bool, report any) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	switch r := report.(type) {
	case []leagueapp.Leaderboard:
		for _, board := range r {
			fmt.Fprintf(tw, "%s\n", board.Category)
			for _, row := range board.Rows {
				fmt.Fprintf(tw, "%d\t%s\t%d\n", row.Rank, row.UserID, row.Total)
			}
		}
	case []leagueapp.Standings:
		for _, table := range r {
			fmt.Fprintf(tw, "%s\n", table.Category)
			fmt.Fprintf(tw, "rank\tuser\tteam\ttotal\twins\tbest\tpodiums\n")
			for _, row := range table.Rows {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\n", row.Rank, row.UserID, row.Name, row.Total, row.RaceWins, row.BestRace, row.Podiums)
			}
		}
	case []tickRow:
		for _, row := range r {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Action, row.RaceID, row.Error)
		}
	default:
		fmt.Fprintf(tw, "%+v\n", r)
	}
	return tw.Flush()
}

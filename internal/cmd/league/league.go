// Package league parses league command flags and launches the league runtime.
package league

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/fantasy.league/internal/platform/cmd"
	leagueapp "github.com/louisbranch/fantasy.league/internal/services/league/app"
)

// Config holds league command configuration.
type Config struct {
	Port                  int           `env:"FANTASY_LEAGUE_PORT" envDefault:"8095"`
	DBPath                string        `env:"FANTASY_LEAGUE_DB_PATH" envDefault:"data/league.db"`
	TickInterval          time.Duration `env:"FANTASY_LEAGUE_TICK_INTERVAL" envDefault:"1m"`
	AllowProvisional      bool          `env:"FANTASY_LEAGUE_ALLOW_PROVISIONAL" envDefault:"false"`
	SecondCategoryEnabled bool          `env:"FANTASY_LEAGUE_SECOND_CATEGORY_ENABLED" envDefault:"false"`
	BudgetCap             int64         `env:"FANTASY_LEAGUE_BUDGET_CAP" envDefault:"1000000"`
	TransferCap           int           `env:"FANTASY_LEAGUE_TRANSFER_CAP" envDefault:"2"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The league health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The league SQLite database path")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "Period between lifecycle ticks")
	fs.BoolVar(&cfg.AllowProvisional, "allow-provisional", cfg.AllowProvisional, "Settle races with provisional results")
	fs.BoolVar(&cfg.SecondCategoryEnabled, "second-category", cfg.SecondCategoryEnabled, "Enable u23 teams")
	fs.Int64Var(&cfg.BudgetCap, "budget-cap", cfg.BudgetCap, "Budget cap for new teams")
	fs.IntVar(&cfg.TransferCap, "transfer-cap", cfg.TransferCap, "Transfers allowed per race once the season is underway")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ServiceConfig converts the command configuration to league rules.
func (c Config) ServiceConfig() leagueapp.Config {
	svc := leagueapp.DefaultConfig()
	svc.SecondCategoryEnabled = c.SecondCategoryEnabled
	svc.AllowProvisional = c.AllowProvisional
	svc.BudgetCap = c.BudgetCap
	svc.TransferCap = c.TransferCap
	return svc
}

// Run starts the league runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceLeague, func(ctx context.Context) error {
		return leagueapp.Run(ctx, leagueapp.RuntimeConfig{
			Port:         cfg.Port,
			DBPath:       cfg.DBPath,
			TickInterval: cfg.TickInterval,
			Service:      cfg.ServiceConfig(),
		})
	})
}

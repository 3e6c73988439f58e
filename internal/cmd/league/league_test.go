package league

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("league", flag.ContinueOnError)
	t.Setenv("FANTASY_LEAGUE_PORT", "9099")
	t.Setenv("FANTASY_LEAGUE_SECOND_CATEGORY_ENABLED", "true")

	cfg, err := ParseConfig(fs, []string{"-tick-interval", "30s", "-transfer-cap", "3"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9099 {
		t.Fatalf("port = %d, want 9099", cfg.Port)
	}
	if !cfg.SecondCategoryEnabled {
		t.Fatal("expected second category enabled")
	}
	if cfg.TickInterval != 30*time.Second {
		t.Fatalf("tick interval = %v, want 30s", cfg.TickInterval)
	}
	if cfg.TransferCap != 3 {
		t.Fatalf("transfer cap = %d, want 3", cfg.TransferCap)
	}
	if cfg.DBPath != "data/league.db" {
		t.Fatalf("db path = %q, want data/league.db", cfg.DBPath)
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := Config{BudgetCap: 750000, TransferCap: 1, AllowProvisional: true}
	svc := cfg.ServiceConfig()
	if svc.BudgetCap != 750000 || svc.TransferCap != 1 || !svc.AllowProvisional {
		t.Fatalf("service config = %+v", svc)
	}
	if svc.Rules.StarterCount != 6 {
		t.Fatalf("starter count = %d, want 6", svc.Rules.StarterCount)
	}
}

func TestParseConfig_RejectsBadEnv(t *testing.T) {
	t.Setenv("FANTASY_LEAGUE_BUDGET_CAP", "lots")
	if _, err := ParseConfig(flag.NewFlagSet("league", flag.ContinueOnError), nil); err == nil {
		t.Fatal("expected parse error")
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"FANTASY_LEAGUE_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("FANTASY_LEAGUE_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadDotenvMissingFileIgnored(t *testing.T) {
	if err := LoadDotenv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load missing dotenv: %v", err)
	}
}

func TestLoadDotenvDoesNotOverrideExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.env")
	content := "FANTASY_LEAGUE_TEST_PORT=456\nFANTASY_LEAGUE_TEST_DOTENV_ONLY=yes\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("FANTASY_LEAGUE_TEST_PORT", "789")
	t.Setenv("FANTASY_LEAGUE_TEST_DOTENV_ONLY", "")
	os.Unsetenv("FANTASY_LEAGUE_TEST_DOTENV_ONLY")

	if err := LoadDotenv(path); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}

	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 789 {
		t.Fatalf("port = %d, want 789", cfg.Port)
	}
	if got := os.Getenv("FANTASY_LEAGUE_TEST_DOTENV_ONLY"); got != "yes" {
		t.Fatalf("dotenv-only value = %q, want %q", got, "yes")
	}
	os.Unsetenv("FANTASY_LEAGUE_TEST_DOTENV_ONLY")
}

package migrations

import (
	"io/fs"
	"sort"
	"strings"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected migrations to be embedded")
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	if files[0] != "001_league.sql" {
		t.Fatalf("expected first migration 001_league.sql, got %s", files[0])
	}

	content, err := fs.ReadFile(FS, files[0])
	if err != nil {
		t.Fatalf("read %s: %v", files[0], err)
	}
	if !strings.Contains(string(content), "-- +migrate Up") {
		t.Fatalf("%s has no up section", files[0])
	}
}

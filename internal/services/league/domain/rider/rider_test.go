package rider

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestCategoryEligibleFor(t *testing.T) {
	tests := []struct {
		rider Category
		team  Category
		want  bool
	}{
		{CategoryElite, CategoryElite, true},
		{CategoryU23, CategoryElite, false},
		{CategoryBoth, CategoryElite, true},
		{CategoryBoth, CategoryU23, true},
		{CategoryElite, CategoryU23, false},
	}
	for _, tt := range tests {
		if got := tt.rider.EligibleFor(tt.team); got != tt.want {
			t.Fatalf("%s.EligibleFor(%s) = %v, want %v", tt.rider, tt.team, got, tt.want)
		}
	}
}

func TestParseTeamCategory(t *testing.T) {
	if c, ok := ParseTeamCategory(" ELITE "); !ok || c != CategoryElite {
		t.Fatalf("ParseTeamCategory(ELITE) = %q, %v", c, ok)
	}
	if _, ok := ParseTeamCategory("both"); ok {
		t.Fatal("expected wildcard to be rejected as a team category")
	}
}

func TestLookupBatchesUniqueIDs(t *testing.T) {
	var calls [][]string
	catalog := CatalogFunc(func(_ context.Context, ids []string) (map[string]Profile, error) {
		calls = append(calls, ids)
		return map[string]Profile{
			"a": {ID: "a", Gender: GenderMale, Category: CategoryElite, Cost: 100},
			"c": {ID: "c", Gender: GenderFemale, Category: CategoryBoth, Cost: 200},
		}, nil
	})

	profiles, missing, err := Lookup(context.Background(), catalog, []string{"c", "a", " a ", "", "b", "c"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("catalog calls = %d, want 1", len(calls))
	}
	if !reflect.DeepEqual(calls[0], []string{"a", "b", "c"}) {
		t.Fatalf("requested ids = %v, want [a b c]", calls[0])
	}
	if len(profiles) != 2 {
		t.Fatalf("profiles = %d, want 2", len(profiles))
	}
	if !reflect.DeepEqual(missing, []string{"b"}) {
		t.Fatalf("missing = %v, want [b]", missing)
	}
}

func TestLookupEmptySkipsCatalog(t *testing.T) {
	catalog := CatalogFunc(func(context.Context, []string) (map[string]Profile, error) {
		t.Fatal("catalog should not be called")
		return nil, nil
	})
	profiles, missing, err := Lookup(context.Background(), catalog, []string{" "})
	if err != nil || len(profiles) != 0 || len(missing) != 0 {
		t.Fatalf("Lookup() = %v, %v, %v", profiles, missing, err)
	}
}

func TestLookupPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	catalog := CatalogFunc(func(context.Context, []string) (map[string]Profile, error) {
		return nil, boom
	})
	if _, _, err := Lookup(context.Background(), catalog, []string{"a"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, _, err := Lookup(context.Background(), nil, []string{"a"}); err == nil {
		t.Fatal("expected nil catalog error")
	}
}

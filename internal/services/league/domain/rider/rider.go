// Package rider models catalog athletes and the batched profile lookup the
// engine uses before validating or snapshotting a roster.
package rider

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Gender is the athlete gender used for roster quotas and substitution.
type Gender string

const (
	GenderMale   Gender = "m"
	GenderFemale Gender = "f"
)

// Valid reports whether g is a known gender.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Category is a team category, or the wildcard Both on a rider.
type Category string

const (
	CategoryElite Category = "elite"
	CategoryU23   Category = "u23"
	// CategoryBoth marks a rider eligible for every team category.
	CategoryBoth Category = "both"
)

// TeamCategories lists the categories a team may be created for.
var TeamCategories = []Category{CategoryElite, CategoryU23}

// ParseTeamCategory normalizes a team category label.
func ParseTeamCategory(value string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(value))) {
	case CategoryElite:
		return CategoryElite, true
	case CategoryU23:
		return CategoryU23, true
	default:
		return "", false
	}
}

// EligibleFor reports whether a rider in category c may ride for team.
func (c Category) EligibleFor(team Category) bool {
	return c == CategoryBoth || c == team
}

// Profile is the catalog view of a rider needed by the engine.
type Profile struct {
	ID       string
	Name     string
	Gender   Gender
	Category Category
	Cost     int64
}

// Catalog is the rider catalog collaborator. Profiles returns the profiles
// it knows for ids; unknown ids are simply absent from the result.
type Catalog interface {
	Profiles(ctx context.Context, ids []string) (map[string]Profile, error)
}

// CatalogFunc adapts a function to Catalog.
type CatalogFunc func(ctx context.Context, ids []string) (map[string]Profile, error)

// Profiles implements Catalog.
func (f CatalogFunc) Profiles(ctx context.Context, ids []string) (map[string]Profile, error) {
	return f(ctx, ids)
}

// Lookup fetches profiles for ids in one batch. Blank ids are dropped,
// duplicates collapsed, and the ids the catalog does not know are returned
// sorted so callers can report them.
func Lookup(ctx context.Context, catalog Catalog, ids []string) (map[string]Profile, []string, error) {
	if catalog == nil {
		return nil, nil, fmt.Errorf("rider catalog is required")
	}
	unique := UniqueIDs(ids)
	if len(unique) == 0 {
		return map[string]Profile{}, nil, nil
	}

	profiles, err := catalog.Profiles(ctx, unique)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup rider profiles: %w", err)
	}
	if profiles == nil {
		profiles = map[string]Profile{}
	}

	var missing []string
	for _, id := range unique {
		if _, ok := profiles[id]; !ok {
			missing = append(missing, id)
		}
	}
	return profiles, missing, nil
}

// UniqueIDs trims, de-duplicates, and sorts ids, dropping blanks.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

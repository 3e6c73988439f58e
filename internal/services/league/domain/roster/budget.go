package roster

import "github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"

// GrandfatherCosts returns the cost each retained rider is charged on a team
// update: the lower of what was charged before and the current catalog cost.
// Riders in next that were not in previous are charged the catalog cost and
// get no override.
func GrandfatherCosts(previous map[string]int64, next []string, profiles map[string]rider.Profile) map[string]int64 {
	overrides := make(map[string]int64)
	for _, id := range next {
		stored, ok := previous[id]
		if !ok {
			continue
		}
		profile, known := profiles[id]
		if known && profile.Cost < stored {
			overrides[id] = profile.Cost
			continue
		}
		overrides[id] = stored
	}
	return overrides
}

package roster

// CountTransfers is the number of transfers moving from previous to next
// membership: the larger of the removed and added rider counts. Slot and
// bench moves of a retained rider are free.
func CountTransfers(previous, next []string) int {
	prev := toSet(previous)
	curr := toSet(next)
	removed := 0
	for id := range prev {
		if _, ok := curr[id]; !ok {
			removed++
		}
	}
	added := 0
	for id := range curr {
		if _, ok := prev[id]; !ok {
			added++
		}
	}
	return max(removed, added)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// TransferPolicy decides how transfer usage is charged for one team update.
type TransferPolicy struct {
	// Enforced is false before the first settled race, while a joker is
	// active for the next race, and for a newly created team.
	Enforced bool
	Cap      int
	// PreviousAnchor is the race the stored usage counts against.
	PreviousAnchor string
	PreviousUsed   int
	// Anchor is the upcoming race this update counts against.
	Anchor string
}

// TransferOutcome is the usage to store after an update.
type TransferOutcome struct {
	Used      int
	Needed    int
	Remaining int
	Exceeded  bool
}

// ApplyTransfers charges needed transfers against the policy. A change of
// anchor starts a fresh allowance; an unenforced policy always stores zero.
func ApplyTransfers(policy TransferPolicy, needed int) TransferOutcome {
	if !policy.Enforced {
		return TransferOutcome{Used: 0, Needed: needed, Remaining: policy.Cap}
	}
	used := policy.PreviousUsed
	if policy.PreviousAnchor != policy.Anchor {
		used = 0
	}
	remaining := max(policy.Cap-used, 0)
	if needed > remaining {
		return TransferOutcome{Used: used, Needed: needed, Remaining: remaining, Exceeded: true}
	}
	return TransferOutcome{Used: used + needed, Needed: needed, Remaining: remaining - needed}
}

package promo

import "sort"

// ResolveStacking decides which of the eligible promotions may apply
// together. Promotions are walked in priority order (descending, ties keep
// their original order) and appended to the result; appending a non-stackable
// promotion ends the walk, so the highest-priority non-stackable promotion
// excludes everything below it while a run of stackable promotions at the top
// all apply.
//
// Priority totally orders the set and stackable is a boolean cutoff, so the
// single greedy pass is exact; no search is needed.
func ResolveStacking(eligible []Promotion) []Promotion {
	if len(eligible) == 0 {
		return nil
	}

	ordered := make([]Promotion, len(eligible))
	copy(ordered, eligible)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	applicable := make([]Promotion, 0, len(ordered))
	for _, p := range ordered {
		applicable = append(applicable, p)
		if !p.Stackable {
			break
		}
	}
	return applicable
}

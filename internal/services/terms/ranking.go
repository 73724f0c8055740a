package terms

import "sort"

// RankedTerm is one term name with its occurrence count and computed score
type RankedTerm struct {
	Name  string
	Count int
	Score int
}

// scoreFrequency applies the non-monotonic boost rule: a single occurrence
// is weakest, 2-4 occurrences are boosted to twice their count, and more
// than 4 occurrences fall back to the raw count (too generic to boost).
func scoreFrequency(count int) int {
	switch {
	case count <= 1:
		return 1
	case count <= 4:
		return count * 2
	default:
		return count
	}
}

// RankTerms orders candidate term names by frequency score, breaking ties
// alphabetically, and truncates to maxTerms. Used by bulk extraction where
// all windows are collected before any definitions are requested.
func RankTerms(counts map[string]int, maxTerms int) []RankedTerm {
	ranked := make([]RankedTerm, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, RankedTerm{
			Name:  name,
			Count: count,
			Score: scoreFrequency(count),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Name < ranked[j].Name
	})

	if maxTerms > 0 && len(ranked) > maxTerms {
		ranked = ranked[:maxTerms]
	}
	return ranked
}

package fusion

import "github.com/fleetflow/leadflow/internal/normalize"

// TokenSetSimilarity computes Jaccard similarity over the token sets of two
// normalized names. Returns a value in [0,1]; 1 means identical token sets.
func TokenSetSimilarity(a, b string) float64 {
	ta := normalize.NameTokens(a)
	tb := normalize.NameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}

	intersection := 0
	for _, t := range tb {
		if set[t] {
			intersection++
		}
	}

	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

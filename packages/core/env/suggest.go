package env

import (
	"fmt"
	"slices"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance bounds how different a candidate may be and still be
// offered as a hint.
const maxSuggestDistance = 3

// ClosestStrings returns the candidates nearest to a by edit distance, in
// sorted order. Candidates at distance minDistance or more are ignored.
func ClosestStrings(minDistance int, a string, candidates []string) []string {
	closest := []string{}
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(a, c)
		switch {
		case d < minDistance:
			closest = []string{c}
			minDistance = d
		case d == minDistance:
			closest = append(closest, c)
		}
	}
	slices.Sort(closest)
	return slices.Compact(closest)
}

// Suggest returns a "did you mean" hint for name, or "" when no candidate
// is close enough.
func Suggest(name string, candidates []string) string {
	proposals := ClosestStrings(maxSuggestDistance, name, candidates)
	switch len(proposals) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("did you mean %s?", proposals[0])
	default:
		return fmt.Sprintf("did you mean one of %v?", proposals)
	}
}

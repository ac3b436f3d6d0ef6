package api

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance is the largest edit distance still offered as a hint.
const maxSuggestDistance = 3

// suggest returns the candidate closest to name, if it is near enough.
func suggest(name string, candidates []string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}

func didYouMean(name string, candidates []string) string {
	if s, ok := suggest(name, candidates); ok {
		return fmt.Sprintf("did you mean %q?", s)
	}
	return ""
}

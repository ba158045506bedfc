package truthindex

import "strings"

// trigramSet returns the set of character trigrams of s, lowercased and
// padded at the edges so short strings still produce a few trigrams.
func trigramSet(s string) map[string]struct{} {
	s = "  " + strings.ToLower(strings.TrimSpace(s)) + "  "
	set := make(map[string]struct{})
	runes := []rune(s)
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// jaccardSimilarity computes the Jaccard index between the trigram sets
// of a and b: |intersection| / |union|. Used for alias matching so
// "Words.LoadPlugin" and "Words LoadPlugin" score highly without an exact
// string match (§4.8 alias lookup).
func jaccardSimilarity(a, b string) float64 {
	setA := trigramSet(a)
	setB := trigramSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

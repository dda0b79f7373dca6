// Package similarity provides the pure text-similarity functions used by
// duplicate detection. All functions are deterministic, symmetric in
// their arguments, and return values in [0,1].
package similarity

import (
	"strings"
	"unicode"
)

const minTokenLength = 3

// Normalize lowercases the input, replaces punctuation with whitespace,
// and collapses runs of whitespace into single spaces.
func Normalize(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}

// Jaccard computes token-set similarity over whitespace-separated
// tokens, ignoring tokens shorter than three characters. Two empty
// token sets are considered identical.
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}
	return setOverlap(setA, setB)
}

// Levenshtein computes edit-distance similarity:
// 1 - distance/max(len(a), len(b)). Two empty strings score 1.
func Levenshtein(a, b string) float64 {
	runesA := []rune(a)
	runesB := []rune(b)
	if len(runesA) == 0 && len(runesB) == 0 {
		return 1.0
	}
	distance := editDistance(runesA, runesB)
	longest := len(runesA)
	if len(runesB) > longest {
		longest = len(runesB)
	}
	return 1.0 - float64(distance)/float64(longest)
}

// NGram compares character n-gram sets (whitespace removed) via Jaccard
// overlap. n defaults to 2 when non-positive.
func NGram(a, b string, n int) float64 {
	if n <= 0 {
		n = 2
	}
	gramsA := gramSet(a, n)
	gramsB := gramSet(b, n)
	if len(gramsA) == 0 && len(gramsB) == 0 {
		return 1.0
	}
	if len(gramsA) == 0 || len(gramsB) == 0 {
		return 0.0
	}
	return setOverlap(gramsA, gramsB)
}

// Combined blends the three metrics over normalized text:
// 0.4*Jaccard + 0.3*Levenshtein + 0.3*bigram, clamped to [0,1].
// Texts identical after normalization short-circuit to 1.
func Combined(a, b string) float64 {
	normA := Normalize(a)
	normB := Normalize(b)
	if normA == normB {
		return 1.0
	}
	score := 0.4*Jaccard(normA, normB) + 0.3*Levenshtein(normA, normB) + 0.3*NGram(normA, normB, 2)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(text) {
		if len([]rune(token)) < minTokenLength {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}

func gramSet(text string, n int) map[string]struct{} {
	compact := []rune(strings.Join(strings.Fields(text), ""))
	set := make(map[string]struct{})
	for i := 0; i+n <= len(compact); i++ {
		set[string(compact[i:i+n])] = struct{}{}
	}
	return set
}

func setOverlap(a, b map[string]struct{}) float64 {
	intersection := 0
	for key := range a {
		if _, ok := b[key]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	previous := make([]int, len(b)+1)
	current := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		previous[j] = j
	}
	for i := 1; i <= len(a); i++ {
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[j] = minInt(
				previous[j]+1,
				current[j-1]+1,
				previous[j-1]+cost,
			)
		}
		previous, current = current, previous
	}
	return previous[len(b)]
}

func minInt(values ...int) int {
	smallest := values[0]
	for _, v := range values[1:] {
		if v < smallest {
			smallest = v
		}
	}
	return smallest
}

// Package similarity scores how closely recognized text matches a canonical
// name. All functions operate on runes and are symmetric in their arguments.
package similarity

import (
	"math"
	"strings"

	"github.com/MeKo-Tech/cardscan/internal/names"
)

const (
	// PrefixScale is the Winkler prefix weight.
	PrefixScale = 0.1
	// MaxPrefix caps the common prefix Winkler rewards.
	MaxPrefix = 4
)

// Levenshtein returns the edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// NormalizedLevenshtein is 1 - distance/max(len). Two empty strings are
// identical (1); one empty string scores 0.
func NormalizedLevenshtein(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := max(la, lb)
	if maxLen == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}
	return 1 - float64(Levenshtein(a, b))/float64(maxLen)
}

// JaroWinkler returns the Jaro similarity of a and b boosted by their common
// prefix (at most MaxPrefix runes, weight PrefixScale). Arguments are put in a
// fixed order before matching so the greedy match is symmetric.
func JaroWinkler(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if a > b {
		a, b = b, a
	}
	s1, s2 := []rune(a), []rune(b)

	window := max(0, max(len(s1), len(s2))/2-1)
	m1 := make([]bool, len(s1))
	m2 := make([]bool, len(s2))
	matches := 0
	for i, r := range s1 {
		lo := max(0, i-window)
		hi := min(i+window+1, len(s2))
		for k := lo; k < hi; k++ {
			if m2[k] || s2[k] != r {
				continue
			}
			m1[i], m2[k] = true, true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	trans := 0
	k := 0
	for i, r := range s1 {
		if !m1[i] {
			continue
		}
		for !m2[k] {
			k++
		}
		if r != s2[k] {
			trans++
		}
		k++
	}

	m := float64(matches)
	jaro := (m/float64(len(s1)) + m/float64(len(s2)) + (m-float64(trans)/2)/m) / 3

	prefix := 0
	for i := 0; i < min(MaxPrefix, len(s1), len(s2)); i++ {
		if s1[i] != s2[i] {
			break
		}
		prefix++
	}
	return jaro + float64(prefix)*PrefixScale*(1-jaro)
}

// Score is the hybrid similarity: the better of normalized Levenshtein and
// Jaro-Winkler.
func Score(a, b string) float64 {
	return math.Max(NormalizedLevenshtein(a, b), JaroWinkler(a, b))
}

// Accuracy reports how well recognized text matched the canonical name as a
// whole percentage, comparing name keys. Either key containing the other
// counts as 100.
func Accuracy(recognized, canonical string) int {
	a, b := names.Key(recognized), names.Key(canonical)
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 100
	}
	return int(math.Round(Score(a, b) * 100))
}

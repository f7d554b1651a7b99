// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns a symmetric score in [0, 1] for two titles. It is 1.0
// exactly when the titles are equal after Normalize; otherwise it is one
// minus the rune edit distance relative to the longer title.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	dist := levenshtein.ComputeDistance(na, nb)
	score := 1.0 - float64(dist)/float64(longest)
	if score < 0 {
		return 0
	}
	// Distinct normalized strings never reach 1.0.
	if score >= 1.0 {
		return 1.0 - 1e-9
	}
	return score
}

// ContainmentCheck reports whether needle appears inside haystack, either as
// a contiguous phrase on word boundaries or with every one of its words
// present in haystack. An empty needle is never contained.
func ContainmentCheck(needle, haystack string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	h := Normalize(haystack)
	if strings.Contains(" "+h+" ", " "+n+" ") {
		return true
	}

	words := make(map[string]bool)
	for _, w := range strings.Fields(h) {
		words[w] = true
	}
	for _, w := range strings.Fields(n) {
		if !words[w] {
			return false
		}
	}
	return true
}

// ContainmentScore grades containment in [0, 1]: 1.0 when either title
// contains the other, else the share of the shorter title's words that
// appear in order in the longer one.
func ContainmentScore(a, b string) float64 {
	if ContainmentCheck(a, b) || ContainmentCheck(b, a) {
		return 1.0
	}
	ta, tb := Tokens(a), Tokens(b)
	shorter := min(len(ta), len(tb))
	if shorter == 0 {
		return 0
	}
	return float64(lcsLength(ta, tb)) / float64(shorter)
}

// lcsLength returns the length of the longest common word subsequence.
func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// ImportantWordOverlap returns the weighted share of non-stopword tokens the
// two titles have in common, in [0, 1]. Longer tokens weigh more and common
// ML vocabulary weighs less.
func ImportantWordOverlap(a, b string) float64 {
	wa, wb := ImportantWords(a), ImportantWords(b)

	inB := make(map[string]bool, len(wb))
	var totalB float64
	for _, w := range wb {
		inB[w] = true
		totalB += wordWeight(w)
	}

	var totalA, shared float64
	for _, w := range wa {
		weight := wordWeight(w)
		totalA += weight
		if inB[w] {
			shared += weight
		}
	}

	if totalA+totalB == 0 {
		if na := Normalize(a); na != "" && na == Normalize(b) {
			return 1.0
		}
		return 0
	}
	return 2 * shared / (totalA + totalB)
}

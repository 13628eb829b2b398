// Package match implements the field comparison policies, the composite
// confidence model, and the blocking strategy of the dedup engine. Everything
// here is pure and deterministic for a fixed Config.
package match

import "math"

// Distance returns the Levenshtein edit distance between a and b: the minimum
// number of single-character insertions, deletions, and substitutions needed
// to transform one into the other. Runs in O(len(a)*len(b)) time with a
// rolling two-row table.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minOf(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Similarity converts edit distance into a 0-100 score:
// round(100 * (maxLen - distance) / maxLen). Two empty strings score 0, not
// 100; that is long-standing accepted behavior relied on by the absent-field
// scoring rules, so keep it. If exactly one side is empty the score is 0
// without computing a distance.
func Similarity(a, b string) int {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	d := Distance(a, b)
	if d >= maxLen {
		return 0
	}
	return int(math.Round(100 * float64(maxLen-d) / float64(maxLen)))
}

func minOf(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

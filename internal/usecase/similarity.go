package usecase

import "fmt"

// Supported similarity metric names
const (
	MetricRatcliff    = "ratcliff"
	MetricLevenshtein = "levenshtein"
)

// Metric scores two strings on a 0-1 scale.
// Bound returns an upper limit on Score for inputs of the given rune
// lengths; a candidate whose bound is below what it needs to beat is
// skipped without scoring.
type Metric struct {
	Name  string
	Score func(a, b string) float64
	Bound func(la, lb int) float64
}

// MetricByName returns the metric registered under name. An empty name
// selects Ratcliff/Obershelp.
func MetricByName(name string) (Metric, error) {
	switch name {
	case "", MetricRatcliff:
		return Metric{Name: MetricRatcliff, Score: RatcliffObershelp, Bound: ratcliffBound}, nil
	case MetricLevenshtein:
		return Metric{Name: MetricLevenshtein, Score: LevenshteinRatio, Bound: levenshteinBound}, nil
	}
	return Metric{}, fmt.Errorf("unknown similarity metric %q", name)
}

// RatcliffObershelp returns 2*M/T where M is the number of runes in the
// matching runs found by repeatedly taking the longest common substring,
// and T is the combined length. O(len(a) * len(b)) per matched run.
func RatcliffObershelp(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

func ratcliffBound(la, lb int) float64 {
	if la+lb == 0 {
		return 1
	}
	return 2 * float64(min(la, lb)) / float64(la+lb)
}

func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	i, j, k := longestCommonRun(a, b)
	if k == 0 {
		return 0
	}
	return k + matchingRunes(a[:i], b[:j]) + matchingRunes(a[i+k:], b[j+k:])
}

// longestCommonRun finds the leftmost longest common substring of a and b
// and returns its start in a, its start in b and its length.
func longestCommonRun(a, b []rune) (int, int, int) {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	bestI, bestJ, bestK := 0, 0, 0

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				curr[j] = 0
				continue
			}
			curr[j] = prev[j-1] + 1
			if curr[j] > bestK {
				bestK = curr[j]
				bestI = i - bestK
				bestJ = j - bestK
			}
		}
		prev, curr = curr, prev
	}
	return bestI, bestJ, bestK
}

// LevenshteinRatio returns 1 - distance/maxLen.
func LevenshteinRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

func levenshteinBound(la, lb int) float64 {
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return float64(min(la, lb)) / float64(longest)
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// Two rows instead of the full matrix
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

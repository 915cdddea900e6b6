// Package similarity scores identifier pairs for typo correction.
//
//	sim(a, b) = 0.5·lev(a, b) + 0.3·jw(a, b) + 0.2·prefix(a, b)
//
// where lev is one minus the normalised Levenshtein distance, jw is
// Jaro-Winkler and prefix is the common prefix length over the longer
// length. Inputs are NFC-normalised and compared rune by rune.
package similarity

import (
	"sort"

	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the minimal score a suggestion must exceed.
const DefaultThreshold = 0.6

const (
	weightLev    = 0.5
	weightJaro   = 0.3
	weightPrefix = 0.2

	winklerScale     = 0.1
	winklerMaxPrefix = 4
)

func runes(s string) []rune {
	return []rune(norm.NFC.String(s))
}

// Levenshtein returns the edit distance between a and b in runes.
func Levenshtein(a, b string) int {
	return levenshtein(runes(a), runes(b))
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// LevenshteinRatio is 1 - distance/max(len). Two empty strings score 1.
func LevenshteinRatio(a, b string) float64 {
	return levRatio(runes(a), runes(b))
}

func levRatio(a, b []rune) float64 {
	n := max(len(a), len(b))
	if n == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(n)
}

// JaroWinkler returns the Jaro-Winkler similarity of a and b.
func JaroWinkler(a, b string) float64 {
	return jaroWinkler(runes(a), runes(b))
}

func jaroWinkler(a, b []rune) float64 {
	j := jaro(a, b)
	l := 0
	for l < len(a) && l < len(b) && l < winklerMaxPrefix && a[l] == b[l] {
		l++
	}
	return j + float64(l)*winklerScale*(1-j)
}

func jaro(a, b []rune) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}
	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))
	matches := 0
	for i := range a {
		lo := max(0, i-window)
		hi := min(len(b), i+window+1)
		for k := lo; k < hi; k++ {
			if bMatched[k] || a[i] != b[k] {
				continue
			}
			aMatched[i], bMatched[k] = true, true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}
	transpositions := 0
	k := 0
	for i := range a {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}
	m := float64(matches)
	return (m/float64(len(a)) + m/float64(len(b)) + (m-float64(transpositions)/2)/m) / 3
}

// PrefixRatio is the common prefix length divided by the longer length.
// Two empty strings score 1.
func PrefixRatio(a, b string) float64 {
	return prefixRatio(runes(a), runes(b))
}

func prefixRatio(a, b []rune) float64 {
	n := max(len(a), len(b))
	if n == 0 {
		return 1
	}
	l := 0
	for l < len(a) && l < len(b) && a[l] == b[l] {
		l++
	}
	return float64(l) / float64(n)
}

// Score returns sim(a, b) in [0, 1]. It is symmetric and equals 1 exactly
// for equal inputs.
func Score(a, b string) float64 {
	ra, rb := runes(a), runes(b)
	if string(ra) == string(rb) {
		return 1
	}
	// фиксированный порядок аргументов делает Jaro строго симметричным
	if string(ra) > string(rb) {
		ra, rb = rb, ra
	}
	s := weightLev*levRatio(ra, rb) + weightJaro*jaroWinkler(ra, rb) + weightPrefix*prefixRatio(ra, rb)
	return min(1, max(0, s))
}

// Candidate is a suggestion together with its score.
type Candidate struct {
	Name  string
	Score float64
}

// Suggest ranks candidates by similarity to target. Only scores strictly
// between threshold and 1 are kept: identical names are not suggestions.
// Duplicates are collapsed. Ties are ordered by name.
func Suggest(target string, candidates []string, threshold float64) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	var out []Candidate
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		s := Score(target, c)
		if s > threshold && s < 1 {
			out = append(out, Candidate{Name: c, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Best returns the top suggestion, if any.
func Best(target string, candidates []string, threshold float64) (Candidate, bool) {
	s := Suggest(target, candidates, threshold)
	if len(s) == 0 {
		return Candidate{}, false
	}
	return s[0], true
}

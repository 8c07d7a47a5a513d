// Package similarity provides the duplicate detector used for dedup on
// store and for search ranking.
package similarity

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	stringRatioWeight = 0.6
	termOverlapWeight = 0.4

	// Queries at or below this many tokens qualify for the exact-word boost.
	shortQueryTokens = 3

	boostBase  = 0.6
	boostScale = 0.4

	// Tokens must be longer than this to count for term overlap.
	minTermLength = 2
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// Detector computes similarity scores in [0,1] between two text strings.
// Pure and deterministic; no I/O.
type Detector struct{}

// NewDetector creates a duplicate detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Similarity scores a against b. The first argument is treated as the
// query-like input: when it has at most three tokens and shares an exact
// token with b, the exact-word boost guarantees a score of at least 0.6 so
// short queries are not diluted by string-length disparity.
func (d *Detector) Similarity(a, b string) float64 {
	na := normalize(a)
	nb := normalize(b)
	if na == "" || nb == "" {
		return 0
	}

	ratio := editRatio(na, nb)
	overlap := termOverlap(na, nb)
	traditional := stringRatioWeight*ratio + termOverlapWeight*overlap

	tokensA := tokenize(na)
	if len(tokensA) > 0 && len(tokensA) <= shortQueryTokens {
		matches := exactMatches(tokensA, tokenize(nb))
		if matches > 0 {
			boost := boostBase + boostScale*(float64(matches)/float64(len(tokensA)))
			if boost > traditional {
				return clamp(boost)
			}
		}
	}

	return clamp(traditional)
}

// editRatio is the normalized Levenshtein similarity of the two strings.
func editRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	dist := matchr.Levenshtein(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// termOverlap is the Jaccard similarity of the token sets, ignoring tokens
// of length <= 2.
func termOverlap(a, b string) float64 {
	setA := termSet(a)
	setB := termSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func termSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(s) {
		if len(tok) > minTermLength {
			set[tok] = true
		}
	}
	return set
}

func exactMatches(query, text []string) int {
	set := make(map[string]bool, len(text))
	for _, tok := range text {
		set[tok] = true
	}
	matches := 0
	for _, tok := range query {
		if set[tok] {
			matches++
		}
	}
	return matches
}

func tokenize(s string) []string {
	return wordPattern.FindAllString(s, -1)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

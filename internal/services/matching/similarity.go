package matching

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// normalizeText lowercases, strips punctuation, and collapses whitespace so
// "Don't Stop  Believin'" and "dont stop believin" compare equal.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// titleSimilarity compares two normalized titles and returns the best score
// across plain edit distance, sorted-token, and token-set comparisons.
func titleSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ratio := levenshteinRatio(a, b)
	tokenSort := levenshteinRatio(sortTokens(a), sortTokens(b))
	tokenSet := tokenSetRatio(a, b)

	return math.Max(ratio, math.Max(tokenSort, tokenSet))
}

// songwriterSimilarity scores one normalized songwriter string against a
// work's normalized songwriter list, taking the best per-name score. A name
// containing the other scores at least 0.9.
func songwriterSimilarity(writer string, names []string) float64 {
	if writer == "" || len(names) == 0 {
		return 0
	}

	best := 0.0
	for _, name := range names {
		if name == "" {
			continue
		}
		if writer == name {
			return 1
		}
		if strings.Contains(writer, name) || strings.Contains(name, writer) {
			best = math.Max(best, 0.9)
			continue
		}
		score := math.Max(levenshteinRatio(writer, name),
			math.Max(levenshteinRatio(sortTokens(writer), sortTokens(name)), tokenSetRatio(writer, name)))
		best = math.Max(best, score)
	}
	return best
}

func levenshteinRatio(a, b string) float64 {
	maxLen := math.Max(float64(len(a)), float64(len(b)))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/maxLen
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// tokenSetRatio scores the shared-token overlap: identical token sets score
// 1 regardless of order or duplication.
func tokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	shared := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			shared++
		}
	}
	return float64(shared) / math.Max(float64(len(setA)), float64(len(setB)))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// trigramSet extracts character trigrams from a normalized string, padded
// the way postgres pg_trgm pads words.
func trigramSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(s) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			set[padded[i:i+3]] = struct{}{}
		}
	}
	return set
}

// trigramSimilarity is the Jaccard similarity of two trigram sets, standing
// in for the original vector-similarity component.
func trigramSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(a, b, c int) int {
	if a < b && a < c {
		return a
	}
	if b < c {
		return b
	}
	return c
}

package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "dont stop believin", normalizeText("Don't  Stop Believin'"))
	assert.Equal(t, "bohemian rhapsody", normalizeText("  Bohemian   Rhapsody!  "))
	assert.Equal(t, "", normalizeText("!!!"))
}

func TestTitleSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, titleSimilarity("yesterday", "yesterday"))
	assert.Equal(t, 0.0, titleSimilarity("", "yesterday"))

	// Token order must not matter.
	assert.Equal(t, 1.0, titleSimilarity("home sweet home", "sweet home home"))

	// Small typos stay close to 1.
	assert.Greater(t, titleSimilarity("yesterdey", "yesterday"), 0.85)

	// Unrelated titles stay low.
	assert.Less(t, titleSimilarity("smoke on the water", "yesterday"), 0.5)
}

func TestSongwriterSimilarity(t *testing.T) {
	names := []string{"john lennon", "paul mccartney"}

	assert.Equal(t, 1.0, songwriterSimilarity("paul mccartney", names))
	// Containment floors at 0.9.
	assert.GreaterOrEqual(t, songwriterSimilarity("mccartney", names), 0.9)
	assert.Equal(t, 0.0, songwriterSimilarity("", names))
	assert.Less(t, songwriterSimilarity("richard wagner", names), 0.6)
}

func TestTrigramSimilarity(t *testing.T) {
	a := trigramSet("yesterday")
	assert.Equal(t, 1.0, trigramSimilarity(a, trigramSet("yesterday")))
	assert.Equal(t, 0.0, trigramSimilarity(a, trigramSet("")))

	near := trigramSimilarity(a, trigramSet("yesterdays"))
	assert.Greater(t, near, 0.5)
	assert.Less(t, near, 1.0)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 1, levenshtein("kitten", "mitten"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}

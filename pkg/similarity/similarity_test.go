package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	d := NewDetector()

	t.Run("IdenticalStrings", func(t *testing.T) {
		assert.Equal(t, 1.0, d.Similarity("my name is alex", "my name is alex"))
	})

	t.Run("EmptyInput", func(t *testing.T) {
		assert.Equal(t, 0.0, d.Similarity("", "anything"))
		assert.Equal(t, 0.0, d.Similarity("anything", ""))
		assert.Equal(t, 0.0, d.Similarity("", ""))
	})

	t.Run("NormalizesCaseAndWhitespace", func(t *testing.T) {
		assert.Equal(t, 1.0, d.Similarity("Hello World", "  hello   WORLD "))
	})

	t.Run("NearDuplicateAboveDedupThreshold", func(t *testing.T) {
		score := d.Similarity("my name is Alex", "My name is Alex.")
		assert.Greater(t, score, 0.8)
	})

	t.Run("UnrelatedTextsScoreLow", func(t *testing.T) {
		score := d.Similarity("the weather is nice today outside", "quarterly financial report for investors")
		assert.Less(t, score, 0.3)
	})
}

func TestExactWordBoost(t *testing.T) {
	d := NewDetector()

	t.Run("SingleTokenFullMatch", func(t *testing.T) {
		score := d.Similarity("Hopkins", "I graduated from Johns Hopkins in 2015")
		assert.Equal(t, 1.0, score)
	})

	t.Run("PartialMatchScalesWithCoverage", func(t *testing.T) {
		// One of three query tokens appears in the text.
		score := d.Similarity("alpha beta gamma", "alpha something else entirely different")
		assert.InDelta(t, 0.6+0.4/3.0, score, 1e-9)
	})

	t.Run("FullShortMatchScoresAtLeastBase", func(t *testing.T) {
		score := d.Similarity("johns hopkins", "she studied at johns hopkins university for years")
		assert.Equal(t, 1.0, score)
	})

	t.Run("FourTokensGetNoBoost", func(t *testing.T) {
		score := d.Similarity("alpha beta gamma delta", "alpha something else entirely different")
		assert.Less(t, score, 0.6)
	})

	t.Run("BoostAppliesToFirstArgumentOnly", func(t *testing.T) {
		long := "I graduated from Johns Hopkins in 2015"
		assert.Greater(t, d.Similarity("Hopkins", long), d.Similarity(long, "Hopkins"))
	})

	t.Run("NoSharedTokenNoBoost", func(t *testing.T) {
		score := d.Similarity("zzz", "I graduated from Johns Hopkins")
		assert.Less(t, score, 0.6)
	})
}

func TestEditRatio(t *testing.T) {
	assert.Equal(t, 1.0, editRatio("same", "same"))
	// One substitution across four characters.
	assert.InDelta(t, 0.75, editRatio("abcd", "abzd"), 1e-9)
}

func TestTermOverlap(t *testing.T) {
	t.Run("IgnoresShortTokens", func(t *testing.T) {
		// "is" and "at" are dropped, leaving identical sets.
		assert.Equal(t, 1.0, termOverlap("alex is at work", "work alex"))
	})

	t.Run("Jaccard", func(t *testing.T) {
		// Sets {red, green} and {green, blue}: 1 shared of 3.
		assert.InDelta(t, 1.0/3.0, termOverlap("red green", "green blue"), 1e-9)
	})

	t.Run("DisjointSets", func(t *testing.T) {
		assert.Equal(t, 0.0, termOverlap("apple banana", "cherry grape"))
	})
}

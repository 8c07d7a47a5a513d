package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"my", "name", "is", "alex"}, Tokenize("My name is Alex!"))
	assert.Equal(t, []string{"born", "in", "2015"}, Tokenize("born-in 2015"))
	assert.Empty(t, Tokenize("...!?"))
}

func TestNew(t *testing.T) {
	t.Run("CategoryNameIsItsOwnKeyword", func(t *testing.T) {
		tax, err := New([]string{"work"}, map[string]*Category{
			"work": {Keywords: []string{"job", "office"}},
		})
		require.NoError(t, err)

		keywords := tax.KeywordsOf("work")
		require.NotEmpty(t, keywords)
		assert.Equal(t, "work", keywords[0])
		assert.Contains(t, keywords, "job")
		assert.Contains(t, keywords, "office")
	})

	t.Run("PreservesOrder", func(t *testing.T) {
		tax, err := New([]string{"beta", "alpha"}, map[string]*Category{
			"beta":  {Keywords: []string{"b"}},
			"alpha": {Keywords: []string{"a"}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"beta", "alpha"}, tax.Categories())
	})

	t.Run("NormalizesCase", func(t *testing.T) {
		tax, err := New([]string{"Work"}, map[string]*Category{
			"Work": {Keywords: []string{"JOB"}, Phrases: []string{"Work At"}},
		})
		require.NoError(t, err)
		assert.Contains(t, tax.KeywordsOf("work"), "job")
		assert.Equal(t, []string{"work"}, tax.OwnersOf("JOB"))
	})

	t.Run("EmptyOrder", func(t *testing.T) {
		_, err := New(nil, nil)
		assert.Error(t, err)
	})

	t.Run("MissingDefinition", func(t *testing.T) {
		_, err := New([]string{"work"}, map[string]*Category{})
		assert.Error(t, err)
	})
}

func TestLookups(t *testing.T) {
	tax := Default()

	t.Run("OwnersOf", func(t *testing.T) {
		assert.Equal(t, []string{"work"}, tax.OwnersOf("job"))
		assert.Equal(t, []string{"education"}, tax.OwnersOf("graduated"))
		assert.Empty(t, tax.OwnersOf("xyzzy"))
	})

	t.Run("KeywordsOf", func(t *testing.T) {
		keywords := tax.KeywordsOf("work")
		assert.Equal(t, "work", keywords[0])
		assert.Contains(t, keywords, "job")
		assert.Nil(t, tax.KeywordsOf("nonexistent"))
	})

	t.Run("PhrasesContaining", func(t *testing.T) {
		matches := tax.PhrasesContaining("graduated")
		require.NotEmpty(t, matches)
		assert.Equal(t, "education", matches[0].Category)
		assert.Equal(t, "graduated from", matches[0].Phrase)
	})

	t.Run("PhraseTokenMustBeWholeWord", func(t *testing.T) {
		// "grad" is a prefix of "graduated" but not a token of any phrase.
		assert.Empty(t, tax.PhrasesContaining("grad"))
	})
}

func TestLoadFromYAML(t *testing.T) {
	t.Run("LoadsCategoriesInFileOrder", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "taxonomy.yaml")
		content := `projects:
  keywords: [deadline, milestone]
  phrases: ["due by"]
clients:
  keywords: [account, contract]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		tax, err := LoadFromYAML(path)
		require.NoError(t, err)

		assert.Equal(t, []string{"projects", "clients"}, tax.Categories())
		assert.Contains(t, tax.KeywordsOf("projects"), "deadline")
		assert.Equal(t, []string{"clients"}, tax.OwnersOf("contract"))

		matches := tax.PhrasesContaining("due")
		require.Len(t, matches, 1)
		assert.Equal(t, "projects", matches[0].Category)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadFromYAML("/nonexistent/taxonomy.yaml")
		assert.Error(t, err)
	})

	t.Run("NotAMapping", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- just\n- a\n- list\n"), 0644))
		_, err := LoadFromYAML(path)
		assert.Error(t, err)
	})
}

func TestDefault(t *testing.T) {
	tax := Default()
	assert.Len(t, tax.Categories(), 10)
	assert.Contains(t, tax.Categories(), "work")
	assert.Contains(t, tax.Categories(), "personal")
}

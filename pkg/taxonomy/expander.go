package taxonomy

import (
	"strings"

	"github.com/memlinkio/memlink/pkg/types"
)

// synonymTable covers high-traffic domains so expansion works even for
// tokens the taxonomy does not carry. Each entry lists substitutes tried
// in-place within the original query.
var synonymTable = map[string][]string{
	// work / employment / career
	"job":        {"work", "career", "employment", "position"},
	"work":       {"job", "career", "employment"},
	"career":     {"job", "work", "profession"},
	"employment": {"job", "work"},
	"employer":   {"company", "boss"},
	"boss":       {"manager", "employer"},
	"manager":    {"boss", "supervisor"},

	// education / academic
	"school":     {"university", "college", "education"},
	"university": {"college", "school", "education"},
	"college":    {"university", "school"},
	"degree":     {"diploma", "education"},
	"study":      {"education", "learning"},
	"studied":    {"graduated", "learned"},

	// health / medical
	"doctor":   {"physician", "medical", "health"},
	"medical":  {"health", "doctor"},
	"health":   {"medical", "wellness"},
	"sick":     {"ill", "unwell", "health"},
	"medicine": {"medication", "drug", "health"},
}

// Expander generates related query variants through bidirectional taxonomy
// lookups and the curated synonym table. Output is finite, fully
// materialized and safe to reuse.
type Expander struct {
	taxonomy *Taxonomy
}

// NewExpander creates an expander over the given taxonomy.
func NewExpander(t *Taxonomy) *Expander {
	return &Expander{taxonomy: t}
}

// Expand returns the ordered, deduplicated variant list for a query. The
// original query is always the first variant, unmodified.
func (e *Expander) Expand(query string) *types.ExpansionResult {
	result := &types.ExpansionResult{Original: query}
	seen := make(map[string]bool)

	add := func(variant string) {
		key := strings.ToLower(strings.TrimSpace(variant))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		result.Variants = append(result.Variants, variant)
	}

	add(query)

	tokens := Tokenize(query)
	for _, tok := range tokens {
		// Forward: token -> owning categories -> every keyword they carry.
		for _, category := range e.taxonomy.OwnersOf(tok) {
			add(category)
			for _, kw := range e.taxonomy.KeywordsOf(category) {
				add(kw)
			}
		}

		// Phrases containing the token, plus their owning categories.
		for _, match := range e.taxonomy.PhrasesContaining(tok) {
			add(match.Category)
			add(match.Phrase)
		}

		// Synonym substitutions produce full-sentence variants, not just
		// bag-of-words additions.
		for _, syn := range synonymTable[tok] {
			add(syn)
			add(substituteToken(query, tok, syn))
		}
	}

	return result
}

// substituteToken replaces whole-word occurrences of token in the query,
// case-insensitively, preserving the surrounding text.
func substituteToken(query, token, replacement string) string {
	words := strings.Fields(query)
	changed := false
	for i, w := range words {
		core := strings.ToLower(strings.Trim(w, ".,!?;:\"'"))
		if core == token {
			words[i] = strings.Replace(w, strings.Trim(w, ".,!?;:\"'"), replacement, 1)
			changed = true
		}
	}
	if !changed {
		return query
	}
	return strings.Join(words, " ")
}

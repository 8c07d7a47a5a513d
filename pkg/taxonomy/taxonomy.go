// Package taxonomy provides the topic taxonomy, classifier and query
// expander used for memory auto-tagging and search recall.
package taxonomy

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category holds the keyword and phrase sets of one taxonomy category.
type Category struct {
	Keywords []string `yaml:"keywords"`
	Phrases  []string `yaml:"phrases,omitempty"`
}

// Taxonomy is an ordered, read-only mapping from category name to keyword and
// phrase sets. It is loaded once at startup and safely shared across
// goroutines without locking.
type Taxonomy struct {
	order      []string
	categories map[string]*Category
	// keywordOwners maps each keyword token to the categories that carry it
	keywordOwners map[string][]string
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize splits text into lower-cased word tokens.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// New builds a taxonomy from an ordered list of names and their categories.
// Every category name is registered as a keyword of itself so that reverse
// expansion always resolves the name.
func New(order []string, categories map[string]*Category) (*Taxonomy, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("taxonomy has no categories")
	}

	t := &Taxonomy{
		order:         make([]string, 0, len(order)),
		categories:    make(map[string]*Category, len(order)),
		keywordOwners: make(map[string][]string),
	}

	for _, name := range order {
		cat, ok := categories[name]
		if !ok || cat == nil {
			return nil, fmt.Errorf("category %q has no definition", name)
		}

		name = strings.ToLower(name)
		normalized := &Category{
			Keywords: make([]string, 0, len(cat.Keywords)+1),
			Phrases:  make([]string, 0, len(cat.Phrases)),
		}

		seen := map[string]bool{}
		for _, kw := range append([]string{name}, cat.Keywords...) {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			normalized.Keywords = append(normalized.Keywords, kw)
			t.keywordOwners[kw] = append(t.keywordOwners[kw], name)
		}
		for _, ph := range cat.Phrases {
			ph = strings.ToLower(strings.TrimSpace(ph))
			if ph != "" {
				normalized.Phrases = append(normalized.Phrases, ph)
			}
		}

		t.order = append(t.order, name)
		t.categories[name] = normalized
	}

	return t, nil
}

// LoadFromYAML reads a taxonomy definition from a YAML file. The file maps
// category names to keyword/phrase lists; map order is preserved.
func LoadFromYAML(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy file: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("taxonomy file must be a mapping of categories")
	}

	root := doc.Content[0]
	order := make([]string, 0, len(root.Content)/2)
	categories := make(map[string]*Category, len(root.Content)/2)

	for i := 0; i+1 < len(root.Content); i += 2 {
		name := strings.ToLower(root.Content[i].Value)
		cat := &Category{}
		if err := root.Content[i+1].Decode(cat); err != nil {
			return nil, fmt.Errorf("failed to decode category %q: %w", name, err)
		}
		order = append(order, name)
		categories[name] = cat
	}

	return New(order, categories)
}

// Categories returns the category names in definition order.
func (t *Taxonomy) Categories() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Category returns the keyword/phrase sets of a category, or nil.
func (t *Taxonomy) Category(name string) *Category {
	return t.categories[strings.ToLower(name)]
}

// OwnersOf performs the forward lookup keyword -> owning categories.
func (t *Taxonomy) OwnersOf(keyword string) []string {
	return t.keywordOwners[strings.ToLower(keyword)]
}

// KeywordsOf performs the reverse lookup category -> keywords. The category
// name itself is always the first keyword.
func (t *Taxonomy) KeywordsOf(category string) []string {
	cat := t.Category(category)
	if cat == nil {
		return nil
	}
	out := make([]string, len(cat.Keywords))
	copy(out, cat.Keywords)
	return out
}

// PhraseMatch pairs a phrase with its owning category.
type PhraseMatch struct {
	Category string
	Phrase   string
}

// PhrasesContaining returns every taxonomy phrase that contains the token.
func (t *Taxonomy) PhrasesContaining(token string) []PhraseMatch {
	token = strings.ToLower(token)
	var matches []PhraseMatch
	for _, name := range t.order {
		for _, ph := range t.categories[name].Phrases {
			for _, word := range Tokenize(ph) {
				if word == token {
					matches = append(matches, PhraseMatch{Category: name, Phrase: ph})
					break
				}
			}
		}
	}
	return matches
}

// Default returns the built-in personal-assistant taxonomy.
func Default() *Taxonomy {
	order := []string{
		"work", "education", "health", "family", "travel",
		"food", "hobbies", "finance", "technology", "personal",
	}
	categories := map[string]*Category{
		"work": {
			Keywords: []string{
				"job", "career", "office", "company", "employer", "employee",
				"manager", "boss", "colleague", "project", "salary", "meeting",
				"engineer", "promotion", "profession", "hired",
			},
			Phrases: []string{"work at", "employed by", "my boss", "my manager", "job interview"},
		},
		"education": {
			Keywords: []string{
				"school", "university", "college", "degree", "study", "student",
				"class", "course", "graduate", "graduated", "professor", "exam",
				"academic", "thesis",
			},
			Phrases: []string{"graduated from", "studying at", "enrolled in", "majored in"},
		},
		"health": {
			Keywords: []string{
				"doctor", "medical", "hospital", "medicine", "allergy",
				"allergic", "exercise", "diet", "therapy", "symptom",
				"appointment", "wellness", "fitness",
			},
			Phrases: []string{"allergic to", "diagnosed with", "doctor appointment"},
		},
		"family": {
			Keywords: []string{
				"mother", "father", "mom", "dad", "sister", "brother", "wife",
				"husband", "son", "daughter", "parent", "cousin", "grandmother",
				"grandfather", "kids",
			},
			Phrases: []string{"my mother", "my father", "family reunion"},
		},
		"travel": {
			Keywords: []string{
				"trip", "vacation", "flight", "hotel", "destination", "airport",
				"passport", "visit", "visited", "tour", "abroad",
			},
			Phrases: []string{"traveled to", "trip to", "flew to"},
		},
		"food": {
			Keywords: []string{
				"restaurant", "recipe", "cooking", "meal", "dinner", "lunch",
				"breakfast", "cuisine", "dish", "pizza", "coffee", "vegetarian",
			},
			Phrases: []string{"favorite food", "ate at", "love to cook"},
		},
		"hobbies": {
			Keywords: []string{
				"hobby", "music", "reading", "sports", "gaming", "painting",
				"photography", "hiking", "guitar", "movies", "chess", "running",
			},
			Phrases: []string{"in my free time", "i enjoy", "i like to"},
		},
		"finance": {
			Keywords: []string{
				"money", "bank", "investment", "budget", "savings", "loan",
				"mortgage", "tax", "stocks", "retirement",
			},
			Phrases: []string{"bank account", "saving for", "invested in"},
		},
		"technology": {
			Keywords: []string{
				"computer", "software", "programming", "internet", "phone",
				"laptop", "code", "app", "ai", "database", "server",
			},
			Phrases: []string{"programming language", "software engineer"},
		},
		"personal": {
			Keywords: []string{
				"name", "birthday", "address", "age", "preference", "favorite",
				"goal", "plan",
			},
			Phrases: []string{"my name is", "i live in", "born in"},
		},
	}

	t, err := New(order, categories)
	if err != nil {
		// The built-in set is statically valid.
		panic(err)
	}
	return t
}

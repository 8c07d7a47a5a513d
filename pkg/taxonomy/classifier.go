package taxonomy

import (
	"sort"
	"strings"

	"github.com/memlinkio/memlink/pkg/config"
)

// Classifier scores free text against a taxonomy. It is a pure function of
// the text and taxonomy; no state is mutated by classification.
type Classifier struct {
	taxonomy *Taxonomy
	cfg      *config.ClassifierConfig
}

// NewClassifier creates a classifier over the given taxonomy. A nil config
// falls back to defaults.
func NewClassifier(t *Taxonomy, cfg *config.ClassifierConfig) *Classifier {
	if cfg == nil {
		cfg = config.NewClassifierConfig()
	}
	return &Classifier{taxonomy: t, cfg: cfg}
}

// Scores returns category -> confidence for the text. Confidences are
// normalized so they sum to at most 1.0; categories below the confidence
// floor are dropped. When nothing clears the floor the fallback topic is
// returned with full confidence.
func (c *Classifier) Scores(text string) map[string]float64 {
	scores, _ := c.classify(text)
	return scores
}

// Labels returns the category names for the text, ranked by confidence.
// Same scoring as Scores; only the output shape differs.
func (c *Classifier) Labels(text string) []string {
	_, labels := c.classify(text)
	return labels
}

func (c *Classifier) classify(text string) (map[string]float64, []string) {
	lower := strings.ToLower(text)
	tokens := Tokenize(text)
	tokenSet := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok] = true
	}

	raw := make(map[string]float64)
	total := 0.0

	for _, name := range c.taxonomy.Categories() {
		cat := c.taxonomy.Category(name)
		score := 0.0

		for _, kw := range cat.Keywords {
			if tokenSet[kw] {
				score += c.cfg.KeywordWeight
			}
		}
		for _, ph := range cat.Phrases {
			if strings.Contains(lower, ph) {
				score += c.cfg.PhraseWeight
			}
		}

		if score > 0 {
			raw[name] = score
			total += score
		}
	}

	scores := make(map[string]float64)
	if total > 0 {
		for name, score := range raw {
			conf := score / total
			if conf >= c.cfg.ConfidenceFloor {
				scores[name] = conf
			}
		}
	}

	if len(scores) == 0 {
		return map[string]float64{c.cfg.FallbackTopic: 1.0}, []string{c.cfg.FallbackTopic}
	}

	labels := make([]string, 0, len(scores))
	for name := range scores {
		labels = append(labels, name)
	}
	sort.Slice(labels, func(i, j int) bool {
		if scores[labels[i]] == scores[labels[j]] {
			return labels[i] < labels[j]
		}
		return scores[labels[i]] > scores[labels[j]]
	})

	return scores, labels
}

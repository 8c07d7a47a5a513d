// Package memory provides the memory manager orchestrating classification,
// deduplication and search over a user's memory records.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memlinkio/memlink/pkg/config"
	"github.com/memlinkio/memlink/pkg/interfaces"
	"github.com/memlinkio/memlink/pkg/similarity"
	"github.com/memlinkio/memlink/pkg/taxonomy"
	"github.com/memlinkio/memlink/pkg/types"
)

// Manager composes the classifier, expander and duplicate detector over a
// pluggable record store. All operations are scoped per user; failures are
// reported through the result message rather than raised.
type Manager struct {
	store      interfaces.RecordStore
	vector     interfaces.VectorSearcher
	classifier *taxonomy.Classifier
	expander   *taxonomy.Expander
	detector   *similarity.Detector
	cfg        *config.MemoryConfig
	fallback   string
	logger     interfaces.Logger
	metrics    interfaces.Metrics
}

// NewManager creates a memory manager. vector may be nil; when present its
// relevance scores are merged into search ranking.
func NewManager(
	store interfaces.RecordStore,
	vector interfaces.VectorSearcher,
	tax *taxonomy.Taxonomy,
	classifierCfg *config.ClassifierConfig,
	memoryCfg *config.MemoryConfig,
	logger interfaces.Logger,
	metrics interfaces.Metrics,
) *Manager {
	if classifierCfg == nil {
		classifierCfg = config.NewClassifierConfig()
	}
	if memoryCfg == nil {
		memoryCfg = config.NewMemoryConfig()
	}

	return &Manager{
		store:      store,
		vector:     vector,
		classifier: taxonomy.NewClassifier(tax, classifierCfg),
		expander:   taxonomy.NewExpander(tax),
		detector:   similarity.NewDetector(),
		cfg:        memoryCfg,
		fallback:   classifierCfg.FallbackTopic,
		logger:     logger,
		metrics:    metrics,
	}
}

// Add stores a new memory. Topics are auto-classified when absent; adds that
// match an existing record above the dedup threshold are acknowledged as
// already stored without creating a new record.
func (m *Manager) Add(ctx context.Context, userID, text string, topics []string) *types.OpResult {
	start := time.Now()
	defer m.timer("memory_add_duration", start)

	if userID == "" {
		return &types.OpResult{Success: false, Message: "user_id is required"}
	}
	if strings.TrimSpace(text) == "" {
		return &types.OpResult{Success: false, Message: "text cannot be empty"}
	}

	if len(topics) == 0 {
		topics = m.classifier.Labels(text)
		if len(topics) == 0 || (len(topics) == 1 && topics[0] == m.fallback) {
			topics = []string{m.cfg.DefaultTopic}
		}
	}

	existing, err := m.store.List(ctx, userID)
	if err != nil {
		return &types.OpResult{Success: false, Message: "failed to read existing memories: " + err.Error()}
	}

	for _, record := range existing {
		score := m.detector.Similarity(text, record.Text)
		if score > m.cfg.DedupThreshold {
			m.count("memory_add_duplicates", 1)
			return &types.OpResult{
				Success: false,
				Message: fmt.Sprintf("This information is already stored (similarity %.2f)", score),
				ID:      record.ID,
			}
		}
	}

	now := time.Now()
	record := &types.MemoryRecord{
		ID:        uuid.New().String(),
		Text:      text,
		Topics:    topics,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.Put(ctx, record); err != nil {
		return &types.OpResult{Success: false, Message: "failed to store memory: " + err.Error()}
	}

	m.count("memory_add_count", 1)
	if m.logger != nil {
		m.logger.Info("Stored memory", map[string]interface{}{
			"memory_id": record.ID,
			"user_id":   userID,
			"topics":    topics,
		})
	}

	return &types.OpResult{
		Success: true,
		Message: fmt.Sprintf("Memory stored with topics: %s", strings.Join(topics, ", ")),
		ID:      record.ID,
	}
}

// Update replaces the text and/or topics of an existing memory. ID and user
// scope never change.
func (m *Manager) Update(ctx context.Context, userID, id, text string, topics []string) *types.OpResult {
	if userID == "" {
		return &types.OpResult{Success: false, Message: "user_id is required"}
	}

	record, err := m.store.Get(ctx, id, userID)
	if err != nil {
		return &types.OpResult{Success: false, Message: fmt.Sprintf("memory not found: %s", id)}
	}

	if strings.TrimSpace(text) != "" {
		record.Text = text
	}
	if topics != nil {
		record.Topics = topics
	}
	record.UpdatedAt = time.Now()

	if err := m.store.Put(ctx, record); err != nil {
		return &types.OpResult{Success: false, Message: "failed to update memory: " + err.Error()}
	}

	return &types.OpResult{Success: true, Message: "Memory updated", ID: id}
}

// Delete removes a memory by ID.
func (m *Manager) Delete(ctx context.Context, userID, id string) *types.OpResult {
	if userID == "" {
		return &types.OpResult{Success: false, Message: "user_id is required"}
	}

	if err := m.store.Delete(ctx, id, userID); err != nil {
		return &types.OpResult{Success: false, Message: fmt.Sprintf("memory not found: %s", id)}
	}

	m.count("memory_delete_count", 1)
	return &types.OpResult{Success: true, Message: "Memory deleted", ID: id}
}

// Clear removes all memories for a user.
func (m *Manager) Clear(ctx context.Context, userID string) *types.OpResult {
	if userID == "" {
		return &types.OpResult{Success: false, Message: "user_id is required"}
	}

	count, err := m.store.DeleteAll(ctx, userID)
	if err != nil {
		return &types.OpResult{Success: false, Message: "failed to clear memories: " + err.Error()}
	}

	return &types.OpResult{Success: true, Message: fmt.Sprintf("Cleared %d memories", count)}
}

// List returns all of a user's memories, newest first.
func (m *Manager) List(ctx context.Context, userID string) ([]*types.MemoryRecord, error) {
	records, err := m.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// Search ranks the user's records against the expanded query. The final
// per-record score is the maximum of similarity, boosted topic match, and
// keyword coverage; ties break by recency then ID so results are stable.
func (m *Manager) Search(ctx context.Context, userID, query string, limit int) ([]types.SearchHit, error) {
	start := time.Now()
	defer m.timer("memory_search_duration", start)

	if limit <= 0 {
		limit = m.cfg.DefaultLimit
	}

	expansion := m.expander.Expand(query)
	records, err := m.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	hits := make([]types.SearchHit, 0, len(records))
	for _, record := range records {
		score := m.scoreRecord(record, expansion)
		if score >= m.cfg.SearchThreshold {
			hits = append(hits, types.SearchHit{Record: record, Score: score})
		}
	}

	// Vector relevance, when available, is interchangeable with the
	// detector's scores; merge by taking the max per record.
	if m.vector != nil {
		if vhits, err := m.vector.VectorSearch(ctx, query, userID, limit); err == nil {
			hits = mergeHits(hits, vhits, m.cfg.SearchThreshold)
		} else if m.logger != nil {
			m.logger.Warn("Vector search unavailable", map[string]interface{}{"error": err.Error()})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].Record.CreatedAt.Equal(hits[j].Record.CreatedAt) {
			return hits[i].Record.CreatedAt.After(hits[j].Record.CreatedAt)
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	m.count("memory_search_count", 1)
	return hits, nil
}

func (m *Manager) scoreRecord(record *types.MemoryRecord, expansion *types.ExpansionResult) float64 {
	textTokens := tokenSet(record.Text)

	maxSimilarity := 0.0
	topicScore := 0.0
	keywordScore := 0.0

	for _, variant := range expansion.Variants {
		if sim := m.detector.Similarity(variant, record.Text); sim > maxSimilarity {
			maxSimilarity = sim
		}

		if record.HasTopic(strings.ToLower(variant)) {
			topicScore = 1.0
		}

		if kw := keywordCoverage(variant, textTokens); kw > keywordScore {
			keywordScore = kw
		}
	}

	score := maxSimilarity
	if boosted := topicScore * m.cfg.TopicBoost; boosted > score {
		score = boosted
	}
	if keywordScore > score {
		score = keywordScore
	}
	return score
}

// keywordCoverage is the fraction of variant tokens (length > 2) literally
// present in the record text.
func keywordCoverage(variant string, textTokens map[string]bool) float64 {
	tokens := taxonomy.Tokenize(variant)
	considered := 0
	present := 0
	for _, tok := range tokens {
		if len(tok) <= 2 {
			continue
		}
		considered++
		if textTokens[tok] {
			present++
		}
	}
	if considered == 0 {
		return 0
	}
	return float64(present) / float64(considered)
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range taxonomy.Tokenize(text) {
		set[tok] = true
	}
	return set
}

func mergeHits(hits []types.SearchHit, extra []types.SearchHit, threshold float64) []types.SearchHit {
	byID := make(map[string]int, len(hits))
	for i, h := range hits {
		byID[h.Record.ID] = i
	}
	for _, h := range extra {
		if h.Score < threshold {
			continue
		}
		if i, ok := byID[h.Record.ID]; ok {
			if h.Score > hits[i].Score {
				hits[i].Score = h.Score
			}
		} else {
			hits = append(hits, h)
		}
	}
	return hits
}

// GetByTopics returns records whose topic set intersects the bidirectionally
// expanded topic set. Pure set membership; no similarity scoring.
func (m *Manager) GetByTopics(ctx context.Context, userID string, topics []string, limit int) ([]*types.MemoryRecord, error) {
	if limit <= 0 {
		limit = m.cfg.DefaultLimit
	}

	expanded := m.expandTopics(topics)
	records, err := m.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})

	matched := make([]*types.MemoryRecord, 0)
	for _, record := range records {
		for _, topic := range record.Topics {
			if expanded[strings.ToLower(topic)] {
				matched = append(matched, record)
				break
			}
		}
		if len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

// expandTopics resolves each requested topic forward (topic -> owning
// category) and reverse (category -> all its keywords).
func (m *Manager) expandTopics(topics []string) map[string]bool {
	expanded := make(map[string]bool)
	for _, topic := range topics {
		topic = strings.ToLower(topic)
		expanded[topic] = true

		result := m.expander.Expand(topic)
		for _, variant := range result.Variants {
			// Only single-token variants are topic labels.
			if !strings.ContainsAny(variant, " \t") {
				expanded[strings.ToLower(variant)] = true
			}
		}
	}
	return expanded
}

// Stats summarizes the user's stored memories.
func (m *Manager) Stats(ctx context.Context, userID string) (*types.MemoryStats, error) {
	records, err := m.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &types.MemoryStats{
		Total:             len(records),
		TopicDistribution: make(map[string]int),
	}

	totalLength := 0
	cutoff := time.Now().Add(-m.cfg.RecentWindow)
	for _, record := range records {
		totalLength += len(record.Text)
		for _, topic := range record.Topics {
			stats.TopicDistribution[topic]++
		}
		if record.CreatedAt.After(cutoff) {
			stats.RecentCount++
		}
	}
	if len(records) > 0 {
		stats.AverageLength = float64(totalLength) / float64(len(records))
	}

	return stats, nil
}

func (m *Manager) count(name string, value float64) {
	if m.metrics != nil {
		m.metrics.Counter(name, value, nil)
	}
}

func (m *Manager) timer(name string, start time.Time) {
	if m.metrics != nil {
		m.metrics.Timer(name, float64(time.Since(start).Milliseconds()), nil)
	}
}

var _ interfaces.MemoryService = (*Manager)(nil)

// Package coordinator provides the knowledge query router and the dual
// storage coordinator over the local store and the remote graph service.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/memlinkio/memlink/pkg/config"
	"github.com/memlinkio/memlink/pkg/interfaces"
	"github.com/memlinkio/memlink/pkg/taxonomy"
	"github.com/memlinkio/memlink/pkg/types"
)

// KnowledgeCoordinator routes queries between the local memory manager and
// the remote graph service, with a single fallback to the other backend on
// failure.
type KnowledgeCoordinator struct {
	memory  interfaces.MemoryService
	graph   interfaces.GraphService
	cfg     *config.RouterConfig
	logger  interfaces.Logger
	metrics interfaces.Metrics

	mu    sync.Mutex
	stats types.RoutingStats
}

// NewKnowledgeCoordinator creates a knowledge coordinator.
func NewKnowledgeCoordinator(
	memory interfaces.MemoryService,
	graph interfaces.GraphService,
	cfg *config.RouterConfig,
	logger interfaces.Logger,
	metrics interfaces.Metrics,
) *KnowledgeCoordinator {
	if cfg == nil {
		cfg = config.NewRouterConfig()
	}
	return &KnowledgeCoordinator{
		memory:  memory,
		graph:   graph,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Route decides which backend handles the query. First matching rule wins:
// explicit local, explicit remote mode, then the auto heuristic over query
// length and relationship keywords.
func (kc *KnowledgeCoordinator) Route(query string, mode types.QueryMode) types.RoutingDecision {
	if mode == types.ModeLocal {
		return types.RoutingDecision{Target: types.RouteLocal, Reason: "explicit mode"}
	}
	if types.RemoteModes[mode] {
		return types.RoutingDecision{Target: types.RouteRemote, Reason: "explicit mode"}
	}

	tokens := taxonomy.Tokenize(query)
	if len(tokens) <= kc.cfg.ShortQueryTokens && !kc.hasRelationKeyword(query) {
		return types.RoutingDecision{Target: types.RouteLocal, Reason: "auto-detected: simple fact"}
	}
	return types.RoutingDecision{Target: types.RouteRemote, Reason: "auto-detected: relationship/complex query"}
}

func (kc *KnowledgeCoordinator) hasRelationKeyword(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range kc.cfg.RelationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Query routes and executes a knowledge query. On backend failure it retries
// exactly once against the other backend; a double failure is surfaced with
// both error messages.
func (kc *KnowledgeCoordinator) Query(ctx context.Context, userID, query string, mode types.QueryMode, limit int) *types.KnowledgeResult {
	if limit <= 0 {
		limit = kc.cfg.DefaultTopK
	}

	decision := kc.Route(query, mode)
	kc.recordRouting(decision.Target)

	result := &types.KnowledgeResult{Decision: decision}

	primaryErr := kc.execute(ctx, decision.Target, userID, query, mode, limit, result)
	if primaryErr == nil {
		result.Success = true
		return result
	}

	// Fallback once to the other backend.
	fallbackTarget := types.RouteLocal
	if decision.Target == types.RouteLocal {
		fallbackTarget = types.RouteRemote
	}
	kc.recordFallback()
	result.FellBack = true

	if kc.logger != nil {
		kc.logger.Warn("Backend failed, falling back", map[string]interface{}{
			"primary":  decision.Target,
			"fallback": fallbackTarget,
			"error":    primaryErr.Error(),
		})
	}

	fallbackErr := kc.execute(ctx, fallbackTarget, userID, query, mode, limit, result)
	if fallbackErr == nil {
		result.Success = true
		return result
	}

	result.Success = false
	result.Message = fmt.Sprintf("both backends failed: %s; %s", primaryErr.Error(), fallbackErr.Error())
	return result
}

func (kc *KnowledgeCoordinator) execute(ctx context.Context, target types.RouteTarget, userID, query string, mode types.QueryMode, limit int, result *types.KnowledgeResult) error {
	if target == types.RouteLocal {
		hits, err := kc.memory.Search(ctx, userID, query, limit)
		if err != nil {
			return err
		}
		result.Hits = hits
		result.Answer = formatHits(hits)
		return nil
	}

	remoteMode := string(mode)
	if !types.RemoteModes[mode] {
		// Auto-routed and fallback queries use the service's blended mode.
		remoteMode = string(types.ModeHybrid)
	}

	resp, err := kc.graph.Query(ctx, &types.GraphQueryRequest{
		Query: query,
		Mode:  remoteMode,
		TopK:  limit,
	})
	if err != nil {
		return err
	}
	result.Answer = resp.Response
	result.Hits = nil
	return nil
}

func formatHits(hits []types.SearchHit) string {
	if len(hits) == 0 {
		return "No matching memories found."
	}
	lines := make([]string, 0, len(hits))
	for _, hit := range hits {
		lines = append(lines, fmt.Sprintf("- %s (relevance %.2f)", hit.Record.Text, hit.Score))
	}
	return strings.Join(lines, "\n")
}

// Stats returns a snapshot of the routing counters.
func (kc *KnowledgeCoordinator) Stats() types.RoutingStats {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	return kc.stats
}

func (kc *KnowledgeCoordinator) recordRouting(target types.RouteTarget) {
	kc.mu.Lock()
	kc.stats.TotalQueries++
	if target == types.RouteLocal {
		kc.stats.LocalQueries++
	} else {
		kc.stats.RemoteQueries++
	}
	kc.mu.Unlock()

	if kc.metrics != nil {
		kc.metrics.Counter("knowledge_queries_total", 1, map[string]string{"target": string(target)})
	}
}

func (kc *KnowledgeCoordinator) recordFallback() {
	kc.mu.Lock()
	kc.stats.Fallbacks++
	kc.mu.Unlock()

	if kc.metrics != nil {
		kc.metrics.Counter("knowledge_fallbacks_total", 1, nil)
	}
}

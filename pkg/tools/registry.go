// Package tools exposes the memory and knowledge operations as a fixed set
// of named callables an agent runtime can bind to. No reflection; every
// operation is registered explicitly with its argument contract.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/memlinkio/memlink/pkg/coordinator"
	"github.com/memlinkio/memlink/pkg/errors"
	"github.com/memlinkio/memlink/pkg/interfaces"
	"github.com/memlinkio/memlink/pkg/types"
)

// Args carries the loosely typed arguments an agent runtime passes by name.
type Args map[string]interface{}

// Operation is one callable tool. Handlers return a displayable string; an
// error is returned only for programming-level misuse such as a missing
// required argument.
type Operation struct {
	Name        string
	Description string
	Handler     func(ctx context.Context, args Args) (string, error)
}

// Registry holds the fixed operation set.
type Registry struct {
	memory    interfaces.MemoryService
	knowledge *coordinator.KnowledgeCoordinator
	dual      *coordinator.DualStorageCoordinator
	logger    interfaces.Logger

	ops map[string]*Operation
}

// NewRegistry builds the registry over the coordinators.
func NewRegistry(
	memory interfaces.MemoryService,
	knowledge *coordinator.KnowledgeCoordinator,
	dual *coordinator.DualStorageCoordinator,
	logger interfaces.Logger,
) *Registry {
	r := &Registry{
		memory:    memory,
		knowledge: knowledge,
		dual:      dual,
		logger:    logger,
		ops:       make(map[string]*Operation),
	}
	r.registerAll()
	return r
}

// Names returns the registered operation names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns an operation by name.
func (r *Registry) Get(name string) (*Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Call invokes an operation by name.
func (r *Registry) Call(ctx context.Context, name string, args Args) (string, error) {
	op, ok := r.ops[name]
	if !ok {
		return "", errors.NewNotFoundError(fmt.Sprintf("operation %q", name))
	}
	return op.Handler(ctx, args)
}

func (r *Registry) register(name, description string, handler func(ctx context.Context, args Args) (string, error)) {
	r.ops[name] = &Operation{Name: name, Description: description, Handler: handler}
}

func (r *Registry) registerAll() {
	r.register("add_memory", "Store a new memory, auto-classifying topics when absent",
		func(ctx context.Context, args Args) (string, error) {
			userID, err := requireString(args, "user_id")
			if err != nil {
				return "", err
			}
			text, err := requireString(args, "text")
			if err != nil {
				return "", err
			}
			result := r.memory.Add(ctx, userID, text, stringSlice(args, "topics"))
			return result.Message, nil
		})

	r.register("search_memory", "Search memories with query expansion",
		func(ctx context.Context, args Args) (string, error) {
			userID, err := requireString(args, "user_id")
			if err != nil {
				return "", err
			}
			query, err := requireString(args, "query")
			if err != nil {
				return "", err
			}
			hits, err := r.memory.Search(ctx, userID, query, intArg(args, "limit", 0))
			if err != nil {
				return fmt.Sprintf("search failed: %s", err.Error()), nil
			}
			return formatSearchHits(hits), nil
		})

	r.register("update_memory", "Replace the text and/or topics of a memory",
		func(ctx context.Context, args Args) (string, error) {
			userID, err := requireString(args, "user_id")
			if err != nil {
				return "", err
			}
			id, err := requireString(args, "id")
			if err != nil {
				return "", err
			}
			result := r.memory.Update(ctx, userID, id, optionalString(args, "text"), stringSlice(args, "topics"))
			return result.Message, nil
		})

	r.register("delete_memory", "Delete a memory and its linked remote documents",
		func(ctx context.Context, args Args) (string, error) {
			userID, err := requireString(args, "user_id")
			if err != nil {
				return "", err
			}
			id, err := requireString(args, "id")
			if err != nil {
				return "", err
			}
			if r.dual != nil {
				return r.dual.DeleteLinked(ctx, userID, id).Combined, nil
			}
			return r.memory.Delete(ctx, userID, id).Message, nil
		})

	r.register("clear_memories", "Delete all memories for a user",
		func(ctx context.Context, args Args) (string, error) {
			userID, err := requireString(args, "user_id")
			if err != nil {
				return "", err
			}
			return r.memory.Clear(ctx, userID).Message, nil
		})

	r.register("memory_stats", "Summarize a user's stored memories",
		func(ctx context.Context, args Args) (string, error) {
			userID, err := requireString(args, "user_id")
			if err != nil {
				return "", err
			}
			stats, err := r.memory.Stats(ctx, userID)
			if err != nil {
				return fmt.Sprintf("stats failed: %s", err.Error()), nil
			}
			return formatStats(stats), nil
		})

	r.register("get_memories_by_topics", "Fetch memories whose topics intersect the expanded topic set",
		func(ctx context.Context, args Args) (string, error) {
			userID, err := requireString(args, "user_id")
			if err != nil {
				return "", err
			}
			topics := stringSlice(args, "topics")
			if len(topics) == 0 {
				return "", errors.NewMissingFieldError("topics")
			}
			records, err := r.memory.GetByTopics(ctx, userID, topics, intArg(args, "limit", 0))
			if err != nil {
				return fmt.Sprintf("lookup failed: %s", err.Error()), nil
			}
			return formatRecords(records), nil
		})

	r.register("query_knowledge", "Route a knowledge query between local and remote backends",
		func(ctx context.Context, args Args) (string, error) {
			userID, err := requireString(args, "user_id")
			if err != nil {
				return "", err
			}
			query, err := requireString(args, "query")
			if err != nil {
				return "", err
			}
			mode := types.QueryMode(optionalString(args, "mode"))
			if mode == "" {
				mode = types.ModeAuto
			}
			result := r.knowledge.Query(ctx, userID, query, mode, intArg(args, "limit", 0))
			if !result.Success {
				return result.Message, nil
			}
			return fmt.Sprintf("[%s] %s", result.Decision.Target, result.Answer), nil
		})

	r.register("store_knowledge", "Store to both the local store and the knowledge graph",
		func(ctx context.Context, args Args) (string, error) {
			userID, err := requireString(args, "user_id")
			if err != nil {
				return "", err
			}
			text, err := requireString(args, "text")
			if err != nil {
				return "", err
			}
			return r.dual.Store(ctx, userID, text, stringSlice(args, "topics")).Combined, nil
		})

	r.register("routing_stats", "Report knowledge routing counters",
		func(ctx context.Context, args Args) (string, error) {
			stats := r.knowledge.Stats()
			return fmt.Sprintf("total=%d local=%d remote=%d fallbacks=%d",
				stats.TotalQueries, stats.LocalQueries, stats.RemoteQueries, stats.Fallbacks), nil
		})
}

func requireString(args Args, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", errors.NewMissingFieldError(key)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", errors.NewMissingFieldError(key)
	}
	return s, nil
}

func optionalString(args Args, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func stringSlice(args Args, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	switch typed := v.(type) {
	case []string:
		return typed
	case []interface{}:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if typed == "" {
			return nil
		}
		parts := strings.Split(typed, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return nil
}

func intArg(args Args, key string, fallback int) int {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	switch typed := v.(type) {
	case int:
		return typed
	case float64:
		return int(typed)
	}
	return fallback
}

func formatSearchHits(hits []types.SearchHit) string {
	if len(hits) == 0 {
		return "No matching memories found."
	}
	lines := make([]string, 0, len(hits))
	for _, hit := range hits {
		lines = append(lines, fmt.Sprintf("- [%.2f] %s (topics: %s)",
			hit.Score, hit.Record.Text, strings.Join(hit.Record.Topics, ", ")))
	}
	return strings.Join(lines, "\n")
}

func formatRecords(records []*types.MemoryRecord) string {
	if len(records) == 0 {
		return "No memories found for those topics."
	}
	lines := make([]string, 0, len(records))
	for _, record := range records {
		lines = append(lines, fmt.Sprintf("- %s (topics: %s)",
			record.Text, strings.Join(record.Topics, ", ")))
	}
	return strings.Join(lines, "\n")
}

func formatStats(stats *types.MemoryStats) string {
	topics := make([]string, 0, len(stats.TopicDistribution))
	for topic, count := range stats.TopicDistribution {
		topics = append(topics, fmt.Sprintf("%s=%d", topic, count))
	}
	sort.Strings(topics)
	return fmt.Sprintf("total=%d avg_length=%.1f recent=%d topics: %s",
		stats.Total, stats.AverageLength, stats.RecentCount, strings.Join(topics, " "))
}

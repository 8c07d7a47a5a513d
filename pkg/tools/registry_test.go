package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlinkio/memlink/pkg/coordinator"
	"github.com/memlinkio/memlink/pkg/errors"
	"github.com/memlinkio/memlink/pkg/graph"
	"github.com/memlinkio/memlink/pkg/logger"
	"github.com/memlinkio/memlink/pkg/memory"
	"github.com/memlinkio/memlink/pkg/metrics"
	"github.com/memlinkio/memlink/pkg/store"
	"github.com/memlinkio/memlink/pkg/taxonomy"
)

// newTestRegistry wires a registry over an in-memory store. The graph client
// points at an unroutable address; remote outcomes are reported, not raised,
// so the local operations under test are unaffected.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	lg := logger.NewTestLogger()
	mtr := metrics.NewTestMetrics()
	manager := memory.NewManager(store.NewMemoryStore(lg), nil, taxonomy.Default(), nil, nil, lg, mtr)
	graphClient := graph.NewClient(nil, lg)
	knowledge := coordinator.NewKnowledgeCoordinator(manager, graphClient, nil, lg, mtr)
	dual := coordinator.NewDualStorageCoordinator(manager, graphClient, lg, mtr)

	return NewRegistry(manager, knowledge, dual, lg)
}

func TestRegistryNames(t *testing.T) {
	r := newTestRegistry(t)

	expected := []string{
		"add_memory", "clear_memories", "delete_memory", "get_memories_by_topics",
		"memory_stats", "query_knowledge", "routing_stats", "search_memory",
		"store_knowledge", "update_memory",
	}
	assert.Equal(t, expected, r.Names())

	op, ok := r.Get("add_memory")
	require.True(t, ok)
	assert.Equal(t, "add_memory", op.Name)
	assert.NotEmpty(t, op.Description)
}

func TestRegistryCall(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownOperation", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Call(ctx, "no_such_op", Args{})
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("MissingRequiredArgument", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Call(ctx, "add_memory", Args{"text": "no user"})
		require.Error(t, err)
		me := errors.GetMemlinkError(err)
		require.NotNil(t, me)
		assert.Equal(t, errors.ErrCodeMissingField, me.Code)
	})

	t.Run("AddAndSearch", func(t *testing.T) {
		r := newTestRegistry(t)

		out, err := r.Call(ctx, "add_memory", Args{
			"user_id": "alice",
			"text":    "I work at Google as a software engineer",
		})
		require.NoError(t, err)
		assert.Contains(t, out, "Memory stored")

		out, err = r.Call(ctx, "search_memory", Args{"user_id": "alice", "query": "job"})
		require.NoError(t, err)
		assert.Contains(t, out, "I work at Google")
	})

	t.Run("SearchNoResults", func(t *testing.T) {
		r := newTestRegistry(t)
		out, err := r.Call(ctx, "search_memory", Args{"user_id": "alice", "query": "anything"})
		require.NoError(t, err)
		assert.Equal(t, "No matching memories found.", out)
	})

	t.Run("TopicsAcceptJSONArrays", func(t *testing.T) {
		r := newTestRegistry(t)

		_, err := r.Call(ctx, "add_memory", Args{
			"user_id": "alice",
			"text":    "standup at nine",
			"topics":  []interface{}{"work"},
		})
		require.NoError(t, err)

		out, err := r.Call(ctx, "get_memories_by_topics", Args{
			"user_id": "alice",
			"topics":  "work",
		})
		require.NoError(t, err)
		assert.Contains(t, out, "standup at nine")
	})

	t.Run("MemoryStats", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Call(ctx, "add_memory", Args{"user_id": "alice", "text": "standup at nine", "topics": "work"})
		require.NoError(t, err)

		out, err := r.Call(ctx, "memory_stats", Args{"user_id": "alice"})
		require.NoError(t, err)
		assert.Contains(t, out, "total=1")
		assert.Contains(t, out, "work=1")
	})

	t.Run("ClearMemories", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Call(ctx, "add_memory", Args{"user_id": "alice", "text": "short lived note"})
		require.NoError(t, err)

		out, err := r.Call(ctx, "clear_memories", Args{"user_id": "alice"})
		require.NoError(t, err)
		assert.Equal(t, "Cleared 1 memories", out)
	})

	t.Run("QueryKnowledgeLocal", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Call(ctx, "add_memory", Args{"user_id": "alice", "text": "my name is Alex"})
		require.NoError(t, err)

		out, err := r.Call(ctx, "query_knowledge", Args{
			"user_id": "alice",
			"query":   "Alex",
			"mode":    "local",
		})
		require.NoError(t, err)
		assert.Contains(t, out, "[local]")
		assert.Contains(t, out, "my name is Alex")
	})

	t.Run("RoutingStats", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Call(ctx, "query_knowledge", Args{"user_id": "alice", "query": "Alex", "mode": "local"})
		require.NoError(t, err)

		out, err := r.Call(ctx, "routing_stats", Args{})
		require.NoError(t, err)
		assert.Contains(t, out, "total=1")
		assert.Contains(t, out, "local=1")
	})
}

func TestArgHelpers(t *testing.T) {
	t.Run("StringSliceForms", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b"}, stringSlice(Args{"k": []string{"a", "b"}}, "k"))
		assert.Equal(t, []string{"a", "b"}, stringSlice(Args{"k": []interface{}{"a", "b"}}, "k"))
		assert.Equal(t, []string{"a", "b"}, stringSlice(Args{"k": "a, b"}, "k"))
		assert.Nil(t, stringSlice(Args{}, "k"))
	})

	t.Run("IntArgForms", func(t *testing.T) {
		assert.Equal(t, 5, intArg(Args{"k": 5}, "k", 0))
		// JSON numbers arrive as float64.
		assert.Equal(t, 5, intArg(Args{"k": 5.0}, "k", 0))
		assert.Equal(t, 7, intArg(Args{}, "k", 7))
	})

	t.Run("RequireStringRejectsBlank", func(t *testing.T) {
		_, err := requireString(Args{"k": "   "}, "k")
		assert.Error(t, err)
	})
}

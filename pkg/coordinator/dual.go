package coordinator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/memlinkio/memlink/pkg/graph"
	"github.com/memlinkio/memlink/pkg/interfaces"
	"github.com/memlinkio/memlink/pkg/types"
)

// DualStorageCoordinator replicates writes to the local store and the remote
// graph service. The two writes are isolated: a failure on one side never
// prevents or rolls back the other. This is deliberate best-effort
// replication, not a transaction.
type DualStorageCoordinator struct {
	memory  interfaces.MemoryService
	graph   interfaces.GraphService
	logger  interfaces.Logger
	metrics interfaces.Metrics
}

// NewDualStorageCoordinator creates a dual storage coordinator.
func NewDualStorageCoordinator(
	memory interfaces.MemoryService,
	graphSvc interfaces.GraphService,
	logger interfaces.Logger,
	metrics interfaces.Metrics,
) *DualStorageCoordinator {
	return &DualStorageCoordinator{
		memory:  memory,
		graph:   graphSvc,
		logger:  logger,
		metrics: metrics,
	}
}

// Store writes the text to both backends and reports each outcome plus a
// combined human-readable status. The local write runs first so the remote
// document can carry the local record id for later cross-deletion; a
// duplicate-rejected local outcome skips the remote upload since the
// knowledge graph already holds the content.
func (dc *DualStorageCoordinator) Store(ctx context.Context, userID, text string, topics []string) *types.DualStoreResult {
	result := &types.DualStoreResult{}

	local := dc.memory.Add(ctx, userID, text, topics)
	result.Local = types.StoreOutcome{
		Success: local.Success,
		Message: local.Message,
		ID:      local.ID,
	}

	switch {
	case !local.Success && local.ID != "":
		// Duplicate of an existing record; nothing new to replicate.
		result.Remote = types.StoreOutcome{Success: true, Message: "remote sync skipped (already stored)"}
	default:
		result.Remote = dc.uploadRemote(ctx, text, topics, local.ID)
	}

	result.Combined = fmt.Sprintf("%s | %s", result.Local.Message, result.Remote.Message)

	if dc.metrics != nil {
		dc.metrics.Counter("dual_store_total", 1, nil)
		if !result.Remote.Success {
			dc.metrics.Counter("dual_store_remote_failures", 1, nil)
		}
		if !result.Local.Success {
			dc.metrics.Counter("dual_store_local_failures", 1, nil)
		}
	}

	return result
}

func (dc *DualStorageCoordinator) uploadRemote(ctx context.Context, text string, topics []string, localID string) types.StoreOutcome {
	upload, err := dc.graph.UploadDocument(ctx, text, topics, localID)
	if err != nil {
		if dc.logger != nil {
			dc.logger.Warn("Remote sync failed", map[string]interface{}{"error": err.Error()})
		}
		return types.StoreOutcome{
			Success: false,
			Message: fmt.Sprintf("remote sync failed: %s", err.Error()),
		}
	}

	return types.StoreOutcome{
		Success: true,
		Message: fmt.Sprintf("synced to knowledge graph as %s", upload.Filename),
		ID:      upload.Filename,
	}
}

// DeleteLinked removes a record locally and cleans up its linked remote
// documents by filename pattern. The two deletes run concurrently and each
// outcome is reported independently.
func (dc *DualStorageCoordinator) DeleteLinked(ctx context.Context, userID, id string) *types.DualStoreResult {
	result := &types.DualStoreResult{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		local := dc.memory.Delete(gctx, userID, id)
		result.Local = types.StoreOutcome{
			Success: local.Success,
			Message: local.Message,
			ID:      id,
		}
		return nil
	})

	g.Go(func() error {
		if err := dc.graph.DeleteByPattern(gctx, graph.PatternForRecord(id)); err != nil {
			result.Remote = types.StoreOutcome{
				Success: false,
				Message: fmt.Sprintf("remote cleanup failed: %s", err.Error()),
			}
			return nil
		}
		result.Remote = types.StoreOutcome{Success: true, Message: "remote documents removed"}
		return nil
	})

	// Both goroutines report through the result; errors never propagate.
	_ = g.Wait()

	result.Combined = fmt.Sprintf("%s | %s", result.Local.Message, result.Remote.Message)
	return result
}

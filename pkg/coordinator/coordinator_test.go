package coordinator

import (
	"context"

	"github.com/memlinkio/memlink/pkg/types"
)

// fakeMemory is a programmable MemoryService used by the coordinator tests.
type fakeMemory struct {
	addResult    *types.OpResult
	deleteResult *types.OpResult
	searchHits   []types.SearchHit
	searchErr    error

	addCalls    int
	searchCalls int
	deleteCalls int
	lastQuery   string
}

func (f *fakeMemory) Add(ctx context.Context, userID, text string, topics []string) *types.OpResult {
	f.addCalls++
	if f.addResult != nil {
		return f.addResult
	}
	return &types.OpResult{Success: true, Message: "Memory stored with topics: general", ID: "local-1"}
}

func (f *fakeMemory) Update(ctx context.Context, userID, id, text string, topics []string) *types.OpResult {
	return &types.OpResult{Success: true, Message: "Memory updated", ID: id}
}

func (f *fakeMemory) Delete(ctx context.Context, userID, id string) *types.OpResult {
	f.deleteCalls++
	if f.deleteResult != nil {
		return f.deleteResult
	}
	return &types.OpResult{Success: true, Message: "Memory deleted", ID: id}
}

func (f *fakeMemory) Clear(ctx context.Context, userID string) *types.OpResult {
	return &types.OpResult{Success: true, Message: "Cleared 0 memories"}
}

func (f *fakeMemory) List(ctx context.Context, userID string) ([]*types.MemoryRecord, error) {
	return nil, nil
}

func (f *fakeMemory) Search(ctx context.Context, userID, query string, limit int) ([]types.SearchHit, error) {
	f.searchCalls++
	f.lastQuery = query
	return f.searchHits, f.searchErr
}

func (f *fakeMemory) GetByTopics(ctx context.Context, userID string, topics []string, limit int) ([]*types.MemoryRecord, error) {
	return nil, nil
}

func (f *fakeMemory) Stats(ctx context.Context, userID string) (*types.MemoryStats, error) {
	return &types.MemoryStats{}, nil
}

// fakeGraph is a programmable GraphService used by the coordinator tests.
type fakeGraph struct {
	queryResp  *types.GraphQueryResponse
	queryErr   error
	uploadErr  error
	deleteErr  error
	labelsErr  error

	queryCalls  int
	uploadCalls int
	deleteCalls int
	lastMode    string
	lastPattern string
	lastTopics  []string
	lastLocalID string
}

func (f *fakeGraph) UploadDocument(ctx context.Context, text string, topics []string, localID string) (*types.GraphUploadResult, error) {
	f.uploadCalls++
	f.lastTopics = topics
	f.lastLocalID = localID
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &types.GraphUploadResult{Filename: "doc-1.txt", Status: "uploaded"}, nil
}

func (f *fakeGraph) Query(ctx context.Context, req *types.GraphQueryRequest) (*types.GraphQueryResponse, error) {
	f.queryCalls++
	f.lastMode = req.Mode
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryResp != nil {
		return f.queryResp, nil
	}
	return &types.GraphQueryResponse{Response: "graph answer"}, nil
}

func (f *fakeGraph) ListLabels(ctx context.Context) ([]string, error) {
	return nil, f.labelsErr
}

func (f *fakeGraph) DeleteDocument(ctx context.Context, docID string) error {
	return f.deleteErr
}

func (f *fakeGraph) DeleteByPattern(ctx context.Context, pattern string) error {
	f.deleteCalls++
	f.lastPattern = pattern
	return f.deleteErr
}

func (f *fakeGraph) HealthCheck(ctx context.Context) error {
	return f.labelsErr
}

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlinkio/memlink/pkg/config"
	"github.com/memlinkio/memlink/pkg/coordinator"
	"github.com/memlinkio/memlink/pkg/graph"
	"github.com/memlinkio/memlink/pkg/logger"
	"github.com/memlinkio/memlink/pkg/memory"
	"github.com/memlinkio/memlink/pkg/metrics"
	"github.com/memlinkio/memlink/pkg/store"
	"github.com/memlinkio/memlink/pkg/taxonomy"
	"github.com/memlinkio/memlink/pkg/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.NewConfig()
	// Unroutable graph service; remote failures stay isolated from the
	// local paths these tests exercise.
	cfg.Graph.BaseURL = "http://127.0.0.1:1"
	cfg.Graph.Timeout = 200 * time.Millisecond
	cfg.Graph.RetryCount = 0

	lg := logger.NewTestLogger()
	mtr := metrics.NewTestMetrics()
	tax := taxonomy.Default()
	manager := memory.NewManager(store.NewMemoryStore(lg), nil, tax, cfg.Classifier, cfg.Memory, lg, mtr)
	graphClient := graph.NewClient(cfg.Graph, lg)
	knowledge := coordinator.NewKnowledgeCoordinator(manager, graphClient, cfg.Router, lg, mtr)
	dual := coordinator.NewDualStorageCoordinator(manager, graphClient, lg, mtr)

	return NewServer(manager, knowledge, dual, graphClient, taxonomy.NewClassifier(tax, cfg.Classifier), cfg, lg)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	// The graph backend is unreachable in tests.
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "ok", health.Checks["memory"])
}

func TestMemoryEndpoints(t *testing.T) {
	t.Run("CreateStoresLocallyDespiteRemoteFailure", func(t *testing.T) {
		s := newTestServer(t)
		w := doJSON(t, s, http.MethodPost, "/api/v1/memories", MemoryCreateRequest{
			UserID: "alice",
			Text:   "I work at Google",
		})

		require.Equal(t, http.StatusCreated, w.Code)

		var resp BaseResponse[types.OpResult]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Data)
		assert.True(t, resp.Data.Success)
		assert.NotEmpty(t, resp.Data.ID)
		assert.Contains(t, resp.Message, "remote sync failed")
	})

	t.Run("CreateRejectsMissingFields", func(t *testing.T) {
		s := newTestServer(t)
		w := doJSON(t, s, http.MethodPost, "/api/v1/memories", map[string]string{"user_id": "alice"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DuplicateReturnsConflict", func(t *testing.T) {
		s := newTestServer(t)
		first := doJSON(t, s, http.MethodPost, "/api/v1/memories", MemoryCreateRequest{UserID: "alice", Text: "my name is Alex"})
		require.Equal(t, http.StatusCreated, first.Code)

		second := doJSON(t, s, http.MethodPost, "/api/v1/memories", MemoryCreateRequest{UserID: "alice", Text: "My name is Alex."})
		assert.Equal(t, http.StatusConflict, second.Code)
	})

	t.Run("ListRequiresUserID", func(t *testing.T) {
		s := newTestServer(t)
		w := doJSON(t, s, http.MethodGet, "/api/v1/memories", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("SearchFindsStoredMemory", func(t *testing.T) {
		s := newTestServer(t)
		created := doJSON(t, s, http.MethodPost, "/api/v1/memories", MemoryCreateRequest{
			UserID: "alice",
			Text:   "I graduated from Johns Hopkins in 2015",
		})
		require.Equal(t, http.StatusCreated, created.Code)

		w := doJSON(t, s, http.MethodPost, "/api/v1/memories/search", SearchRequest{UserID: "alice", Query: "Hopkins"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp BaseResponse[[]types.SearchHit]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Data)
		require.NotEmpty(t, *resp.Data)
		assert.Contains(t, (*resp.Data)[0].Record.Text, "Johns Hopkins")
	})

	t.Run("UpdateAndStats", func(t *testing.T) {
		s := newTestServer(t)
		created := doJSON(t, s, http.MethodPost, "/api/v1/memories", MemoryCreateRequest{
			UserID: "alice",
			Text:   "standup at nine",
			Topics: []string{"work"},
		})
		require.Equal(t, http.StatusCreated, created.Code)

		var createResp BaseResponse[types.OpResult]
		require.NoError(t, json.Unmarshal(created.Body.Bytes(), &createResp))

		w := doJSON(t, s, http.MethodPut, "/api/v1/memories/"+createResp.Data.ID, MemoryUpdateRequest{
			UserID: "alice",
			Text:   "standup moved to ten",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, s, http.MethodGet, "/api/v1/memories/stats?user_id=alice", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var statsResp BaseResponse[types.MemoryStats]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statsResp))
		assert.Equal(t, 1, statsResp.Data.Total)
		assert.Equal(t, 1, statsResp.Data.TopicDistribution["work"])
	})

	t.Run("UpdateUnknownIDReturnsNotFound", func(t *testing.T) {
		s := newTestServer(t)
		w := doJSON(t, s, http.MethodPut, "/api/v1/memories/ghost", MemoryUpdateRequest{UserID: "alice", Text: "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("DeleteReportsBothBackends", func(t *testing.T) {
		s := newTestServer(t)
		created := doJSON(t, s, http.MethodPost, "/api/v1/memories", MemoryCreateRequest{UserID: "alice", Text: "short lived note"})
		require.Equal(t, http.StatusCreated, created.Code)

		var createResp BaseResponse[types.OpResult]
		require.NoError(t, json.Unmarshal(created.Body.Bytes(), &createResp))

		w := doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/memories/%s?user_id=alice", createResp.Data.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp BaseResponse[types.DualStoreResult]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Data.Local.Success)
		assert.False(t, resp.Data.Remote.Success)
	})
}

func TestKnowledgeEndpoints(t *testing.T) {
	t.Run("LocalQuery", func(t *testing.T) {
		s := newTestServer(t)
		created := doJSON(t, s, http.MethodPost, "/api/v1/memories", MemoryCreateRequest{UserID: "alice", Text: "my name is Alex"})
		require.Equal(t, http.StatusCreated, created.Code)

		w := doJSON(t, s, http.MethodPost, "/api/v1/knowledge/query", KnowledgeQueryRequest{
			UserID: "alice",
			Query:  "Alex",
			Mode:   "local",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp BaseResponse[types.KnowledgeResult]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, types.RouteLocal, resp.Data.Decision.Target)
		assert.Contains(t, resp.Data.Answer, "my name is Alex")
	})

	t.Run("RemoteFailureFallsBackToLocal", func(t *testing.T) {
		s := newTestServer(t)
		w := doJSON(t, s, http.MethodPost, "/api/v1/knowledge/query", KnowledgeQueryRequest{
			UserID: "alice",
			Query:  "how does Alex relate to Google",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp BaseResponse[types.KnowledgeResult]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Data.FellBack)
		assert.Equal(t, types.RouteRemote, resp.Data.Decision.Target)
	})

	t.Run("RoutingStats", func(t *testing.T) {
		s := newTestServer(t)
		doJSON(t, s, http.MethodPost, "/api/v1/knowledge/query", KnowledgeQueryRequest{UserID: "alice", Query: "Alex", Mode: "local"})

		w := doJSON(t, s, http.MethodGet, "/api/v1/knowledge/routing", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp BaseResponse[types.RoutingStats]
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Data.TotalQueries)
		assert.Equal(t, 1, resp.Data.LocalQueries)
	})
}

func TestClassifyEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/v1/classify", ClassifyRequest{Text: "I work at Google"})

	require.Equal(t, http.StatusOK, w.Code)

	var resp BaseResponse[map[string]float64]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1.0, (*resp.Data)["work"])
}

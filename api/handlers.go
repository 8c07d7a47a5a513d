package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/memlinkio/memlink/pkg/types"
)

// healthCheck probes the local store and the remote graph service.
func (s *Server) healthCheck(c *gin.Context) {
	checks := map[string]string{"memory": "ok"}
	status := "healthy"

	if s.graph != nil {
		if err := s.graph.HealthCheck(c.Request.Context()); err != nil {
			checks["graph"] = err.Error()
			status = "degraded"
		} else {
			checks["graph"] = "ok"
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func (s *Server) addMemory(c *gin.Context) {
	var req MemoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	var result *types.OpResult
	if s.dual != nil {
		outcome := s.dual.Store(c.Request.Context(), req.UserID, req.Text, req.Topics)
		result = &types.OpResult{
			Success: outcome.Local.Success,
			Message: outcome.Combined,
			ID:      outcome.Local.ID,
		}
	} else {
		result = s.memory.Add(c.Request.Context(), req.UserID, req.Text, req.Topics)
	}

	status := http.StatusCreated
	if !result.Success {
		status = http.StatusConflict
	}
	c.JSON(status, BaseResponse[types.OpResult]{
		Code:    status,
		Message: result.Message,
		Data:    result,
	})
}

func (s *Server) listMemories(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "user_id query parameter is required",
		})
		return
	}

	records, err := s.memory.List(c.Request.Context(), userID)
	if err != nil {
		s.internalError(c, "Failed to list memories", err)
		return
	}

	c.JSON(http.StatusOK, BaseResponse[[]*types.MemoryRecord]{
		Code:    http.StatusOK,
		Message: "OK",
		Data:    &records,
	})
}

func (s *Server) updateMemory(c *gin.Context) {
	var req MemoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	result := s.memory.Update(c.Request.Context(), req.UserID, c.Param("id"), req.Text, req.Topics)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusNotFound
	}
	c.JSON(status, BaseResponse[types.OpResult]{
		Code:    status,
		Message: result.Message,
		Data:    result,
	})
}

func (s *Server) deleteMemory(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "user_id query parameter is required",
		})
		return
	}

	if s.dual != nil {
		outcome := s.dual.DeleteLinked(c.Request.Context(), userID, c.Param("id"))
		status := http.StatusOK
		if !outcome.Local.Success {
			status = http.StatusNotFound
		}
		c.JSON(status, BaseResponse[types.DualStoreResult]{
			Code:    status,
			Message: outcome.Combined,
			Data:    outcome,
		})
		return
	}

	result := s.memory.Delete(c.Request.Context(), userID, c.Param("id"))
	status := http.StatusOK
	if !result.Success {
		status = http.StatusNotFound
	}
	c.JSON(status, BaseResponse[types.OpResult]{
		Code:    status,
		Message: result.Message,
		Data:    result,
	})
}

func (s *Server) clearMemories(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "user_id query parameter is required",
		})
		return
	}

	result := s.memory.Clear(c.Request.Context(), userID)
	c.JSON(http.StatusOK, BaseResponse[types.OpResult]{
		Code:    http.StatusOK,
		Message: result.Message,
		Data:    result,
	})
}

func (s *Server) searchMemories(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	hits, err := s.memory.Search(c.Request.Context(), req.UserID, req.Query, req.Limit)
	if err != nil {
		s.internalError(c, "Search failed", err)
		return
	}

	c.JSON(http.StatusOK, BaseResponse[[]types.SearchHit]{
		Code:    http.StatusOK,
		Message: "OK",
		Data:    &hits,
	})
}

func (s *Server) memoriesByTopics(c *gin.Context) {
	var req TopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	records, err := s.memory.GetByTopics(c.Request.Context(), req.UserID, req.Topics, req.Limit)
	if err != nil {
		s.internalError(c, "Topic lookup failed", err)
		return
	}

	c.JSON(http.StatusOK, BaseResponse[[]*types.MemoryRecord]{
		Code:    http.StatusOK,
		Message: "OK",
		Data:    &records,
	})
}

func (s *Server) memoryStats(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "user_id query parameter is required",
		})
		return
	}

	stats, err := s.memory.Stats(c.Request.Context(), userID)
	if err != nil {
		s.internalError(c, "Failed to compute stats", err)
		return
	}

	c.JSON(http.StatusOK, BaseResponse[types.MemoryStats]{
		Code:    http.StatusOK,
		Message: "OK",
		Data:    stats,
	})
}

func (s *Server) queryKnowledge(c *gin.Context) {
	var req KnowledgeQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	mode := types.QueryMode(req.Mode)
	if mode == "" {
		mode = types.ModeAuto
	}

	result := s.knowledge.Query(c.Request.Context(), req.UserID, req.Query, mode, req.Limit)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, BaseResponse[types.KnowledgeResult]{
		Code:    status,
		Message: result.Message,
		Data:    result,
	})
}

func (s *Server) storeKnowledge(c *gin.Context) {
	var req KnowledgeStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	outcome := s.dual.Store(c.Request.Context(), req.UserID, req.Text, req.Topics)
	c.JSON(http.StatusOK, BaseResponse[types.DualStoreResult]{
		Code:    http.StatusOK,
		Message: outcome.Combined,
		Data:    outcome,
	})
}

func (s *Server) routingStats(c *gin.Context) {
	stats := s.knowledge.Stats()
	c.JSON(http.StatusOK, BaseResponse[types.RoutingStats]{
		Code:    http.StatusOK,
		Message: "OK",
		Data:    &stats,
	})
}

func (s *Server) classifyText(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	scores := s.classifier.Scores(req.Text)
	c.JSON(http.StatusOK, BaseResponse[map[string]float64]{
		Code:    http.StatusOK,
		Message: "OK",
		Data:    &scores,
	})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    http.StatusBadRequest,
		Message: "Invalid request format",
		Error:   err.Error(),
	})
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, err, map[string]interface{}{
		"request_id": c.GetString("request_id"),
	})
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    http.StatusInternalServerError,
		Message: msg,
		Error:   err.Error(),
	})
}

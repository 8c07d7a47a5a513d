// Package api provides the HTTP REST surface over the memory and knowledge
// coordinators.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/memlinkio/memlink/pkg/config"
	"github.com/memlinkio/memlink/pkg/coordinator"
	"github.com/memlinkio/memlink/pkg/interfaces"
	"github.com/memlinkio/memlink/pkg/taxonomy"
)

// Server is the API server instance.
type Server struct {
	memory     interfaces.MemoryService
	knowledge  *coordinator.KnowledgeCoordinator
	dual       *coordinator.DualStorageCoordinator
	graph      interfaces.GraphService
	classifier *taxonomy.Classifier
	config     *config.Config
	logger     interfaces.Logger
	router     *gin.Engine
	server     *http.Server
	started    time.Time
}

// NewServer wires the routes over the coordinators.
func NewServer(
	memory interfaces.MemoryService,
	knowledge *coordinator.KnowledgeCoordinator,
	dual *coordinator.DualStorageCoordinator,
	graph interfaces.GraphService,
	classifier *taxonomy.Classifier,
	cfg *config.Config,
	logger interfaces.Logger,
) *Server {
	if cfg.LogLevel == "error" || cfg.LogLevel == "warn" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		memory:     memory,
		knowledge:  knowledge,
		dual:       dual,
		graph:      graph,
		classifier: classifier,
		config:     cfg,
		logger:     logger,
		router:     gin.New(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	s.router.Use(cors.New(corsConfig))

	s.router.Use(s.requestIDMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		memories := v1.Group("/memories")
		{
			memories.POST("", s.addMemory)
			memories.GET("", s.listMemories)
			memories.PUT("/:id", s.updateMemory)
			memories.DELETE("/:id", s.deleteMemory)
			memories.DELETE("", s.clearMemories)
			memories.POST("/search", s.searchMemories)
			memories.POST("/topics", s.memoriesByTopics)
			memories.GET("/stats", s.memoryStats)
		}

		knowledge := v1.Group("/knowledge")
		{
			knowledge.POST("/query", s.queryKnowledge)
			knowledge.POST("/store", s.storeKnowledge)
			knowledge.GET("/routing", s.routingStats)
		}

		v1.POST("/classify", s.classifyText)
	}
}

// Router exposes the underlying handler, used by httptest in integration tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	port := s.config.APIPort
	if port == 0 {
		port = 8090
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.APIHost, port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.started = time.Now()

	s.logger.Info("Starting API server", map[string]interface{}{
		"addr": s.server.Addr,
		"mode": gin.Mode(),
	})

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server failed", err)
		}
	}()

	<-ctx.Done()

	s.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Stop shuts the server down immediately.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Package interfaces defines the core interfaces for memlink components
package interfaces

import (
	"context"

	"github.com/memlinkio/memlink/pkg/types"
)

// RecordStore defines the local record store consumed by the memory manager.
// All operations are scoped by user ID; implementations must serialize writes
// per user and never expose one user's records to another.
type RecordStore interface {
	// Put persists a record, replacing any record with the same ID
	Put(ctx context.Context, record *types.MemoryRecord) error

	// Get retrieves a record by ID for a user
	Get(ctx context.Context, id, userID string) (*types.MemoryRecord, error)

	// List retrieves all records for a user
	List(ctx context.Context, userID string) ([]*types.MemoryRecord, error)

	// Delete removes a record by ID for a user
	Delete(ctx context.Context, id, userID string) error

	// DeleteAll removes all records for a user and returns the removed count
	DeleteAll(ctx context.Context, userID string) (int, error)

	// Close closes the store
	Close() error
}

// VectorSearcher is an optional similarity-search capability a record store
// may provide. Scores are opaque relevance values in [0,1], interchangeable
// with the duplicate detector's own scores.
type VectorSearcher interface {
	// VectorSearch returns records ranked by relevance to the query text
	VectorSearch(ctx context.Context, query, userID string, limit int) ([]types.SearchHit, error)
}

// Embedder defines the interface for embedding implementations
type Embedder interface {
	// Embed generates an embedding for text
	Embed(ctx context.Context, text string) ([]float32, error)

	// GetDimension returns the embedding dimension
	GetDimension() int

	// Close closes the embedder
	Close() error
}

// GraphService defines the remote graph-based knowledge service boundary.
// Every call must be bounded by a timeout; a timeout is reported as a
// failure, not retried as a hang.
type GraphService interface {
	// UploadDocument uploads text tagged with topics, returning the derived filename
	UploadDocument(ctx context.Context, text string, topics []string, localID string) (*types.GraphUploadResult, error)

	// Query runs a knowledge query in the given mode
	Query(ctx context.Context, req *types.GraphQueryRequest) (*types.GraphQueryResponse, error)

	// ListLabels returns all entity/relation labels known to the service
	ListLabels(ctx context.Context) ([]string, error)

	// DeleteDocument deletes a document by ID
	DeleteDocument(ctx context.Context, docID string) error

	// DeleteByPattern deletes documents whose filename matches a glob pattern
	DeleteByPattern(ctx context.Context, pattern string) error

	// HealthCheck probes the service
	HealthCheck(ctx context.Context) error
}

// MemoryService defines the memory manager operations exposed to callers.
type MemoryService interface {
	// Add stores a new memory after classification and dedup
	Add(ctx context.Context, userID, text string, topics []string) *types.OpResult

	// Update replaces the text and/or topics of an existing memory
	Update(ctx context.Context, userID, id, text string, topics []string) *types.OpResult

	// Delete removes a memory by ID
	Delete(ctx context.Context, userID, id string) *types.OpResult

	// Clear removes all memories for a user
	Clear(ctx context.Context, userID string) *types.OpResult

	// List returns all memories for a user, newest first
	List(ctx context.Context, userID string) ([]*types.MemoryRecord, error)

	// Search returns records ranked against the expanded query
	Search(ctx context.Context, userID, query string, limit int) ([]types.SearchHit, error)

	// GetByTopics returns records whose topics intersect the expanded topic set
	GetByTopics(ctx context.Context, userID string, topics []string, limit int) ([]*types.MemoryRecord, error)

	// Stats summarizes a user's stored memories
	Stats(ctx context.Context, userID string) (*types.MemoryStats, error)
}

// Logger defines the interface for logging implementations
type Logger interface {
	// Debug logs debug level messages
	Debug(msg string, fields ...map[string]interface{})

	// Info logs info level messages
	Info(msg string, fields ...map[string]interface{})

	// Warn logs warning level messages
	Warn(msg string, fields ...map[string]interface{})

	// Error logs error level messages
	Error(msg string, err error, fields ...map[string]interface{})

	// Fatal logs fatal level messages and exits
	Fatal(msg string, err error, fields ...map[string]interface{})

	// WithFields returns a logger with additional fields
	WithFields(fields map[string]interface{}) Logger
}

// Metrics defines the interface for metrics collection
type Metrics interface {
	// Counter increments a counter metric
	Counter(name string, value float64, labels map[string]string)

	// Gauge sets a gauge metric
	Gauge(name string, value float64, labels map[string]string)

	// Timer records timing metrics
	Timer(name string, duration float64, labels map[string]string)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	// Load loads configuration from a file
	Load(ctx context.Context, path string) error

	// Get retrieves a configuration value
	Get(key string) interface{}

	// Set sets a configuration value
	Set(key string, value interface{}) error

	// Watch watches for configuration changes
	Watch(ctx context.Context, callback func(key string, value interface{})) error
}

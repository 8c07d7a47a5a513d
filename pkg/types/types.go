// Package types defines the core types shared across memlink components
package types

import (
	"time"
)

// MemoryRecord represents a single stored memory, scoped to one user.
// ID and UserID are immutable after creation; Text and Topics may be
// replaced through the memory manager.
type MemoryRecord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text" validate:"required"`
	Topics    []string  `json:"topics"`
	UserID    string    `json:"user_id" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTopic reports whether the record carries the given topic label.
func (r *MemoryRecord) HasTopic(topic string) bool {
	for _, t := range r.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// RouteTarget identifies which backend a knowledge query is dispatched to.
type RouteTarget string

const (
	RouteLocal  RouteTarget = "local"
	RouteRemote RouteTarget = "remote"
)

// RoutingDecision explains where a query was routed and why. Produced per
// query, never persisted.
type RoutingDecision struct {
	Target RouteTarget `json:"target"`
	Reason string      `json:"reason"`
}

// QueryMode is the retrieval mode requested by a caller. ModeAuto lets the
// coordinator pick a backend; the remaining modes are explicit.
type QueryMode string

const (
	ModeAuto   QueryMode = "auto"
	ModeLocal  QueryMode = "local"
	ModeGlobal QueryMode = "global"
	ModeHybrid QueryMode = "hybrid"
	ModeMix    QueryMode = "mix"
	ModeNaive  QueryMode = "naive"
	ModeBypass QueryMode = "bypass"
)

// RemoteModes is the fixed set of modes that always route to the remote
// graph service.
var RemoteModes = map[QueryMode]bool{
	ModeGlobal: true,
	ModeHybrid: true,
	ModeMix:    true,
	ModeNaive:  true,
	ModeBypass: true,
}

// ExpansionResult is an ordered list of query variants. The first element is
// always the original query, unmodified.
type ExpansionResult struct {
	Original string   `json:"original"`
	Variants []string `json:"variants"`
}

// OpResult is the uniform outcome of memory manager operations. Operations
// report failure through Success/Message instead of returning an error so
// that an agent runtime always receives a displayable string.
type OpResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// SearchHit pairs a record with its final relevance score.
type SearchHit struct {
	Record *MemoryRecord `json:"record"`
	Score  float64       `json:"score"`
}

// MemoryStats summarizes a user's stored memories.
type MemoryStats struct {
	Total             int            `json:"total"`
	AverageLength     float64        `json:"average_length"`
	TopicDistribution map[string]int `json:"topic_distribution"`
	RecentCount       int            `json:"recent_count"`
}

// KnowledgeResult is the outcome of a routed knowledge query.
type KnowledgeResult struct {
	Decision   RoutingDecision `json:"decision"`
	Answer     string          `json:"answer"`
	Hits       []SearchHit     `json:"hits,omitempty"`
	FellBack   bool            `json:"fell_back"`
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
}

// RoutingStats accumulates per-process routing counters.
type RoutingStats struct {
	TotalQueries  int `json:"total_queries"`
	LocalQueries  int `json:"local_queries"`
	RemoteQueries int `json:"remote_queries"`
	Fallbacks     int `json:"fallbacks"`
}

// StoreOutcome reports one side of a dual write.
type StoreOutcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// DualStoreResult aggregates the two independent write outcomes plus the
// combined human-readable status string.
type DualStoreResult struct {
	Local    StoreOutcome `json:"local"`
	Remote   StoreOutcome `json:"remote"`
	Combined string       `json:"combined"`
}

// GraphQueryRequest is the body of a remote graph service query.
type GraphQueryRequest struct {
	Query        string `json:"query" validate:"required"`
	Mode         string `json:"mode"`
	TopK         int    `json:"top_k,omitempty"`
	ResponseType string `json:"response_type,omitempty"`
}

// GraphQueryResponse is the answer returned by the remote graph service.
type GraphQueryResponse struct {
	Response string `json:"response"`
}

// GraphUploadResult reports a document upload to the remote graph service.
type GraphUploadResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// ErrorType classifies errors for propagation policy decisions.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeDuplicate  ErrorType = "duplicate"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeExternal   ErrorType = "external"
)

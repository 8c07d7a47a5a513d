package api

// BaseResponse is the envelope returned by every endpoint.
type BaseResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *T     `json:"data,omitempty"`
}

// SimpleResponse is used for operations without a data payload.
type SimpleResponse = BaseResponse[interface{}]

// ErrorResponse is returned on any non-2xx status.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// MemoryCreateRequest creates a new memory.
type MemoryCreateRequest struct {
	UserID string   `json:"user_id" binding:"required"`
	Text   string   `json:"text" binding:"required"`
	Topics []string `json:"topics,omitempty"`
}

// MemoryUpdateRequest replaces text and/or topics of a memory.
type MemoryUpdateRequest struct {
	UserID string   `json:"user_id" binding:"required"`
	Text   string   `json:"text,omitempty"`
	Topics []string `json:"topics,omitempty"`
}

// SearchRequest searches a user's memories.
type SearchRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Query  string `json:"query" binding:"required"`
	Limit  int    `json:"limit,omitempty"`
}

// TopicsRequest fetches memories by topic intersection.
type TopicsRequest struct {
	UserID string   `json:"user_id" binding:"required"`
	Topics []string `json:"topics" binding:"required"`
	Limit  int      `json:"limit,omitempty"`
}

// KnowledgeQueryRequest routes a query between local and remote backends.
type KnowledgeQueryRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Query  string `json:"query" binding:"required"`
	Mode   string `json:"mode,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// KnowledgeStoreRequest writes to both storage backends.
type KnowledgeStoreRequest struct {
	UserID string   `json:"user_id" binding:"required"`
	Text   string   `json:"text" binding:"required"`
	Topics []string `json:"topics,omitempty"`
}

// ClassifyRequest scores a text against the topic taxonomy.
type ClassifyRequest struct {
	Text string `json:"text" binding:"required"`
}

// HealthResponse reports server and backend status.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

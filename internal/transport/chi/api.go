package chi

import "time"

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed       ErrorCode = "method_not_allowed"
	ErrorCodeRateLimited            ErrorCode = "rate_limited"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeRequestCanceled        ErrorCode = "request_canceled"
	ErrorCodeTimeout                ErrorCode = "timeout"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// MatchRequest is the body of POST /match.
type MatchRequest struct {
	OwnerID        int64      `json:"owner_id"`
	Topic          string     `json:"topic"`
	Content        string     `json:"content"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	IncludeVectors bool       `json:"include_vectors,omitempty"`
}

// MatchItem is a pooled candidate, with its similarity when returned as a match.
type MatchItem struct {
	PostID     string     `json:"post_id"`
	OwnerID    int64      `json:"owner_id"`
	Topic      string     `json:"topic"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Similarity *float64   `json:"similarity,omitempty"`
	Vector     []float32  `json:"vector,omitempty"`
}

// MatchResponse is the body of a successful POST /match.
type MatchResponse struct {
	Post               MatchItem   `json:"post"`
	PreciseMatches     []MatchItem `json:"precise_matches"`
	RecommendedMatches []MatchItem `json:"recommended_matches"`
	HasMatches         bool        `json:"has_matches"`
	TotalMatches       int         `json:"total_matches"`
}

// CandidateListResponse is the body of GET /topics/{topic}/candidates.
type CandidateListResponse struct {
	Topic      string      `json:"topic"`
	Candidates []MatchItem `json:"candidates"`
	Total      int         `json:"total"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string               `json:"status"`
	Checks      map[string]string    `json:"checks"`
	Candidates  int                  `json:"candidates"`
	VectorCache *VectorCacheResponse `json:"vector_cache,omitempty"`
}

// VectorCacheResponse reports in-process vector cache counters.
type VectorCacheResponse struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/candidate"
	"github.com/kailas-cloud/vecmatch/internal/domain/match"
	logpkg "github.com/kailas-cloud/vecmatch/internal/logger"
	healthuc "github.com/kailas-cloud/vecmatch/internal/usecase/health"
	submissionuc "github.com/kailas-cloud/vecmatch/internal/usecase/submission"
)

// statusClientClosedRequest is the non-standard 499 used when the client went away.
const statusClientClosedRequest = 499

// maxBodyBytes bounds POST /match bodies: content limit plus JSON envelope.
const maxBodyBytes = candidate.MaxContentSize + 4096

// Submissions is the matching use case consumed by the server.
type Submissions interface {
	Submit(ctx context.Context, req submissionuc.Request) (submissionuc.Outcome, error)
	Withdraw(ctx context.Context, ownerID int64) error
	Active(ctx context.Context, topic string) ([]candidate.Candidate, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the matching HTTP API.
type Server struct {
	submissions   Submissions
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(submissions Submissions, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		submissions: submissions,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusUnprocessableEntity, ErrorCodeVectorDimMismatch),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(context.Canceled, statusClientClosedRequest, ErrorCodeRequestCanceled),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorCodeTimeout),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Post("/match", s.SubmitMatch)
	r.Delete("/match/{owner_id}", s.WithdrawMatch)
	r.Get("/topics/{topic}/candidates", s.ListCandidates)
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed")
	})
}

// SubmitMatch handles POST /match.
func (s *Server) SubmitMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodeBadRequest, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	in := submissionuc.Request{
		OwnerID: req.OwnerID,
		Topic:   req.Topic,
		Content: req.Content,
	}
	if req.Timestamp != nil {
		in.Timestamp = *req.Timestamp
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	out, err := s.submissions.Submit(ctx, in)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}
	setEmbeddingHeaders(w, usage)

	writeJSON(w, http.StatusOK, matchResponse(out, req.IncludeVectors))
}

// WithdrawMatch handles DELETE /match/{owner_id}.
func (s *Server) WithdrawMatch(w http.ResponseWriter, r *http.Request) {
	var ownerID int64
	err := runtime.BindStyledParameterWithOptions("simple", "owner_id", gochi.URLParam(r, "owner_id"), &ownerID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter owner_id")
		return
	}

	if err := s.submissions.Withdraw(r.Context(), ownerID); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCandidates handles GET /topics/{topic}/candidates.
func (s *Server) ListCandidates(w http.ResponseWriter, r *http.Request) {
	var topic string
	err := runtime.BindStyledParameterWithOptions("simple", "topic", gochi.URLParam(r, "topic"), &topic,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter topic")
		return
	}

	active, err := s.submissions.Active(r.Context(), topic)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	items := make([]MatchItem, len(active))
	for i := range active {
		items[i] = candidateToItem(&active[i], false)
	}
	writeJSON(w, http.StatusOK, CandidateListResponse{Topic: topic, Candidates: items, Total: len(items)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:     string(report.Status),
		Checks:     checks,
		Candidates: report.Candidates,
	}
	if vc := report.VectorCache; vc != nil {
		resp.VectorCache = &VectorCacheResponse{Entries: vc.Entries, Hits: vc.Hits, Misses: vc.Misses}
	}
	writeJSON(w, httpStatus, resp)
}

func matchResponse(out submissionuc.Outcome, includeVectors bool) MatchResponse {
	return MatchResponse{
		Post:               candidateToItem(&out.Candidate, includeVectors),
		PreciseMatches:     scoredToItems(out.Result.Precise, includeVectors),
		RecommendedMatches: scoredToItems(out.Result.Recommended, includeVectors),
		HasMatches:         out.Result.HasMatches(),
		TotalMatches:       out.Result.TotalMatchCount(),
	}
}

func scoredToItems(scored []match.Scored, includeVectors bool) []MatchItem {
	items := make([]MatchItem, len(scored))
	for i := range scored {
		item := candidateToItem(&scored[i].Candidate, includeVectors)
		sim := scored[i].Similarity
		item.Similarity = &sim
		items[i] = item
	}
	return items
}

func candidateToItem(c *candidate.Candidate, includeVector bool) MatchItem {
	item := MatchItem{
		PostID:    c.ID(),
		OwnerID:   c.OwnerID(),
		Topic:     c.Topic(),
		Content:   c.Content(),
		CreatedAt: c.CreatedAt().UTC(),
	}
	if c.HasExpiry() {
		exp := c.ExpiresAt().UTC()
		item.ExpiresAt = &exp
	}
	if includeVector {
		item.Vector = c.Vector()
	}
	return item
}

// setEmbeddingHeaders reports provider tokens when this request computed its vector.
func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-safe message. Validation details are kept,
// everything else collapses to the sentinel text.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) {
		return err.Error()
	}
	var dim *domain.DimensionMismatchError
	if errors.As(err, &dim) {
		return dim.Error()
	}
	sentinels := []error{
		domain.ErrVectorDimMismatch,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		context.Canceled,
		context.DeadlineExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := logpkg.FromContextOr(ctx, s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/domain/paper"
	logpkg "github.com/kailas-cloud/paperdex/internal/logger"
	feeduc "github.com/kailas-cloud/paperdex/internal/usecase/feed"
	healthuc "github.com/kailas-cloud/paperdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/paperdex/internal/usecase/search"
	similaruc "github.com/kailas-cloud/paperdex/internal/usecase/similar"
)

// UserIDHeader carries the caller's user id for per-user exclusions.
const UserIDHeader = "X-User-ID"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// PaperReader loads one stored paper.
type PaperReader interface {
	Get(ctx context.Context, id int64) (paper.Paper, error)
}

// Server serves the paper retrieval API.
type Server struct {
	papers        PaperReader
	search        *searchuc.Service
	feed          *feeduc.Service
	similar       *similaruc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	papers PaperReader,
	search *searchuc.Service,
	feed *feeduc.Service,
	similar *similaruc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		papers:  papers,
		search:  search,
		feed:    feed,
		similar: similar,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrPaperNotFound, http.StatusNotFound, ErrorCodePaperNotFound),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeUpstreamError),
		sentinelHandler(domain.ErrTransport, http.StatusBadGateway, ErrorCodeUpstreamError),
		sentinelHandler(domain.ErrParse, http.StatusBadGateway, ErrorCodeUpstreamError),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, ErrorCodeEmbeddingUnavailable),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/api/search", s.SearchPapers)
	r.Get("/api/content", s.ListContent)
	r.Get("/api/papers/{id}", s.GetPaper)
	r.Get("/api/papers/{id}/similar", s.SimilarToPaper)
	r.Post("/api/similar", s.SimilarToText)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchPapers handles GET /api/search.
func (s *Server) SearchPapers(w http.ResponseWriter, r *http.Request) {
	var params SearchParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "query", q, &params.Query); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter query: "+err.Error())
		return
	}
	if !bindPaging(w, q, &params.Page, &params.PageSize) {
		return
	}

	pg, err := s.search.Search(r.Context(), derefString(params.Query), derefInt(params.Page), derefInt(params.PageSize))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(pg))
}

// ListContent handles GET /api/content.
func (s *Server) ListContent(w http.ResponseWriter, r *http.Request) {
	var params ContentParams
	if !bindPaging(w, r.URL.Query(), &params.Page, &params.PageSize) {
		return
	}

	pg, err := s.feed.Feed(r.Context(), r.Header.Get(UserIDHeader), derefInt(params.Page), derefInt(params.PageSize))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(pg))
}

// GetPaper handles GET /api/papers/{id}.
func (s *Server) GetPaper(w http.ResponseWriter, r *http.Request) {
	id, ok := bindPaperID(w, r)
	if !ok {
		return
	}

	p, err := s.papers.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paperToItem(p))
}

// SimilarToPaper handles GET /api/papers/{id}/similar.
func (s *Server) SimilarToPaper(w http.ResponseWriter, r *http.Request) {
	id, ok := bindPaperID(w, r)
	if !ok {
		return
	}
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter limit: "+err.Error())
		return
	}

	matches, err := s.similar.ByPaper(r.Context(), id, r.Header.Get(UserIDHeader), derefInt(limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesToResponse(matches))
}

// SimilarToText handles POST /api/similar.
func (s *Server) SimilarToText(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	matches, err := s.similar.ByText(r.Context(), req.Text, r.Header.Get(UserIDHeader), derefInt(req.Limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesToResponse(matches))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func bindPaging(w http.ResponseWriter, q url.Values, page, pageSize **int) bool {
	if err := runtime.BindQueryParameter("form", true, false, "page", q, page); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter page: "+err.Error())
		return false
	}
	if err := runtime.BindQueryParameter("form", true, false, "page_size", q, pageSize); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter page_size: "+err.Error())
		return false
	}
	return true
}

func bindPaperID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter id: "+err.Error())
		return 0, false
	}
	return id, true
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

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrPaperNotFound,
		domain.ErrInvalidRequest,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrTransport,
		domain.ErrParse,
		domain.ErrEmbeddingUnavailable,
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

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

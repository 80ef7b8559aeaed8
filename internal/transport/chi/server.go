// Package chi is the HTTP transport: request decoding, validation, and
// domain-error-to-status mapping over the usecase services.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/solshare/contentiq/internal/domain"
	analyzeuc "github.com/solshare/contentiq/internal/usecase/analyze"
	healthuc "github.com/solshare/contentiq/internal/usecase/health"
	moderationuc "github.com/solshare/contentiq/internal/usecase/moderation"
	recommenduc "github.com/solshare/contentiq/internal/usecase/recommend"
	searchuc "github.com/solshare/contentiq/internal/usecase/search"
)

const defaultResultLimit = 50

// Error codes returned in the JSON error body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeForbidden        = "forbidden"
	codeRateLimited      = "rate_limited"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server hosts the content-intelligence HTTP API.
type Server struct {
	moderation    *moderationuc.Service
	analyze       *analyzeuc.Service
	search        *searchuc.Service
	recommend     *recommenduc.Service
	health        *healthuc.Service
	validate      *validator.Validate
	logger        *zap.Logger
	production    bool
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. In production internal error detail
// is redacted from responses.
func NewServer(
	moderation *moderationuc.Service,
	analyze *analyzeuc.Service,
	search *searchuc.Service,
	recommend *recommenduc.Service,
	health *healthuc.Service,
	production bool,
	logger *zap.Logger,
) *Server {
	s := &Server{
		moderation: moderation,
		analyze:    analyze,
		search:     search,
		recommend:  recommend,
		health:     health,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
		production: production,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, codeForbidden),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
	}
	return s
}

// Routes mounts all API endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/moderate/check", s.handleModerateCheck)
	r.Post("/api/moderate/check-hash", s.handleHashCheck)
	r.Post("/api/analyze/content", s.handleAnalyze)
	r.Post("/api/search/semantic", s.handleSearch)
	r.Post("/api/recommend/feed", s.handleRecommend)
	r.Get("/health", s.handleHealth)
}

func (s *Server) handleModerateCheck(w http.ResponseWriter, r *http.Request) {
	var req moderationCheckRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.moderation.Moderate(r.Context(), req.ImageBase64, req.Caption)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, moderationToResponse(result))
}

func (s *Server) handleHashCheck(w http.ResponseWriter, r *http.Request) {
	var req hashCheckRequest
	if !s.decode(w, r, &req) {
		return
	}

	result := s.moderation.CheckHash(r.Context(), strings.ToLower(req.ImageHash))
	writeJSON(w, http.StatusOK, hashCheckToResponse(result))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}

	analysis, err := s.analyze.Analyze(r.Context(), req.ContentURI, req.Caption, req.PostID, req.CreatorWallet)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analysisToResponse(analysis))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultResultLimit
	}
	rerank := req.Rerank == nil || *req.Rerank

	result, err := s.search.Search(r.Context(), req.Query, req.Limit, rerank)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchToResponse(result))
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultResultLimit
	}

	result, err := s.recommend.Recommend(r.Context(), req.UserWallet, req.LikedPostIDs, req.Limit, req.ExcludeSeen)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendToResponse(result))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// decode unmarshals and validates the request body. On failure the error
// response is already written and decode reports false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders the first field violation in client terms.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "validation failed"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " exceeds maximum length " + fe.Param()
	case "min":
		return fe.Field() + " is below minimum " + fe.Param()
	case "hexadecimal":
		return fe.Field() + " must contain only hexadecimal characters"
	default:
		return fe.Field() + " is invalid"
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}

	s.logger.Error("internal error", zap.Error(err))
	detail := "internal error"
	if !s.production {
		detail = err.Error()
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, detail)
}

// safeDomainMessage returns a client-safe message: the sentinel text for
// known domain errors, a generic one otherwise.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrVectorDimMismatch,
		domain.ErrForbidden,
		domain.ErrRateLimited,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

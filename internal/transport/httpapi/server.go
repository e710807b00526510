// Package httpapi exposes the clustering, validation, and drag services
// over a chi-routed JSON API.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clustra-io/clustra/internal/domain"
	"github.com/clustra-io/clustra/internal/domain/category"
	annotateuc "github.com/clustra-io/clustra/internal/usecase/annotate"
	clusteruc "github.com/clustra-io/clustra/internal/usecase/cluster"
	draguc "github.com/clustra-io/clustra/internal/usecase/drag"
	healthuc "github.com/clustra-io/clustra/internal/usecase/health"
	usageuc "github.com/clustra-io/clustra/internal/usecase/usage"
	validateuc "github.com/clustra-io/clustra/internal/usecase/validate"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Defaults carries the configured fallback options applied when a request
// leaves a knob unset.
type Defaults struct {
	Cluster        clusteruc.Options
	Drag           draguc.Options
	MaxTopEntities int
}

// Server routes the JSON API.
type Server struct {
	cluster       *clusteruc.Service
	annotate      *annotateuc.Service
	validate      *validateuc.Service
	drag          *draguc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	defaults      Defaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	cluster *clusteruc.Service,
	annotate *annotateuc.Service,
	validate *validateuc.Service,
	drag *draguc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	defaults Defaults,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cluster:  cluster,
		annotate: annotate,
		validate: validate,
		drag:     drag,
		usage:    usage,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInsufficientSignal, http.StatusUnprocessableEntity, codeInsufficientSignal),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusPaymentRequired, codeQuotaExceeded),
		sentinelHandler(domain.ErrProvider, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Routes mounts every endpoint on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/cluster", s.Cluster)
	r.Post("/v1/validate", s.Validate)
	r.Post("/v1/optimize", s.Optimize)
	r.Get("/v1/categories", s.Categories)
	r.Get("/v1/usage", s.Usage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Cluster handles POST /v1/cluster.
func (s *Server) Cluster(w http.ResponseWriter, r *http.Request) {
	var req clusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Keywords) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "keywords are required")
		return
	}

	mode, err := annotationMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	records, err := req.records()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	opts, err := req.options(s.defaults.Cluster)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	analysis, err := s.cluster.Run(r.Context(), records, opts, nil)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if mode != "" {
		opts := annotateuc.Options{
			Mode:           mode,
			TargetCategory: req.TargetCategory,
			MaxTopEntities: s.defaults.MaxTopEntities,
		}
		if err := s.annotate.Run(r.Context(), analysis, opts, nil); err != nil {
			s.handleDomainError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, analysisToResponse(analysis))
}

func annotationMode(mode string) (annotateuc.Mode, error) {
	switch mode {
	case "":
		return "", nil
	case string(annotateuc.ModeDiscover):
		return annotateuc.ModeDiscover, nil
	case string(annotateuc.ModePopulate):
		return annotateuc.ModePopulate, nil
	default:
		return "", errors.New(`mode must be "discover" or "populate"`)
	}
}

// Validate handles POST /v1/validate.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	report, err := s.validate.Run(r.Context(), req.Draft, validateuc.Options{
		TargetCategory: req.TargetCategory,
		Primary:        req.Primary,
		Secondary:      req.Secondary,
		Tertiary:       req.Tertiary,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reportToResponse(report))
}

// Optimize handles POST /v1/optimize.
func (s *Server) Optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "items are required")
		return
	}

	opts := s.defaults.Drag
	if req.MaxIterations > 0 {
		opts.MaxIterations = req.MaxIterations
	}
	if req.MinGain > 0 {
		opts.MinGain = req.MinGain
	}

	result, err := s.drag.Optimize(r.Context(), req.Draft, req.TargetCategory, req.items(), opts)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, optimizationToResponse(result))
}

// Categories handles GET /v1/categories.
func (s *Server) Categories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: category.All()})
}

// Usage handles GET /v1/usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, usageToResponse(s.usage.GetReport(r.Context())))
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

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrInsufficientSignal,
		domain.ErrQuotaExceeded,
		domain.ErrProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

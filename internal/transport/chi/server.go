package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/knowwho/internal/domain"
	briefuc "github.com/kailas-cloud/knowwho/internal/usecase/brief"
	datasetuc "github.com/kailas-cloud/knowwho/internal/usecase/dataset"
	healthuc "github.com/kailas-cloud/knowwho/internal/usecase/health"
	settingsuc "github.com/kailas-cloud/knowwho/internal/usecase/settings"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the KnowWho REST and SSE API.
type Server struct {
	datasets      *datasetuc.Service
	settings      *settingsuc.Service
	briefs        *briefuc.Service
	health        *healthuc.Service
	events        *Broadcaster
	briefLimiter  *RateLimiter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. briefLimiter can be nil.
func NewServer(
	datasets *datasetuc.Service,
	settings *settingsuc.Service,
	briefs *briefuc.Service,
	health *healthuc.Service,
	events *Broadcaster,
	briefLimiter *RateLimiter,
	logger *zap.Logger,
) *Server {
	s := &Server{
		datasets:     datasets,
		settings:     settings,
		briefs:       briefs,
		health:       health,
		events:       events,
		briefLimiter: briefLimiter,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeDatasetNotFound),
		sentinelHandler(domain.ErrNodeNotFound, http.StatusNotFound, ErrorCodeNodeNotFound),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrLLMDisabled, http.StatusNotImplemented, ErrorCodeLLMDisabled),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, ErrorCodeLLMProviderError),
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r gochi.Router) {
		r.Get("/events", s.Events)
		r.Get("/settings", s.GetSettings)
		r.Put("/settings", s.PutSettings)

		r.Get("/datasets", s.ListDatasets)
		r.Route("/datasets/{queryId}", func(r gochi.Router) {
			r.Get("/", s.GetDataset)
			r.Put("/", s.PutDataset)
			r.Delete("/", s.DeleteDataset)
			r.Get("/layout", s.GetLayout)
			r.Get("/path", s.GetPath)
			r.Get("/ranking", s.GetRanking)
			r.Post("/view", s.PostView)
			r.With(s.briefLimiter.Middleware).Post("/nodes/{nodeId}/brief", s.StreamBrief)
		})
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: report.Status,
		Checks: report.Checks,
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

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrNodeNotFound,
		domain.ErrInvalidDataset,
		domain.ErrInvalidSettings,
		domain.ErrInvalidRequest,
		domain.ErrRateLimited,
		domain.ErrLLMDisabled,
		domain.ErrLLMProviderError,
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

// validationHandler reports dataset and settings violations. Violations
// describe the client's own input, so they are safe to echo back.
func validationHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrInvalidDataset) && !errors.Is(err, domain.ErrInvalidSettings) {
		return false
	}
	resp := ErrorResponse{Code: ErrorCodeValidationFailed, Message: msg}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Violations = ve.Violations
	}
	writeJSON(w, http.StatusBadRequest, resp)
	return true
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
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

// errorBody builds the body handleDomainError would send, for use after a
// stream has already started and the status line is gone.
func (s *Server) errorBody(err error) ErrorResponse {
	rec := &bodyRecorder{header: http.Header{}}
	s.handleDomainError(rec, err)
	var resp ErrorResponse
	_ = json.Unmarshal(rec.body, &resp)
	return resp
}

type bodyRecorder struct {
	header http.Header
	body   []byte
}

func (b *bodyRecorder) Header() http.Header { return b.header }

func (b *bodyRecorder) Write(p []byte) (int, error) {
	b.body = append(b.body, p...)
	return len(p), nil
}

func (b *bodyRecorder) WriteHeader(int) {}

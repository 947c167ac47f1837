package httpadapter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analyzer computes a report for one job synchronously.
type Analyzer interface {
	Analyze(ctx context.Context, job domain.AnalysisJob) (domain.CompoundnessReport, error)
}

// Server exposes health, readiness, metrics, and on-demand analysis endpoints.
type Server struct {
	httpServer *http.Server
	analyzer   Analyzer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics
// routes. When analyzer is non-nil, POST /v1/compoundness runs a job inline.
func NewServer(addr string, ready sharedobs.ReadinessChecker, analyzer Analyzer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Strict analysis materializes three full runs.
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		analyzer: analyzer,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if analyzer != nil {
		mux.HandleFunc("POST /v1/compoundness", s.handleAnalyze)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	job, err := domain.ParseAnalysisJob(domain.RawEvent{Value: body})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rep, err := s.analyzer.Analyze(r.Context(), job)
	if err != nil {
		s.logger.Warn("analysis failed", "job_id", job.ID, "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, rep)
}

// statusFor maps analysis failures onto HTTP status codes. Integrity and
// precondition failures describe the input files, not the request.
func statusFor(err error) int {
	switch domain.ErrorKind(err) {
	case "invalid_job":
		return http.StatusBadRequest
	case "duplicate_timestamp", "non_uniform_sampling", "missing_value", "negative_value", "alignment", "shape":
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  domain.ErrorKind(err),
	})
}

package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analytics is the read-side service behind the /api routes.
type Analytics interface {
	QueryRange(ctx context.Context, q domain.RangeQuery) (domain.QueryResult, error)
	SummaryStats(ctx context.Context) (map[string]domain.FieldSummary, error)
	DetectOutliers(ctx context.Context, field string, m domain.Method) (domain.OutlierResult, error)
}

// Server exposes the observation API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	analytics  Analytics
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API, /healthz, /readyz, and
// /metrics routes.
func NewServer(addr string, analytics Analytics, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	s := &Server{
		analytics: analytics,
		validate:  validator.New(),
		logger:    logger,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(ready),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes(ready sharedobs.ReadinessChecker) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/", s.handleAPIStatus)
		r.Get("/observations", s.handleObservations)
		r.Get("/stats", s.handleStats)
		r.Get("/outliers", s.handleOutliers)
	})
	return r
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

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

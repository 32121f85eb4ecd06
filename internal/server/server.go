// Package server exposes the audit store and analytics engine over HTTP.
// Creating an audit only records and enqueues it; the query work happens
// in the Temporal worker or, without a cluster, on an in-process
// goroutine. Analytics reads go through the Redis cache when one is
// configured.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/audit"
	"github.com/halosight/presence-cli/internal/cache"
	"github.com/halosight/presence-cli/internal/config"
	"github.com/halosight/presence-cli/internal/metrics"
	"github.com/halosight/presence-cli/internal/store"
)

// shutdownGrace bounds how long in-flight requests get to finish after
// the serve context is cancelled.
const shutdownGrace = 10 * time.Second

// Enqueuer hands a created audit off for execution. The Temporal
// enqueuer and the in-process InlineEnqueuer both satisfy it.
type Enqueuer interface {
	Enqueue(ctx context.Context, auditID string) (string, error)
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	store    store.Store
	auditCfg config.AuditConfig
	analyzer *analytics.Analyzer
	cache    *cache.Cache
	enqueuer Enqueuer
	origins  []string
}

// Option configures a Server.
type Option func(*Server)

// WithCache serves analytics responses from the given cache before
// touching the store.
func WithCache(c *cache.Cache) Option {
	return func(s *Server) { s.cache = c }
}

// WithEnqueuer hands newly created audits to the given enqueuer. Without
// one, audits stay queued until something else runs them.
func WithEnqueuer(e Enqueuer) Option {
	return func(s *Server) { s.enqueuer = e }
}

// WithAnalyzer overrides the analyzer used when a completed audit has no
// stored analytics result.
func WithAnalyzer(a *analytics.Analyzer) Option {
	return func(s *Server) { s.analyzer = a }
}

// WithCORS sets the allowed CORS origins.
func WithCORS(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New creates a Server over the given store. The audit config supplies
// platform defaults for audits created without an explicit platform list.
func New(st store.Store, auditCfg config.AuditConfig, opts ...Option) *Server {
	s := &Server{
		store:    st,
		auditCfg: auditCfg,
		analyzer: analytics.New(),
		origins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/entities", s.handleListEntities)
		r.Post("/entities", s.handleCreateEntity)
		r.Get("/audits", s.handleListAudits)
		r.Post("/audits", s.handleCreateAudit)
		r.Get("/audits/{id}", s.handleGetAudit)
		r.Get("/audits/{id}/analytics", s.handleGetAnalytics)
	})

	return r
}

// observe records per-route request durations. The route pattern is only
// known after routing, so the lookup happens once the handler returns.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

// Start listens on the given port until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// InlineEnqueuer runs audits on in-process goroutines, for deployments
// without a Temporal cluster. Execution is detached from the request
// context so an aborted request doesn't kill the audit.
type InlineEnqueuer struct {
	exec *audit.Executor
}

// NewInlineEnqueuer wraps an executor for inline audit execution.
func NewInlineEnqueuer(exec *audit.Executor) *InlineEnqueuer {
	return &InlineEnqueuer{exec: exec}
}

// Enqueue starts the audit on a new goroutine and returns immediately.
func (q *InlineEnqueuer) Enqueue(_ context.Context, auditID string) (string, error) {
	go func() {
		if err := q.exec.Run(context.Background(), auditID); err != nil {
			zap.L().Error("inline audit run failed",
				zap.String("audit_id", auditID),
				zap.Error(err),
			)
		}
	}()
	return auditID, nil
}

// Package restapi implements the optional online-serving mode: a
// JWT-authenticated, rate-limited, metrics-instrumented HTTP server
// exposing ad-hoc batch queries against a pre-built dispatcher. There
// is no vector-CRUD surface — the dispatcher is immutable once built.
package restapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sigmod24/hybridann/internal/dispatcher"
	"github.com/sigmod24/hybridann/pkg/obs"
	"github.com/sigmod24/hybridann/pkg/restapi/middleware"
)

// Config holds the REST server's own tunables plus its middleware configs.
type Config struct {
	Host      string
	Port      int
	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig
}

// Server serves queries against a fixed, already-built Dispatcher.
type Server struct {
	config     Config
	handler    *Handler
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer builds a Server that answers queries against d.
func NewServer(config Config, d *dispatcher.Dispatcher, metrics *obs.Metrics) *Server {
	s := &Server{
		config:  config,
		handler: NewHandler(d, metrics),
		mux:     http.NewServeMux(),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.withMiddleware(s.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/healthz", s.handler.HealthCheck)
	s.mux.HandleFunc("/v1/query", s.handler.Query)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	handler = loggingMiddleware(handler)

	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit)
	handler = middleware.RateLimitMiddleware(rateLimiter)(handler)

	handler = middleware.AuthMiddleware(s.config.Auth)(handler)

	return handler
}

// Start blocks serving HTTP until Stop is called or a fatal error occurs.
func (s *Server) Start() error {
	obs.Infof("starting rest api server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("rest api server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	obs.Info("shutting down rest api server")
	return s.httpServer.Shutdown(ctx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		obs.Infof("%s %s %d %v", r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

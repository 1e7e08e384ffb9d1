// Package server hosts HTTP services that report their failures.
//
// The middleware chain installed by New is, outermost first:
//
//  1. RequestIDMiddleware, generating the X-Request-ID
//  2. LoggingMiddleware, one structured line per request
//  3. TimeoutMiddleware
//  4. chi's Recoverer, turning panics into 500 responses
//  5. ReportingMiddleware, reporting 500s and panics before Recoverer sees them
//  6. OpenTelemetry instrumentation
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultRequestTimeout bounds each request's context.
const DefaultRequestTimeout = 30 * time.Second

type Server struct {
	Router     *chi.Mux
	Port       int
	logger     *slog.Logger
	httpServer *http.Server
}

// New builds a router with the standard middleware chain. A nil reporter
// leaves failure reporting out of the chain.
func New(port int, logger *slog.Logger, reporter FailureReporter) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(DefaultRequestTimeout))
	r.Use(middleware.Recoverer)

	if reporter != nil {
		r.Use(ReportingMiddleware(reporter))
	}

	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "eussiror")
	})

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
	}
}

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting server", slog.Int("port", s.Port))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tjfontaine/eussiror/internal/config"
	"github.com/tjfontaine/eussiror/internal/metrics"
	"github.com/tjfontaine/eussiror/internal/reporter"
	"github.com/tjfontaine/eussiror/internal/server"
	"github.com/tjfontaine/eussiror/internal/telemetry"
	"github.com/tjfontaine/eussiror/internal/tracker"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the eussiror configuration file")
	port := flag.Int("port", 8080, "port to listen on")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer(telemetry.Options{
		ServiceName:    "eussiror-demo",
		ServiceVersion: tracker.Version,
		Output:         os.Stderr,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	store := config.NewStore(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(*configPath); err == nil {
		if err := config.Watch(ctx, *configPath, store, logger); err != nil {
			logger.Warn("config hot-reload disabled", slog.String("error", err.Error()))
		}
	}

	rep := reporter.New(store)
	srv := server.New(*port, logger, rep)
	registerRoutes(srv)

	logger.Info("reporting configured",
		slog.String("environment", config.CurrentEnvironment()),
		slog.Bool("enabled", cfg.ReportingEnabled(config.CurrentEnvironment())),
		slog.String("repository", cfg.Repository))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, stopping server...")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}
	// let background reports reach GitHub before exiting
	rep.Wait()

	logger.Info("Server shutdown complete")
}

// stockError is reported under its own kind even when wrapped.
type stockError struct {
	sku string
}

func (e *stockError) Error() string {
	return "inventory returned an inconsistent count for " + e.sku
}

func registerRoutes(srv *server.Server) {
	srv.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv.Router.Handle("/metrics", promhttp.Handler())

	// Panics are recovered into a 500 and reported.
	srv.Router.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		var orders []string
		fmt.Fprint(w, orders[len(r.URL.Query())+1])
	})

	// Handled errors are reported when recorded before writing the 500.
	srv.Router.Get("/fail", func(w http.ResponseWriter, r *http.Request) {
		err := fmt.Errorf("reserve stock: %w", &stockError{sku: "A-17"})
		server.RecordFailure(r.Context(), err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	// Client errors are never reported.
	srv.Router.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
}

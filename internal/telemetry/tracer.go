// Package telemetry wires OpenTelemetry tracing for hosts and the demo.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Options controls InitTracer.
type Options struct {
	ServiceName    string
	ServiceVersion string
	// Output receives the exported spans. Defaults to stdout.
	Output io.Writer
	// PrettyPrint indents the exported JSON.
	PrettyPrint bool
}

// NewTracerProvider builds a provider exporting spans as JSON to opts.Output.
// Spans are exported synchronously so they are visible as soon as they end.
func NewTracerProvider(opts Options) (*sdktrace.TracerProvider, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	exporterOpts := []stdouttrace.Option{stdouttrace.WithWriter(out)}
	if opts.PrettyPrint {
		exporterOpts = append(exporterOpts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	), nil
}

// InitTracer installs a stdout tracer provider as the global provider.
func InitTracer(opts Options, logger *slog.Logger) (ShutdownFunc, error) {
	tp, err := NewTracerProvider(opts)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)

	if logger != nil {
		logger.Info("OpenTelemetry initialized", slog.String("service", opts.ServiceName))
	}

	return tp.Shutdown, nil
}

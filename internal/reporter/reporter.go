// Package reporter turns captured failures into GitHub issues.
//
// Report evaluates the guards (credentials, active environment, ignored
// kinds), then either processes the failure inline or hands it to a
// background goroutine. Processing fingerprints the failure, looks for an
// open issue carrying that fingerprint and either comments on it or opens a
// new one. Nothing that goes wrong in here ever reaches the caller; problems
// are written as a single "[eussiror]" diagnostic line instead.
//
// Concurrent reports of the same fingerprint are not coordinated. Two of them
// may both open an issue, or one may miss an issue the other is still creating.
package reporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/eussiror/internal/config"
	"github.com/tjfontaine/eussiror/internal/failure"
	"github.com/tjfontaine/eussiror/internal/fingerprint"
	"github.com/tjfontaine/eussiror/internal/metrics"
	"github.com/tjfontaine/eussiror/internal/tracker"
)

// DiagnosticPrefix starts every diagnostic line.
const DiagnosticPrefix = "[eussiror]"

const tracerName = "github.com/tjfontaine/eussiror/internal/reporter"

// Tracker is the part of the GitHub client the reporter depends on.
type Tracker interface {
	FindIssue(ctx context.Context, fingerprint string) (tracker.IssueNumber, bool, error)
	CreateIssue(ctx context.Context, req tracker.IssueRequest) (tracker.IssueNumber, error)
	AddComment(ctx context.Context, number tracker.IssueNumber, body string) (tracker.CommentID, error)
}

// TrackerFactory builds the tracker used for one report.
type TrackerFactory func(cfg *config.Config) Tracker

// NewTracker builds a GitHub client from cfg.
func NewTracker(cfg *config.Config) Tracker {
	return tracker.NewClient(cfg.Token, cfg.Repository,
		tracker.WithBaseURL(cfg.APIBaseURL),
		tracker.WithHTTPClient(tracker.NewHTTPClient(cfg.Timeout)),
	)
}

// NewDiagnosticLogger returns the logger used for swallowed failures. Every
// line it writes starts with DiagnosticPrefix and carries no timestamp:
//
//	[eussiror] level=ERROR msg="failed to report failure to GitHub" kind=... status=422
func NewDiagnosticLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(&prefixWriter{w: w}, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// prefixWriter prepends DiagnosticPrefix to each write. slog handlers write
// one record per call.
type prefixWriter struct {
	w io.Writer
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	line := make([]byte, 0, len(DiagnosticPrefix)+1+len(b))
	line = append(line, DiagnosticPrefix...)
	line = append(line, ' ')
	line = append(line, b...)
	if _, err := p.w.Write(line); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets the diagnostic logger. Defaults to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTrackerFactory replaces the GitHub client construction.
func WithTrackerFactory(factory TrackerFactory) Option {
	return func(r *Reporter) {
		if factory != nil {
			r.newTracker = factory
		}
	}
}

// WithKinds sets the registry used to resolve ignored kinds.
func WithKinds(kinds *failure.Registry) Option {
	return func(r *Reporter) {
		if kinds != nil {
			r.kinds = kinds
		}
	}
}

// WithEnvironment pins the runtime environment name.
func WithEnvironment(name string) Option {
	return WithEnvironmentFunc(func() string { return name })
}

// WithEnvironmentFunc sets how the runtime environment name is determined.
// Defaults to config.CurrentEnvironment.
func WithEnvironmentFunc(fn func() string) Option {
	return func(r *Reporter) {
		if fn != nil {
			r.environment = fn
		}
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// Reporter is the single entry point hosts hand failures to.
type Reporter struct {
	store       *config.Store
	kinds       *failure.Registry
	newTracker  TrackerFactory
	logger      *slog.Logger
	tracer      trace.Tracer
	environment func() string
	now         func() time.Time

	mu      sync.Mutex
	idle    *sync.Cond
	pending int
}

// New creates a Reporter reading its guards from store.
func New(store *config.Store, opts ...Option) *Reporter {
	if store == nil {
		store = config.NewStore(nil)
	}
	r := &Reporter{
		store:       store,
		kinds:       failure.DefaultRegistry(),
		newTracker:  NewTracker,
		logger:      NewDiagnosticLogger(os.Stderr),
		tracer:      otel.Tracer(tracerName),
		environment: config.CurrentEnvironment,
		now:         time.Now,
	}
	r.idle = sync.NewCond(&r.mu)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the store the reporter reads from.
func (r *Reporter) Config() *config.Store {
	return r.store
}

// Kinds returns the kind registry used for the ignore check.
func (r *Reporter) Kinds() *failure.Registry {
	return r.kinds
}

// Report files ev. It returns once the guards are evaluated and, in
// synchronous mode, the tracker calls are done. It never panics.
//
// The tracker calls run on a context that keeps ctx's values but not its
// cancellation, so a finished or timed-out request does not abort its own report.
func (r *Reporter) Report(ctx context.Context, ev failure.Event, rc failure.RequestContext) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("report raised an unexpected error",
				slog.String("panic", fmt.Sprint(v)))
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}

	cfg := r.store.Get()

	if !cfg.ReportingEnabled(r.environment()) {
		metrics.ObserveReport(metrics.OutcomeSkipped)
		return
	}
	if r.kinds.Matches(ev.Kind(), cfg.IgnoredKinds) {
		metrics.ObserveReport(metrics.OutcomeIgnored)
		return
	}

	ctx = context.WithoutCancel(ctx)

	if !cfg.Async {
		r.process(ctx, ev, rc, cfg)
		return
	}

	r.mu.Lock()
	r.pending++
	r.mu.Unlock()
	go func() {
		defer r.done()
		r.process(ctx, ev, rc, cfg)
	}()
}

// Wait blocks until no background report is running. It is safe to call
// while Report is still being called; reports started before Wait returns
// are waited for too, so hosts normally call it after their server stopped.
func (r *Reporter) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.pending > 0 {
		r.idle.Wait()
	}
}

func (r *Reporter) done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending--
	if r.pending == 0 {
		r.idle.Broadcast()
	}
}

func (r *Reporter) process(ctx context.Context, ev failure.Event, rc failure.RequestContext, cfg *config.Config) {
	ctx, span := r.tracer.Start(ctx, "eussiror.report",
		trace.WithAttributes(attribute.String("eussiror.failure.kind", ev.Kind())))
	defer span.End()

	defer func() {
		if v := recover(); v != nil {
			err := fmt.Errorf("panic: %v", v)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.ObserveReport(metrics.OutcomeFailed)
			r.logger.Error("failed to report failure to GitHub",
				slog.String("kind", ev.Kind()),
				slog.String("error", err.Error()))
		}
	}()

	outcome, err := r.deliver(ctx, span, ev, rc, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveReport(metrics.OutcomeFailed)

		attrs := []any{
			slog.String("kind", ev.Kind()),
			slog.String("error", err.Error()),
		}
		if apiErr, ok := tracker.IsAPIError(err); ok {
			attrs = append(attrs, slog.Int("status", apiErr.StatusCode))
		}
		r.logger.Error("failed to report failure to GitHub", attrs...)
		return
	}

	span.SetAttributes(attribute.String("eussiror.outcome", outcome))
	metrics.ObserveReport(outcome)
}

// deliver looks up the fingerprint and comments or creates. It returns the
// metrics outcome on success.
func (r *Reporter) deliver(ctx context.Context, span trace.Span, ev failure.Event, rc failure.RequestContext, cfg *config.Config) (string, error) {
	fp := fingerprint.New(cfg.LibraryPatterns...).Compute(ev)
	span.SetAttributes(attribute.String("eussiror.fingerprint", fp))

	client := r.newTracker(cfg)
	now := r.now()

	number, found, err := client.FindIssue(ctx, fp)
	if err != nil {
		return "", fmt.Errorf("find issue: %w", err)
	}

	if found {
		span.SetAttributes(attribute.Int("eussiror.issue", int(number)))
		if _, err := client.AddComment(ctx, number, OccurrenceComment(now)); err != nil {
			return "", fmt.Errorf("comment on issue #%d: %w", number, err)
		}
		return metrics.OutcomeCommented, nil
	}

	created, err := client.CreateIssue(ctx, tracker.IssueRequest{
		Title:     IssueTitle(ev),
		Body:      IssueBody(ev, rc, fp, now),
		Labels:    cfg.Labels,
		Assignees: cfg.Assignees,
	})
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	span.SetAttributes(attribute.Int("eussiror.issue", int(created)))
	return metrics.OutcomeCreated, nil
}

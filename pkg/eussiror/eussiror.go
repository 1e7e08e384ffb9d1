// Package eussiror is the public API for embedding the failure reporter.
// This is the stable API for external consumers.
//
// Most hosts only need the package-level helpers, which share one
// process-wide reporter:
//
//	eussiror.Configure(func(c *eussiror.Config) {
//	    c.Token = os.Getenv("GITHUB_TOKEN")
//	    c.Repository = "owner/app"
//	})
//	router.Use(eussiror.Middleware)
package eussiror

import (
	"context"
	"net/http"
	"sync"

	"github.com/tjfontaine/eussiror/internal/config"
	"github.com/tjfontaine/eussiror/internal/failure"
	"github.com/tjfontaine/eussiror/internal/reporter"
	"github.com/tjfontaine/eussiror/internal/server"
	"github.com/tjfontaine/eussiror/internal/tracker"
)

// Version of the library, also sent in the GitHub User-Agent.
const Version = tracker.Version

// Reporter files failures as GitHub issues.
// See internal/reporter.Reporter for full documentation.
type Reporter = reporter.Reporter

// Option is a functional option for configuring a Reporter.
type Option = reporter.Option

// Config holds the guard configuration.
type Config = config.Config

// Store holds a replaceable Config.
type Store = config.Store

// Tracker is the issue tracker a Reporter files into.
type Tracker = reporter.Tracker

// Event is a captured failure.
type Event = failure.Event

// RequestContext describes the request that failed.
type RequestContext = failure.RequestContext

// New creates a Reporter reading from store. Example:
//
//	store := eussiror.NewStore(nil)
//	rep := eussiror.New(store, eussiror.WithEnvironment("production"))
var New = reporter.New

// Construction helpers
var (
	NewStore            = config.NewStore
	LoadConfig          = config.Load
	DefaultConfig       = config.Default
	NewEvent            = failure.NewEvent
	FromError           = failure.FromError
	FromPanic           = failure.FromPanic
	WatchConfig         = config.Watch
	WriteSample         = config.WriteSample
	RecordFailure       = server.RecordFailure
	ReportingMiddleware = server.ReportingMiddleware
)

// Reporter options
var (
	WithLogger          = reporter.WithLogger
	WithTrackerFactory  = reporter.WithTrackerFactory
	WithKinds           = reporter.WithKinds
	WithEnvironment     = reporter.WithEnvironment
	WithEnvironmentFunc = reporter.WithEnvironmentFunc
	WithClock           = reporter.WithClock
)

var (
	defaultOnce     sync.Once
	defaultReporter *reporter.Reporter
)

// Default returns the process-wide reporter, creating it on first use.
func Default() *Reporter {
	defaultOnce.Do(func() {
		defaultReporter = reporter.New(config.NewStore(nil))
	})
	return defaultReporter
}

// Configure edits the process-wide configuration.
func Configure(fn func(*Config)) {
	Default().Config().Configure(fn)
}

// CurrentConfig returns a copy of the process-wide configuration.
func CurrentConfig() *Config {
	return Default().Config().Get()
}

// Reset restores the process-wide configuration to its defaults.
func Reset() {
	Default().Config().Reset()
}

// Report captures err with the caller's stack and hands it to the
// process-wide reporter. A nil err is ignored.
func Report(ctx context.Context, err error, rc RequestContext) {
	if err == nil {
		return
	}
	Default().Report(ctx, failure.FromError(err, 1), rc)
}

// Wait blocks until background reports of the process-wide reporter finish.
func Wait() {
	Default().Wait()
}

// Middleware reports 500 responses and panics of next through the
// process-wide reporter.
func Middleware(next http.Handler) http.Handler {
	return server.ReportingMiddleware(Default())(next)
}

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tjfontaine/eussiror/internal/failure"
	"github.com/tjfontaine/eussiror/internal/server"
)

type countingReporter struct {
	mu    sync.Mutex
	kinds []string
}

func (c *countingReporter) Report(_ context.Context, ev failure.Event, _ failure.RequestContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds = append(c.kinds, ev.Kind())
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		path       string
		wantStatus int
		wantKind   string
	}{
		{path: "/healthz", wantStatus: http.StatusOK},
		{path: "/missing", wantStatus: http.StatusNotFound},
		{path: "/fail", wantStatus: http.StatusInternalServerError, wantKind: "main.stockError"},
		{path: "/boom", wantStatus: http.StatusInternalServerError, wantKind: "runtime.boundsError"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rep := &countingReporter{}
			srv := server.New(0, slog.New(slog.NewTextHandler(io.Discard, nil)), rep)
			registerRoutes(srv)

			rec := httptest.NewRecorder()
			srv.Router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			switch {
			case tt.wantKind == "" && len(rep.kinds) != 0:
				t.Errorf("reported %v, want nothing", rep.kinds)
			case tt.wantKind != "" && (len(rep.kinds) != 1 || rep.kinds[0] != tt.wantKind):
				t.Errorf("reported %v, want [%s]", rep.kinds, tt.wantKind)
			}
		})
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/viewexport/pkg/config"
	"mercator-hq/viewexport/pkg/history"
	"mercator-hq/viewexport/pkg/telemetry/health"
	"mercator-hq/viewexport/pkg/telemetry/metrics"
)

type fakeRuns struct {
	runs  []history.Run
	err   error
	limit int
}

func (f *fakeRuns) Recent(ctx context.Context, limit int) ([]history.Run, error) {
	f.limit = limit
	return f.runs, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestServer(t *testing.T, deps Dependencies) *httptest.Server {
	t.Helper()
	srv := New(Config{ListenAddress: "127.0.0.1:0"}, deps, discardLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestServer_Metrics(t *testing.T) {
	collector := metrics.NewCollector(config.MetricsConfig{Enabled: true, Namespace: "viewexport"}, nil)
	collector.ObservePage("account", 10, 50*time.Millisecond)

	ts := newTestServer(t, Dependencies{Metrics: collector.Handler()})

	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, `viewexport_records_total{entity="account"} 10`) {
		t.Errorf("metrics body missing records counter:\n%s", body)
	}
}

func TestServer_Healthz(t *testing.T) {
	checker := health.New(time.Second)
	failing := errors.New("view not found")
	var unhealthy atomic.Bool
	checker.RegisterCheck("last_run", func(context.Context) error {
		if !unhealthy.Load() {
			return nil
		}
		return failing
	})

	ts := newTestServer(t, Dependencies{Health: checker})

	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthy status = %d, want 200; body %s", resp.StatusCode, body)
	}

	unhealthy.Store(true)
	resp, body = get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("degraded status = %d, want 503", resp.StatusCode)
	}
	var status health.HealthStatus
	if err := json.Unmarshal([]byte(body), &status); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if status.Status != health.StatusDegraded {
		t.Errorf("status = %q, want degraded", status.Status)
	}
	if got := status.Checks["last_run"].Message; got != "view not found" {
		t.Errorf("last_run message = %q", got)
	}

	resp, _ = get(t, ts.URL+"/livez")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("livez status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_Version(t *testing.T) {
	ts := newTestServer(t, Dependencies{Version: health.NewVersionInfo("1.2.3", "abc123", "2026-01-01")})

	resp, body := get(t, ts.URL+"/version")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var info health.VersionInfo
	if err := json.Unmarshal([]byte(body), &info); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" {
		t.Errorf("version info = %+v", info)
	}
}

func TestServer_Runs(t *testing.T) {
	started := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	runs := &fakeRuns{runs: []history.Run{{
		RunID:      "run-1",
		Entity:     "account",
		View:       "Active Accounts",
		Status:     "success",
		Records:    12,
		Pages:      1,
		Columns:    []string{"name", "accountnumber"},
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	}}}

	ts := newTestServer(t, Dependencies{Runs: runs})

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
	}{
		{name: "default limit", query: "", wantCode: http.StatusOK, wantLimit: history.DefaultLimit},
		{name: "explicit limit", query: "?limit=5", wantCode: http.StatusOK, wantLimit: 5},
		{name: "capped limit", query: "?limit=100000", wantCode: http.StatusOK, wantLimit: maxRunsLimit},
		{name: "invalid limit", query: "?limit=abc", wantCode: http.StatusBadRequest},
		{name: "zero limit", query: "?limit=0", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs.limit = 0
			resp, body := get(t, ts.URL+"/runs"+tt.query)
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if runs.limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", runs.limit, tt.wantLimit)
			}

			var out struct {
				Runs []runView `json:"runs"`
			}
			if err := json.Unmarshal([]byte(body), &out); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if len(out.Runs) != 1 {
				t.Fatalf("got %d runs, want 1", len(out.Runs))
			}
			got := out.Runs[0]
			if got.RunID != "run-1" || got.Columns != 2 || got.DurationMS != 1500 {
				t.Errorf("run = %+v", got)
			}
		})
	}
}

func TestServer_RunsError(t *testing.T) {
	ts := newTestServer(t, Dependencies{Runs: &fakeRuns{err: errors.New("database is locked")}})

	resp, body := get(t, ts.URL+"/runs")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if strings.Contains(body, "locked") {
		t.Errorf("internal error leaked to the client: %q", body)
	}
}

func TestServer_UnregisteredRoutes(t *testing.T) {
	ts := newTestServer(t, Dependencies{})

	for _, path := range []string{"/metrics", "/healthz", "/runs", "/nope"} {
		resp, _ := get(t, ts.URL+path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestServer_StartShutdown(t *testing.T) {
	srv := New(Config{ListenAddress: "127.0.0.1:0"}, Dependencies{}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.Addr() == nil {
		t.Fatal("server did not start")
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false after start")
	}

	resp, _ := get(t, "http://"+srv.Addr().String()+"/version")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("version status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestServer_StartInvalidAddress(t *testing.T) {
	srv := New(Config{ListenAddress: "256.0.0.1:99999"}, Dependencies{}, discardLogger())
	if err := srv.Start(context.Background()); err == nil {
		t.Error("Start() with an invalid address succeeded")
	}
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/viewexport/pkg/config"
	"mercator-hq/viewexport/pkg/export"
)

var _ export.Metrics = (*Collector)(nil)

func testConfig() config.MetricsConfig {
	return config.MetricsConfig{Enabled: true, Namespace: "test"}
}

func TestCollector_ObservePage(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.ObservePage("account", 5000, 200*time.Millisecond)
	collector.ObservePage("account", 12, 50*time.Millisecond)
	collector.ObservePage("contact", 3, 10*time.Millisecond)

	if got := testutil.ToFloat64(collector.pageMetrics.pagesTotal.WithLabelValues("account")); got != 2 {
		t.Errorf("pages_total{account} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.pageMetrics.recordsTotal.WithLabelValues("account")); got != 5012 {
		t.Errorf("records_total{account} = %v, want 5012", got)
	}
	if got := testutil.CollectAndCount(collector.pageMetrics.pageDuration); got != 2 {
		t.Errorf("page_duration_seconds series = %d, want 2", got)
	}
}

func TestCollector_ObserveRun(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	before := time.Now().Unix()
	collector.ObserveRun("account", "success", 10, time.Second)
	collector.ObserveRun("account", "failure", 0, time.Second)
	collector.ObserveRun("account", "failure", 0, time.Second)

	if got := testutil.ToFloat64(collector.runMetrics.runsTotal.WithLabelValues("account", "failure")); got != 2 {
		t.Errorf("runs_total{failure} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.runMetrics.runsTotal.WithLabelValues("account", "success")); got != 1 {
		t.Errorf("runs_total{success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.runMetrics.lastSuccess.WithLabelValues("account")); got < float64(before) {
		t.Errorf("last_success_timestamp_seconds = %v, want >= %d", got, before)
	}
}

func TestCollector_LabelFallback(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.LabelFallback("account")

	expected := `
# HELP test_label_fallbacks_total Option set values exported as numeric codes because no label was found
# TYPE test_label_fallbacks_total counter
test_label_fallbacks_total{entity="account"} 1
`
	if err := testutil.CollectAndCompare(collector.pageMetrics.labelFallbacks, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.ObservePage("account", 10, time.Second)
	collector.ObserveRun("account", "success", 10, time.Second)
	collector.LabelFallback("account")

	if got := testutil.CollectAndCount(collector.pageMetrics.pagesTotal); got != 0 {
		t.Errorf("disabled collector recorded %d page series", got)
	}
	if got := testutil.CollectAndCount(collector.runMetrics.runsTotal); got != 0 {
		t.Errorf("disabled collector recorded %d run series", got)
	}
}

func TestCollector_DefaultNamespace(t *testing.T) {
	collector := NewCollector(config.MetricsConfig{Enabled: true}, nil)
	collector.ObservePage("account", 1, time.Millisecond)

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "viewexport_pages_total" {
			found = true
		}
	}
	if !found {
		t.Error("viewexport_pages_total not registered")
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.ObserveRun("account", "success", 3, time.Second)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_runs_total{entity="account",status="success"} 1`) {
		t.Errorf("runs_total missing from scrape:\n%s", rec.Body.String())
	}
}

func TestCollector_WriteTextfile(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.ObservePage("account", 7, time.Second)

	path := filepath.Join(t.TempDir(), "textfile", "viewexport.prom")
	if err := collector.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	if !strings.Contains(string(data), `test_records_total{entity="account"} 7`) {
		t.Errorf("records_total missing from textfile:\n%s", data)
	}
}

func TestCollector_RegisterRuntime(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RegisterRuntime()

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "go_goroutines" {
			return
		}
	}
	t.Error("go runtime metrics not registered")
}

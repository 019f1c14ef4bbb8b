package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSimpleProgress_KnownTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Start(100)
	p.Update(50)
	if !strings.Contains(buf.String(), "50.0%") || !strings.Contains(buf.String(), "(50/100)") {
		t.Errorf("output = %q", buf.String())
	}

	p.Update(150)
	if !strings.Contains(buf.String(), "(100/100)") {
		t.Errorf("update past the total not capped: %q", buf.String())
	}

	p.Finish()
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("Finish() should end the line")
	}
}

func TestSimpleProgress_UnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Start(0)
	p.Update(5000)
	if !strings.Contains(buf.String(), "Exported: 5000 records") {
		t.Errorf("output = %q", buf.String())
	}
	p.Finish()
	if !strings.Contains(buf.String(), "Exported: 5000 records") {
		t.Errorf("Finish() lost the count: %q", buf.String())
	}
}

func TestSimpleProgress_Error(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Start(0)
	p.Error(errors.New("view not found"))
	if !strings.Contains(buf.String(), "Error: view not found") {
		t.Errorf("output = %q", buf.String())
	}
}

type countingMetrics struct {
	pages, runs, fallbacks int
}

func (m *countingMetrics) ObservePage(string, int, time.Duration)        { m.pages++ }
func (m *countingMetrics) ObserveRun(string, string, int, time.Duration) { m.runs++ }
func (m *countingMetrics) LabelFallback(string)                          { m.fallbacks++ }

type recordingProgress struct {
	updates []int64
}

func (r *recordingProgress) Start(int64)          {}
func (r *recordingProgress) Update(current int64) { r.updates = append(r.updates, current) }
func (r *recordingProgress) Finish()              {}
func (r *recordingProgress) Error(error)          {}

func TestProgressMetrics(t *testing.T) {
	inner := &countingMetrics{}
	reporter := &recordingProgress{}
	m := NewProgressMetrics(inner, reporter)

	m.ObservePage("account", 5000, time.Second)
	m.ObservePage("account", 1234, time.Second)
	m.LabelFallback("account")
	m.ObserveRun("account", "success", 6234, 2*time.Second)

	if len(reporter.updates) != 2 || reporter.updates[0] != 5000 || reporter.updates[1] != 6234 {
		t.Errorf("updates = %v, want [5000 6234]", reporter.updates)
	}
	if inner.pages != 2 || inner.runs != 1 || inner.fallbacks != 1 {
		t.Errorf("inner metrics = %+v", inner)
	}
}

func TestProgressMetrics_NilInner(t *testing.T) {
	reporter := &recordingProgress{}
	m := NewProgressMetrics(nil, reporter)

	m.ObservePage("account", 10, time.Millisecond)
	m.ObserveRun("account", "success", 10, time.Millisecond)
	m.LabelFallback("account")

	if len(reporter.updates) != 1 {
		t.Errorf("updates = %v", reporter.updates)
	}
}

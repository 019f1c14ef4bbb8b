package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"mercator-hq/viewexport/pkg/export"
)

// ProgressReporter reports progress for long-running operations.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

// SimpleProgress implements a simple text-based progress reporter. With an
// unknown total (zero) it shows a running count instead of a bar.
type SimpleProgress struct {
	mu      sync.Mutex
	total   int64
	current int64
	started time.Time
	writer  io.Writer
}

// NewProgressReporter creates a new progress reporter that writes to w.
// If w is nil, it defaults to os.Stderr so CSV on stdout stays clean.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{
		writer: w,
	}
}

// Start initializes the progress reporter with the total number of items.
func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = time.Now()

	p.render()
}

// Update updates the current progress.
func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total > 0 {
		current = min(current, p.total)
	}
	p.current = current
	p.render()
}

// Finish marks the progress as complete.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total > 0 {
		p.current = p.total
	}
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports an error during progress.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

func (p *SimpleProgress) render() {
	rate := 0.0
	if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}

	if p.total == 0 {
		fmt.Fprintf(p.writer, "\rExported: %d records %.1f rec/s", p.current, rate)
		return
	}

	percent := float64(p.current) / float64(p.total) * 100
	barWidth := 40
	filled := int(float64(barWidth) * percent / 100)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(p.writer, "\rProgress: [%s] %.1f%% (%d/%d) %.1f rec/s",
		bar, percent, p.current, p.total, rate)
}

// ProgressMetrics forwards pipeline measurements to an inner export.Metrics
// and advances a ProgressReporter after every page.
type ProgressMetrics struct {
	inner    export.Metrics
	reporter ProgressReporter

	mu      sync.Mutex
	records int64
}

// NewProgressMetrics wraps inner, which may be nil.
func NewProgressMetrics(inner export.Metrics, reporter ProgressReporter) *ProgressMetrics {
	return &ProgressMetrics{inner: inner, reporter: reporter}
}

// ObservePage implements export.Metrics.
func (p *ProgressMetrics) ObservePage(entity string, records int, duration time.Duration) {
	if p.inner != nil {
		p.inner.ObservePage(entity, records, duration)
	}

	p.mu.Lock()
	p.records += int64(records)
	total := p.records
	p.mu.Unlock()

	p.reporter.Update(total)
}

// ObserveRun implements export.Metrics.
func (p *ProgressMetrics) ObserveRun(entity, status string, records int, duration time.Duration) {
	if p.inner != nil {
		p.inner.ObserveRun(entity, status, records, duration)
	}
}

// LabelFallback implements export.Metrics.
func (p *ProgressMetrics) LabelFallback(entity string) {
	if p.inner != nil {
		p.inner.LabelFallback(entity)
	}
}

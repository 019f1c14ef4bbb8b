package export

import "time"

// Metrics receives pipeline measurements. The telemetry collector
// implements it; a nil Metrics records nothing.
type Metrics interface {
	ObservePage(entity string, records int, duration time.Duration)
	ObserveRun(entity, status string, records int, duration time.Duration)
	LabelFallback(entity string)
}

type nopMetrics struct{}

func (nopMetrics) ObservePage(string, int, time.Duration)        {}
func (nopMetrics) ObserveRun(string, string, int, time.Duration) {}
func (nopMetrics) LabelFallback(string)                          {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

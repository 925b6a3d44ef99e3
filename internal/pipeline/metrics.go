package pipeline

import "time"

// MetricsSink is the side-channel the runtime reports into after every
// completed or failed stage. It is injected, not inherited — no stage or
// base type owns metrics collection.
type MetricsSink interface {
	Observe(stage string, success bool, dur time.Duration, itemsProcessed int, err error)
}

// NoopMetricsSink discards every observation; used when no sink is wired.
type NoopMetricsSink struct{}

func (NoopMetricsSink) Observe(string, bool, time.Duration, int, error) {}

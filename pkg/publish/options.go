package publish

import (
	"time"

	"github.com/google/uuid"
)

// Option configures a run.
type Option func(*options)

type options struct {
	name         string
	runID        string
	stageTimeout time.Duration
	maxParallel  int
	metrics      Metrics
	report       *Report
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	return o
}

// WithName labels the run in logs, traces and the report.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithRunID sets the run identifier. A random UUID is used by default.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// WithStageTimeout bounds every stage invocation. The stage sees the
// deadline on its context. At the deadline the run fails and unwinds even if
// the stage has not returned; such a stage keeps running in the background
// until it notices its context is done. Commits and rollbacks are not bounded.
func WithStageTimeout(d time.Duration) Option {
	return func(o *options) {
		o.stageTimeout = d
	}
}

// WithMaxParallel bounds how many children of one group run at once in each
// stage Root. Zero means unbounded.
func WithMaxParallel(n int) Option {
	return func(o *options) {
		o.maxParallel = n
	}
}

// WithMetrics sets the run observer.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithReport fills r with the outcome of the run.
func WithReport(r *Report) Option {
	return func(o *options) {
		o.report = r
	}
}

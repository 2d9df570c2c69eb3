package publish

import "time"

// Metrics observes publish runs. A nil Metrics disables observation.
type Metrics interface {
	// ObserveStage records a stage function call.
	ObserveStage(stage string, duration time.Duration, err error)

	// ObserveCommit records the commit of a stage Root.
	ObserveCommit(stage string, duration time.Duration, err error)

	// ObserveRollback records the rollback of a stage Root.
	ObserveRollback(stage string, duration time.Duration, err error)

	// RecordRun records a finished run.
	RecordRun(outcome string, duration time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveStage(string, time.Duration, error)    {}
func (nopMetrics) ObserveCommit(string, time.Duration, error)   {}
func (nopMetrics) ObserveRollback(string, time.Duration, error) {}
func (nopMetrics) RecordRun(string, time.Duration)              {}

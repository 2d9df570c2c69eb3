package objectstore

import "time"

// Metrics observes object store operations. A nil Metrics disables
// observation.
type Metrics interface {
	// ObserveOperation records one call ("put", "get", "delete") and its
	// outcome. phase is "commit" or "rollback".
	ObserveOperation(operation, phase string, duration time.Duration, err error)

	// RecordBytes records bytes uploaded or captured for restore.
	RecordBytes(operation string, bytes int64)
}

func observeOperation(m Metrics, operation, phase string, start time.Time, err error) {
	if m != nil {
		m.ObserveOperation(operation, phase, time.Since(start), err)
	}
}

func recordBytes(m Metrics, operation string, n int64) {
	if m != nil && n > 0 {
		m.RecordBytes(operation, n)
	}
}

package filesystem

import "time"

// Metrics observes filesystem batches. A nil Metrics disables observation.
type Metrics interface {
	// ObserveBatch records one batch. phase is "commit" or "rollback".
	ObserveBatch(class, phase string, actions int, duration time.Duration, err error)
}

func observeBatch(m Metrics, class Class, phase string, actions int, duration time.Duration, err error) {
	if m != nil {
		m.ObserveBatch(class.String(), phase, actions, duration, err)
	}
}

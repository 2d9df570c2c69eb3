package publish

import (
	"time"

	puberrors "github.com/scott-wilson/publish/pkg/errors"
)

// Outcome is the final state of a run.
type Outcome string

const (
	// OutcomeSucceeded means every stage committed.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailed means the run failed and everything was rolled back.
	OutcomeFailed Outcome = "failed"
	// OutcomeRollbackFailed means at least one rollback failed. The targets
	// may need manual repair.
	OutcomeRollbackFailed Outcome = "rollback_failed"
)

// StageReport describes one stage of a run.
type StageReport struct {
	Stage        string        `json:"stage"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Transactions int           `json:"transactions"`
	Committed    bool          `json:"committed"`
	RolledBack   bool          `json:"rolled_back"`
	Error        string        `json:"error,omitempty"`
}

// Report describes a finished run.
type Report struct {
	RunID      string        `json:"run_id"`
	Name       string        `json:"name,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Outcome    Outcome       `json:"outcome"`
	Stages     []StageReport `json:"stages"`
	Err        error         `json:"-"`
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// stage returns the report entry for s, adding it when missing.
func (r *Report) stage(s Stage) *StageReport {
	name := s.String()
	for i := range r.Stages {
		if r.Stages[i].Stage == name {
			return &r.Stages[i]
		}
	}
	r.Stages = append(r.Stages, StageReport{Stage: name})
	return &r.Stages[len(r.Stages)-1]
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case puberrors.CodeOf(err) == puberrors.ErrRollback:
		return OutcomeRollbackFailed
	default:
		return OutcomeFailed
	}
}

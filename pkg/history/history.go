// Package history records finished publish runs so they can be listed and
// inspected after the process exits.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/scott-wilson/publish/pkg/publish"
)

// ErrNotFound is returned by Store.Get when no run has the requested id.
var ErrNotFound = errors.New("run not found")

// StageRecord is the persisted form of a publish.StageReport.
type StageRecord struct {
	Stage        string        `json:"stage" yaml:"stage"`
	StartedAt    time.Time     `json:"started_at" yaml:"started_at"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	Transactions int           `json:"transactions" yaml:"transactions"`
	Committed    bool          `json:"committed" yaml:"committed"`
	RolledBack   bool          `json:"rolled_back" yaml:"rolled_back"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Record is one finished run.
type Record struct {
	ID         string        `json:"id" yaml:"id"`
	Name       string        `json:"name,omitempty" yaml:"name,omitempty"`
	Manifest   string        `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Outcome    string        `json:"outcome" yaml:"outcome"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Stages     []StageRecord `json:"stages" yaml:"stages"`
}

// Duration returns the wall time of the run.
func (r Record) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// FromReport converts a run report into a Record. name overrides the report
// name when non-empty.
func FromReport(name, manifestPath string, rep *publish.Report) Record {
	rec := Record{
		ID:         rep.RunID,
		Name:       rep.Name,
		Manifest:   manifestPath,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Outcome:    string(rep.Outcome),
		Stages:     make([]StageRecord, 0, len(rep.Stages)),
	}
	if name != "" {
		rec.Name = name
	}
	if rep.Err != nil {
		rec.Error = rep.Err.Error()
	}
	for _, s := range rep.Stages {
		rec.Stages = append(rec.Stages, StageRecord(s))
	}
	return rec
}

// Store persists run records.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores rec, replacing any record with the same id.
	Put(ctx context.Context, rec Record) error

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// List returns up to limit records, newest first. A limit <= 0 returns
	// every record.
	List(ctx context.Context, limit int) ([]Record, error)

	// Close releases the store.
	Close() error
}

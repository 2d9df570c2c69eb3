package history

import (
	"errors"
	"testing"
	"time"

	"github.com/scott-wilson/publish/pkg/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromReport(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rep := &publish.Report{
		RunID:      "run-1",
		Name:       "from-report",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Outcome:    publish.OutcomeFailed,
		Stages: []publish.StageReport{
			{Stage: "pre_publish", Committed: true, RolledBack: true, Transactions: 1},
			{Stage: "publish", Error: "boom", RolledBack: true},
		},
		Err: errors.New("boom"),
	}

	rec := FromReport("", "/work/asset.yaml", rep)
	assert.Equal(t, "run-1", rec.ID)
	assert.Equal(t, "from-report", rec.Name)
	assert.Equal(t, "/work/asset.yaml", rec.Manifest)
	assert.Equal(t, "failed", rec.Outcome)
	assert.Equal(t, "boom", rec.Error)
	assert.Equal(t, 3*time.Second, rec.Duration())
	require.Len(t, rec.Stages, 2)
	assert.True(t, rec.Stages[0].Committed)
	assert.Equal(t, "boom", rec.Stages[1].Error)

	assert.Equal(t, "override", FromReport("override", "", rep).Name)
}

func TestFromReportSucceeded(t *testing.T) {
	rec := FromReport("", "", &publish.Report{RunID: "r", Outcome: publish.OutcomeSucceeded})
	assert.Empty(t, rec.Error)
	assert.NotNil(t, rec.Stages)
}

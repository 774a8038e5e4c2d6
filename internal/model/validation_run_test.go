package model

import (
	"testing"
	"time"

	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRun(t *testing.T) {
	raw := []byte(`{"id":"q"}`)
	run := NewRun(RunModeAsync, raw)

	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, questionnaire.Hash(raw), run.Hash)
	assert.Equal(t, RunStatusPending, run.Status)
	assert.False(t, run.Status.Done())
	assert.Nil(t, run.Report())
}

func TestCompleteAndReport(t *testing.T) {
	run := NewRun(RunModeSync, []byte(`{}`))
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	run.Complete(&questionnaire.Report{
		Valid:           false,
		QuestionnaireID: "household",
		Errors:          []questionnaire.ValidationError{{Message: questionnaire.MsgDuplicateID, ID: "a"}},
		DurationMS:      12,
	}, at)

	assert.True(t, run.Status.Done())
	assert.Equal(t, "household", run.QuestionnaireID)
	assert.Equal(t, 1, run.ErrorCount)
	require.NotNil(t, run.CompletedAt)
	assert.Equal(t, at, *run.CompletedAt)

	report := run.Report()
	require.NotNil(t, report)
	assert.False(t, report.Valid)
	assert.Equal(t, run.Hash, report.Hash)
	assert.Equal(t, int64(12), report.DurationMS)
	assert.Len(t, report.Errors, 1)
}

func TestFail(t *testing.T) {
	run := NewRun(RunModeAsync, []byte(`[]`))
	run.Fail("not a JSON object", time.Now())

	assert.Equal(t, RunStatusFailed, run.Status)
	require.NotNil(t, run.FailureReason)
	assert.Equal(t, "not a JSON object", *run.FailureReason)
	assert.Nil(t, run.Report())
}

package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task types routed by the worker mux.
const (
	TaskValidationRun         = "validation:run"
	TaskValidationReportEmail = "email:validation_report"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

type ValidationRunPayload struct {
	RunID uuid.UUID `json:"run_id"`
}

type ValidationReportEmailPayload struct {
	RunID uuid.UUID `json:"run_id"`
	To    string    `json:"to"`
}

// NewValidationRunTask builds the task that validates a stored run. The
// task id is the run id, so a run is never queued twice.
func NewValidationRunTask(runID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(ValidationRunPayload{RunID: runID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskValidationRun,
		payload,
		asynq.TaskID(runID.String()),
		asynq.MaxRetry(3),
		asynq.Queue(QueueDefault),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

func NewValidationReportEmailTask(runID uuid.UUID, to string) (*asynq.Task, error) {
	payload, err := json.Marshal(ValidationReportEmailPayload{RunID: runID, To: to})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskValidationReportEmail,
		payload,
		asynq.TaskID("email:"+runID.String()),
		asynq.MaxRetry(5),
		asynq.Queue(QueueLow),
		asynq.Timeout(30*time.Second),
	), nil
}

// Package model holds the records persisted by the repository layer.
package model

import (
	"time"

	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Done reports whether the run reached a terminal status.
func (s RunStatus) Done() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

type RunMode string

const (
	RunModeSync  RunMode = "sync"
	RunModeAsync RunMode = "async"
)

// ValidationRun records one validation of one questionnaire document.
//
// Synchronous runs are written once, already completed. Asynchronous runs
// start pending with their Document stored, and are completed by a worker.
type ValidationRun struct {
	ID              uuid.UUID                       `json:"id" db:"id"`
	QuestionnaireID string                          `json:"questionnaire_id" db:"questionnaire_id"`
	Hash            string                          `json:"hash" db:"hash"`
	Mode            RunMode                         `json:"mode" db:"mode"`
	Status          RunStatus                       `json:"status" db:"status"`
	Valid           *bool                           `json:"valid" db:"valid"`
	ErrorCount      int                             `json:"error_count" db:"error_count"`
	Errors          []questionnaire.ValidationError `json:"errors" db:"errors"`
	Document        []byte                          `json:"-" db:"document"`
	NotifyEmail     *string                         `json:"notify_email,omitempty" db:"notify_email"`
	UserID          *string                         `json:"user_id,omitempty" db:"user_id"`
	DurationMS      *int64                          `json:"duration_ms" db:"duration_ms"`
	FailureReason   *string                         `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt       time.Time                       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time                       `json:"updated_at" db:"updated_at"`
	CompletedAt     *time.Time                      `json:"completed_at" db:"completed_at"`
}

// NewRun returns a pending run for raw.
func NewRun(mode RunMode, raw []byte) *ValidationRun {
	now := time.Now().UTC()
	return &ValidationRun{
		ID:        uuid.New(),
		Hash:      questionnaire.Hash(raw),
		Mode:      mode,
		Status:    RunStatusPending,
		Errors:    []questionnaire.ValidationError{},
		Document:  raw,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Complete copies the outcome of report into the run.
func (r *ValidationRun) Complete(report *questionnaire.Report, at time.Time) {
	valid := report.Valid
	duration := report.DurationMS

	r.Status = RunStatusCompleted
	r.QuestionnaireID = report.QuestionnaireID
	r.Valid = &valid
	r.ErrorCount = len(report.Errors)
	r.Errors = report.Errors
	r.DurationMS = &duration
	r.CompletedAt = &at
	r.UpdatedAt = at
}

// Fail marks the run as failed without a report.
func (r *ValidationRun) Fail(reason string, at time.Time) {
	r.Status = RunStatusFailed
	r.FailureReason = &reason
	r.CompletedAt = &at
	r.UpdatedAt = at
}

// Report rebuilds the validation report of a completed run.
func (r *ValidationRun) Report() *questionnaire.Report {
	if r.Status != RunStatusCompleted || r.Valid == nil {
		return nil
	}
	report := &questionnaire.Report{
		Valid:           *r.Valid,
		QuestionnaireID: r.QuestionnaireID,
		Hash:            r.Hash,
		Errors:          r.Errors,
	}
	if r.DurationMS != nil {
		report.DurationMS = *r.DurationMS
	}
	return report
}

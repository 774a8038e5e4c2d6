package email

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
)

// ValidationReportData feeds the validation_report template.
type ValidationReportData struct {
	RunID           string
	QuestionnaireID string
	Valid           bool
	Failed          bool
	FailureReason   string
	ErrorCount      int
	Errors          []questionnaire.ValidationError
	// Omitted counts errors left out of Errors.
	Omitted     int
	CompletedAt time.Time
}

// NewValidationReportData lists at most maxErrors of the report's errors.
func NewValidationReportData(runID string, report *questionnaire.Report, maxErrors int, at time.Time) ValidationReportData {
	data := ValidationReportData{
		RunID:           runID,
		QuestionnaireID: report.QuestionnaireID,
		Valid:           report.Valid,
		ErrorCount:      len(report.Errors),
		Errors:          report.Errors,
		CompletedAt:     at,
	}
	if maxErrors > 0 && len(data.Errors) > maxErrors {
		data.Errors = data.Errors[:maxErrors]
		data.Omitted = data.ErrorCount - maxErrors
	}
	return data
}

func (d ValidationReportData) Subject() string {
	name := d.QuestionnaireID
	if name == "" {
		name = d.RunID
	}
	switch {
	case d.Failed:
		return fmt.Sprintf("Validation of %s could not complete", name)
	case d.Valid:
		return fmt.Sprintf("Questionnaire %s is valid", name)
	case d.ErrorCount == 1:
		return fmt.Sprintf("Questionnaire %s has 1 problem", name)
	default:
		return fmt.Sprintf("Questionnaire %s has %d problems", name, d.ErrorCount)
	}
}

// SendValidationReport emails the outcome of an asynchronous run.
func (c *Client) SendValidationReport(ctx context.Context, to string, data ValidationReportData) error {
	return c.SendEmail(ctx, to, data.Subject(), TemplateValidationReport, data)
}

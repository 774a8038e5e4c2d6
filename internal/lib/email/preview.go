package email

import (
	"fmt"
	"time"

	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
)

// PreviewData holds sample data for rendering each template locally.
var PreviewData = map[Template]any{
	TemplateValidationReport: ValidationReportData{
		RunID:           "6f1c2a7e-8f0e-4e43-9a39-1d0f3b1e9c21",
		QuestionnaireID: "household-survey",
		ErrorCount:      3,
		Errors: []questionnaire.ValidationError{
			{Message: questionnaire.MsgDuplicateID, ID: "name-answer", Context: map[string]any{"count": 2}},
			{Message: "missing properties: 'type'", Path: "/sections/0/groups/0/blocks/1"},
		},
		Omitted:     1,
		CompletedAt: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
	},
}

// Preview renders a template with its PreviewData.
func Preview(name Template) (string, error) {
	data, ok := PreviewData[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	return Render(name, data)
}

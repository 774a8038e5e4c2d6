package model

import (
	"bytes"
	"encoding/json"

	"github.com/deppfellow/questionnaire-validator/internal/validation"
	"github.com/google/uuid"
)

// SubmitValidationRequest is the body of POST /api/v1/validations.
type SubmitValidationRequest struct {
	Questionnaire json.RawMessage `json:"questionnaire" validate:"required"`
	NotifyEmail   *string         `json:"notify_email" validate:"omitempty,email,max=254"`
}

func (r *SubmitValidationRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if bytes.Equal(bytes.TrimSpace(r.Questionnaire), []byte("null")) {
		return validation.CustomValidationErrors{{Field: "questionnaire", Message: "is required"}}
	}
	return nil
}

type GetValidationRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (r *GetValidationRequest) Validate() error {
	return validation.Struct(r)
}

// RunID is only meaningful after Validate succeeded.
func (r *GetValidationRequest) RunID() uuid.UUID {
	return uuid.MustParse(r.ID)
}

type ListValidationsRequest struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

func (r *ListValidationsRequest) Validate() error {
	return validation.Struct(r)
}

type ListValidationsResponse struct {
	Runs  []ValidationRun `json:"runs"`
	Limit int             `json:"limit"`
}

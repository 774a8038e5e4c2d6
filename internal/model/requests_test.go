package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/deppfellow/questionnaire-validator/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitValidationRequest(t *testing.T) {
	email := "author@example.com"
	req := &SubmitValidationRequest{Questionnaire: json.RawMessage(`{"sections": []}`), NotifyEmail: &email}
	require.NoError(t, req.Validate())

	bad := "not-an-email"
	req.NotifyEmail = &bad
	assert.Error(t, req.Validate())

	assert.Error(t, (&SubmitValidationRequest{}).Validate())
}

func TestSubmitValidationRequestNullQuestionnaire(t *testing.T) {
	err := (&SubmitValidationRequest{Questionnaire: json.RawMessage(" null ")}).Validate()

	var custom validation.CustomValidationErrors
	require.True(t, errors.As(err, &custom))
	assert.Equal(t, "questionnaire", custom[0].Field)
}

func TestGetValidationRequest(t *testing.T) {
	req := &GetValidationRequest{ID: "6f1c2a7e-8f0e-4e43-9a39-1d0f3b1e9c21"}
	require.NoError(t, req.Validate())
	assert.Equal(t, req.ID, req.RunID().String())

	assert.Error(t, (&GetValidationRequest{ID: "42"}).Validate())
}

func TestListValidationsRequest(t *testing.T) {
	assert.NoError(t, (&ListValidationsRequest{}).Validate())
	assert.NoError(t, (&ListValidationsRequest{Limit: 100}).Validate())
	assert.Error(t, (&ListValidationsRequest{Limit: 101}).Validate())
	assert.Error(t, (&ListValidationsRequest{Limit: -1}).Validate())
}

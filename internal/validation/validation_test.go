package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/questionnaire-validator/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createRequest struct {
	Name        string `json:"name" validate:"required,max=5"`
	NotifyEmail string `json:"notify_email" validate:"omitempty,email"`
	Kind        string `json:"kind" validate:"omitempty,oneof=a b"`
}

func (r *createRequest) Validate() error {
	return Struct(r)
}

type customRequest struct {
	Value string `json:"value"`
}

func (r *customRequest) Validate() error {
	if r.Value != "ok" {
		return CustomValidationErrors{{Field: "value", Message: "must be ok"}}
	}
	return nil
}

func newContext(body string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return e.NewContext(req, httptest.NewRecorder())
}

func requireBadRequest(t *testing.T, err error) *errs.HTTPError {
	t.Helper()
	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr), "expected *errs.HTTPError, got %T", err)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	return httpErr
}

func TestBindAndValidate(t *testing.T) {
	req := &createRequest{}
	require.NoError(t, BindAndValidate(newContext(`{"name": "abc", "kind": "a"}`), req))
	assert.Equal(t, "abc", req.Name)
}

func TestBindAndValidateFieldErrors(t *testing.T) {
	err := BindAndValidate(newContext(`{"name": "toolong", "notify_email": "nope", "kind": "c"}`), &createRequest{})

	httpErr := requireBadRequest(t, err)
	assert.Equal(t, "Validation failed", httpErr.Message)
	assert.ElementsMatch(t, []errs.FieldError{
		{Field: "name", Error: "must not exceed 5 characters"},
		{Field: "notify_email", Error: "must be a valid email address"},
		{Field: "kind", Error: "must be one of: a b"},
	}, httpErr.Errors)
}

func TestBindAndValidateRequired(t *testing.T) {
	err := BindAndValidate(newContext(`{}`), &createRequest{})

	httpErr := requireBadRequest(t, err)
	assert.Equal(t, []errs.FieldError{{Field: "name", Error: "is required"}}, httpErr.Errors)
}

func TestBindAndValidateMalformedBody(t *testing.T) {
	err := BindAndValidate(newContext(`{"name": `), &createRequest{})

	httpErr := requireBadRequest(t, err)
	assert.NotEmpty(t, httpErr.Message)
	assert.False(t, httpErr.Override)
	assert.Nil(t, httpErr.Errors)
}

func TestBindAndValidateCustomErrors(t *testing.T) {
	err := BindAndValidate(newContext(`{"value": "bad"}`), &customRequest{})

	httpErr := requireBadRequest(t, err)
	assert.Equal(t, []errs.FieldError{{Field: "value", Error: "must be ok"}}, httpErr.Errors)
}

type taggedRequest struct {
	ID    string `param:"id" validate:"required"`
	Limit int    `query:"limit" validate:"max=10"`
	Plain string `validate:"required"`
}

func TestFieldNamesFollowTags(t *testing.T) {
	_, fieldErrors := extractValidationError(Struct(&taggedRequest{Limit: 11}))

	fields := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"id", "limit", "plain"}, fields)
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "notify_email", toSnakeCase("NotifyEmail"))
	assert.Equal(t, "limit", toSnakeCase("Limit"))
	assert.Equal(t, "id", toSnakeCase("ID"))
	assert.Equal(t, "max_body_bytes", toSnakeCase("MaxBodyBytes"))
}

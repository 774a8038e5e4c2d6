package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/deppfellow/questionnaire-validator/internal/middleware"
	"github.com/deppfellow/questionnaire-validator/internal/model"
	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/deppfellow/questionnaire-validator/internal/repository"
	"github.com/deppfellow/questionnaire-validator/internal/server"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type validationService interface {
	ValidateDocument(ctx context.Context, raw []byte, userID *string) (*questionnaire.Report, error)
	SubmitAsync(ctx context.Context, raw []byte, notifyEmail, userID *string) (*model.ValidationRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (*model.ValidationRun, error)
	ListRuns(ctx context.Context, filter repository.ListRunsFilter) ([]model.ValidationRun, error)
}

type ValidationHandler struct {
	Handler
	service validationService
}

func NewValidationHandler(s *server.Server, svc validationService) *ValidationHandler {
	return &ValidationHandler{
		Handler: NewHandler(s),
		service: svc,
	}
}

// Validate takes the raw questionnaire as the request body and answers
// with its report: 200 when valid, 400 when not.
func (h *ValidationHandler) Validate(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			return echoErr
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	report, err := h.service.ValidateDocument(c.Request().Context(), raw, userIDPtr(c))
	if err != nil {
		return err
	}

	middleware.GetLogger(c).Info().
		Str("questionnaire_id", report.QuestionnaireID).
		Bool("valid", report.Valid).
		Int("error_count", len(report.Errors)).
		Msg("questionnaire validated")

	status := http.StatusOK
	if !report.Valid {
		status = http.StatusBadRequest
	}
	return c.JSON(status, report)
}

func (h *ValidationHandler) Submit(c echo.Context, req *model.SubmitValidationRequest) (*model.ValidationRun, error) {
	return h.service.SubmitAsync(c.Request().Context(), req.Questionnaire, req.NotifyEmail, userIDPtr(c))
}

func (h *ValidationHandler) GetRun(c echo.Context, req *model.GetValidationRequest) (*model.ValidationRun, error) {
	return h.service.GetRun(c.Request().Context(), req.RunID())
}

// ListRuns lists the caller's most recent runs, or everyone's when the API
// runs without auth.
func (h *ValidationHandler) ListRuns(c echo.Context, req *model.ListValidationsRequest) (*model.ListValidationsResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = repository.DefaultListLimit
	}

	runs, err := h.service.ListRuns(c.Request().Context(), repository.ListRunsFilter{
		Limit:  limit,
		UserID: userIDPtr(c),
	})
	if err != nil {
		return nil, err
	}

	return &model.ListValidationsResponse{Runs: runs, Limit: limit}, nil
}

func userIDPtr(c echo.Context) *string {
	if userID := middleware.GetUserID(c); userID != "" {
		return &userID
	}
	return nil
}

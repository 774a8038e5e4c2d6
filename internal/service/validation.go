package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deppfellow/questionnaire-validator/internal/config"
	"github.com/deppfellow/questionnaire-validator/internal/errs"
	"github.com/deppfellow/questionnaire-validator/internal/lib/email"
	"github.com/deppfellow/questionnaire-validator/internal/metrics"
	"github.com/deppfellow/questionnaire-validator/internal/model"
	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/deppfellow/questionnaire-validator/internal/repository"
	"github.com/deppfellow/questionnaire-validator/internal/sqlerr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type QuestionnaireValidator interface {
	Validate(ctx context.Context, raw []byte) (*questionnaire.Report, error)
}

type ReportCache interface {
	Get(ctx context.Context, hash string) (*questionnaire.Report, bool)
	Set(ctx context.Context, report *questionnaire.Report) error
}

type RunRepository interface {
	Create(ctx context.Context, run *model.ValidationRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ValidationRun, error)
	List(ctx context.Context, filter repository.ListRunsFilter) ([]model.ValidationRun, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	Finish(ctx context.Context, run *model.ValidationRun) error
}

type TaskQueue interface {
	EnqueueValidationRun(ctx context.Context, runID uuid.UUID) error
	EnqueueReportEmail(ctx context.Context, runID uuid.UUID, to string) error
}

type Mailer interface {
	Enabled() bool
	SendValidationReport(ctx context.Context, to string, data email.ValidationReportData) error
}

type ValidationDeps struct {
	Validator QuestionnaireValidator
	Cache     ReportCache
	Runs      RunRepository
	Queue     TaskQueue
	Mailer    Mailer
	Logger    *zerolog.Logger
	Config    config.ValidatorConfig

	// SlowAfter logs validations that take longer. Zero disables it.
	SlowAfter time.Duration
}

type ValidationService struct {
	ValidationDeps

	now func() time.Time
}

func NewValidationService(deps ValidationDeps) *ValidationService {
	if deps.Logger == nil {
		nop := zerolog.Nop()
		deps.Logger = &nop
	}
	return &ValidationService{
		ValidationDeps: deps,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

var codeNotAnObject = "QUESTIONNAIRE_NOT_AN_OBJECT"

// toRequestError turns a validator error into the error returned to callers.
func toRequestError(err error) error {
	if errors.Is(err, questionnaire.ErrInvalidDocument) {
		return errs.NewBadRequestError(err.Error(), true, &codeNotAnObject, nil, nil)
	}
	return err
}

func (s *ValidationService) validate(ctx context.Context, mode model.RunMode, raw []byte) (*questionnaire.Report, error) {
	start := time.Now()
	report, err := s.Validator.Validate(ctx, raw)
	took := time.Since(start)

	metrics.ObserveValidation(string(mode), report, took)

	if s.SlowAfter > 0 && took > s.SlowAfter {
		ev := s.Logger.Warn().
			Str("mode", string(mode)).
			Dur("took", took).
			Int("size_bytes", len(raw))
		if report != nil {
			ev = ev.Str("questionnaire_id", report.QuestionnaireID)
		}
		ev.Msg("slow questionnaire validation")
	}
	return report, err
}

// ValidateDocument validates raw synchronously. Reports are cached by
// document hash; a fresh validation is also recorded as a completed run,
// on a best effort basis.
func (s *ValidationService) ValidateDocument(ctx context.Context, raw []byte, userID *string) (*questionnaire.Report, error) {
	hash := questionnaire.Hash(raw)
	logger := s.Logger.With().Str("hash", hash).Logger()

	if report, ok := s.Cache.Get(ctx, hash); ok {
		metrics.IncCacheHit()
		logger.Debug().Msg("serving cached report")
		return report, nil
	}
	metrics.IncCacheMiss()

	report, err := s.validate(ctx, model.RunModeSync, raw)
	if err != nil {
		return nil, toRequestError(err)
	}

	if err := s.Cache.Set(ctx, report); err != nil {
		logger.Warn().Err(err).Msg("failed to cache report")
	}

	run := model.NewRun(model.RunModeSync, raw)
	run.Document = nil
	run.UserID = userID
	run.Complete(report, s.now())
	if err := s.Runs.Create(ctx, run); err != nil {
		logger.Warn().Err(err).Msg("failed to record validation run")
	}

	return report, nil
}

// SubmitAsync stores raw as a pending run and queues it. A document whose
// report is already cached completes immediately.
func (s *ValidationService) SubmitAsync(ctx context.Context, raw []byte, notifyEmail, userID *string) (*model.ValidationRun, error) {
	if _, err := questionnaire.Decode(raw); err != nil {
		return nil, toRequestError(err)
	}

	run := model.NewRun(model.RunModeAsync, raw)
	run.NotifyEmail = notifyEmail
	run.UserID = userID

	logger := s.Logger.With().Str("run_id", run.ID.String()).Str("hash", run.Hash).Logger()

	if report, ok := s.Cache.Get(ctx, run.Hash); ok {
		metrics.IncCacheHit()
		run.Document = nil
		run.Complete(report, s.now())
		if err := s.Runs.Create(ctx, run); err != nil {
			return nil, sqlerr.HandleError(err)
		}
		s.notify(ctx, run)
		logger.Info().Msg("validation run completed from cache")
		return run, nil
	}

	if err := s.Runs.Create(ctx, run); err != nil {
		return nil, sqlerr.HandleError(err)
	}

	if err := s.Queue.EnqueueValidationRun(ctx, run.ID); err != nil {
		logger.Error().Err(err).Msg("failed to enqueue validation run")

		run.Fail("could not be queued", s.now())
		if ferr := s.Runs.Finish(ctx, run); ferr != nil {
			logger.Error().Err(ferr).Msg("failed to mark unqueued run as failed")
		}
		return nil, errs.NewServiceUnavailableError("Validation queue is unavailable, please retry")
	}

	metrics.IncAsyncRun("enqueued")
	logger.Info().Msg("validation run enqueued")
	return run, nil
}

func (s *ValidationService) GetRun(ctx context.Context, id uuid.UUID) (*model.ValidationRun, error) {
	run, err := s.Runs.GetByID(ctx, id)
	if err != nil {
		return nil, sqlerr.HandleError(err)
	}
	return run, nil
}

func (s *ValidationService) ListRuns(ctx context.Context, filter repository.ListRunsFilter) ([]model.ValidationRun, error) {
	runs, err := s.Runs.List(ctx, filter)
	if err != nil {
		return nil, sqlerr.HandleError(err)
	}
	return runs, nil
}

// ProcessRun validates the stored document of a pending run. Returned
// errors are transient and make the job retry; a document that cannot be
// validated fails the run instead.
func (s *ValidationService) ProcessRun(ctx context.Context, id uuid.UUID) error {
	logger := s.Logger.With().Str("run_id", id.String()).Logger()

	run, err := s.Runs.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Warn().Msg("validation run no longer exists, dropping task")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading run %s: %w", id, err)
	}
	if run.Status.Done() {
		logger.Debug().Str("status", string(run.Status)).Msg("validation run already finished")
		return nil
	}

	if err := s.Runs.MarkRunning(ctx, id); err != nil {
		return fmt.Errorf("marking run %s running: %w", id, err)
	}

	report, err := s.validate(ctx, model.RunModeAsync, run.Document)
	switch {
	case errors.Is(err, questionnaire.ErrInvalidDocument):
		run.Fail(err.Error(), s.now())
		metrics.IncAsyncRun("failed")
	case err != nil:
		metrics.IncAsyncRun("retried")
		return fmt.Errorf("validating run %s: %w", id, err)
	default:
		run.Complete(report, s.now())
		metrics.IncAsyncRun("completed")
		if err := s.Cache.Set(ctx, report); err != nil {
			logger.Warn().Err(err).Msg("failed to cache report")
		}
	}

	if err := s.Runs.Finish(ctx, run); err != nil {
		return fmt.Errorf("saving run %s: %w", id, err)
	}

	logger.Info().
		Str("status", string(run.Status)).
		Int("error_count", run.ErrorCount).
		Msg("validation run finished")

	s.notify(ctx, run)
	return nil
}

// notify queues the report email of a finished run, if one was requested.
func (s *ValidationService) notify(ctx context.Context, run *model.ValidationRun) {
	if run.NotifyEmail == nil || !s.Mailer.Enabled() {
		return
	}
	if err := s.Queue.EnqueueReportEmail(ctx, run.ID, *run.NotifyEmail); err != nil {
		s.Logger.Error().Err(err).Str("run_id", run.ID.String()).Msg("failed to enqueue report email")
	}
}

// SendRunReport emails the outcome of a finished run to `to`.
func (s *ValidationService) SendRunReport(ctx context.Context, id uuid.UUID, to string) error {
	run, err := s.Runs.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		s.Logger.Warn().Str("run_id", id.String()).Msg("validation run no longer exists, report not sent")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading run %s: %w", id, err)
	}
	if !run.Status.Done() {
		return fmt.Errorf("run %s is still %s", id, run.Status)
	}

	completedAt := run.UpdatedAt
	if run.CompletedAt != nil {
		completedAt = *run.CompletedAt
	}

	var data email.ValidationReportData
	if report := run.Report(); report != nil {
		data = email.NewValidationReportData(id.String(), report, s.Config.MaxReportErrors, completedAt)
	} else {
		data = email.ValidationReportData{
			RunID:           id.String(),
			QuestionnaireID: run.QuestionnaireID,
			Failed:          true,
			CompletedAt:     completedAt,
		}
		if run.FailureReason != nil {
			data.FailureReason = *run.FailureReason
		}
	}

	err = s.Mailer.SendValidationReport(ctx, to, data)
	if errors.Is(err, email.ErrDisabled) {
		return nil
	}
	return err
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/questionnaire-validator/internal/model"
	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/deppfellow/questionnaire-validator/internal/sqlerr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const validationRunsTable = "validation_runs"

// Listing never loads stored documents.
const runSummaryColumns = `id, questionnaire_id, hash, mode, status, valid, error_count, errors,
	notify_email, user_id, duration_ms, failure_reason, created_at, updated_at, completed_at`

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type ValidationRunRepository struct {
	db DB
}

func NewValidationRunRepository(db DB) *ValidationRunRepository {
	return &ValidationRunRepository{db: db}
}

// ListRunsFilter narrows ListRuns. A nil UserID lists every user's runs.
type ListRunsFilter struct {
	Limit  int
	UserID *string
}

// errorsOrEmpty keeps a nil slice from being written as SQL NULL.
func errorsOrEmpty(errs []questionnaire.ValidationError) []questionnaire.ValidationError {
	if errs == nil {
		return []questionnaire.ValidationError{}
	}
	return errs
}

func notFound(id uuid.UUID) error {
	return fmt.Errorf("%s%s: run %s: %w", sqlerr.TablePrefix, validationRunsTable, id, pgx.ErrNoRows)
}

func (r *ValidationRunRepository) Create(ctx context.Context, run *model.ValidationRun) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO validation_runs (
			id, questionnaire_id, hash, mode, status, valid, error_count, errors, document,
			notify_email, user_id, duration_ms, failure_reason, created_at, updated_at, completed_at
		) VALUES (
			@id, @questionnaire_id, @hash, @mode, @status, @valid, @error_count, @errors, @document,
			@notify_email, @user_id, @duration_ms, @failure_reason, @created_at, @updated_at, @completed_at
		)`,
		pgx.NamedArgs{
			"id":               run.ID,
			"questionnaire_id": run.QuestionnaireID,
			"hash":             run.Hash,
			"mode":             string(run.Mode),
			"status":           string(run.Status),
			"valid":            run.Valid,
			"error_count":      run.ErrorCount,
			"errors":           errorsOrEmpty(run.Errors),
			"document":         run.Document,
			"notify_email":     run.NotifyEmail,
			"user_id":          run.UserID,
			"duration_ms":      run.DurationMS,
			"failure_reason":   run.FailureReason,
			"created_at":       run.CreatedAt,
			"updated_at":       run.UpdatedAt,
			"completed_at":     run.CompletedAt,
		})
	if err != nil {
		return fmt.Errorf("inserting validation run %s: %w", run.ID, err)
	}
	return nil
}

// GetByID loads a run including its stored document.
func (r *ValidationRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ValidationRun, error) {
	rows, err := r.db.Query(ctx, `SELECT * FROM validation_runs WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return nil, fmt.Errorf("querying validation run %s: %w", id, err)
	}

	run, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.ValidationRun])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning validation run %s: %w", id, err)
	}
	return run, nil
}

// List returns the most recent runs first.
func (r *ValidationRunRepository) List(ctx context.Context, filter ListRunsFilter) ([]model.ValidationRun, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	rows, err := r.db.Query(ctx, `
		SELECT `+runSummaryColumns+`
		FROM validation_runs
		WHERE (@user_id::text IS NULL OR user_id = @user_id)
		ORDER BY created_at DESC, id
		LIMIT @limit`,
		pgx.NamedArgs{"user_id": filter.UserID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("listing validation runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[model.ValidationRun])
	if err != nil {
		return nil, fmt.Errorf("scanning validation runs: %w", err)
	}
	return runs, nil
}

// MarkRunning moves a pending run to running. Retried jobs find the run
// already running, which is accepted.
func (r *ValidationRunRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE validation_runs
		SET status = @running, updated_at = now()
		WHERE id = @id AND status IN (@pending, @running)`,
		pgx.NamedArgs{
			"id":      id,
			"pending": string(model.RunStatusPending),
			"running": string(model.RunStatusRunning),
		})
	if err != nil {
		return fmt.Errorf("marking validation run %s running: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

// Finish stores the terminal state of run. The stored document is dropped
// once the run has completed.
func (r *ValidationRunRepository) Finish(ctx context.Context, run *model.ValidationRun) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE validation_runs
		SET status = @status,
			questionnaire_id = @questionnaire_id,
			valid = @valid,
			error_count = @error_count,
			errors = @errors,
			duration_ms = @duration_ms,
			failure_reason = @failure_reason,
			completed_at = @completed_at,
			updated_at = @updated_at,
			document = CASE WHEN @status = 'completed' THEN NULL ELSE document END
		WHERE id = @id`,
		pgx.NamedArgs{
			"id":               run.ID,
			"status":           string(run.Status),
			"questionnaire_id": run.QuestionnaireID,
			"valid":            run.Valid,
			"error_count":      run.ErrorCount,
			"errors":           errorsOrEmpty(run.Errors),
			"duration_ms":      run.DurationMS,
			"failure_reason":   run.FailureReason,
			"completed_at":     run.CompletedAt,
			"updated_at":       run.UpdatedAt,
		})
	if err != nil {
		return fmt.Errorf("finishing validation run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(run.ID)
	}
	return nil
}

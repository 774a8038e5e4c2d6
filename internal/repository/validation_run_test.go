package repository

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/deppfellow/questionnaire-validator/internal/database"
	"github.com/deppfellow/questionnaire-validator/internal/errs"
	"github.com/deppfellow/questionnaire-validator/internal/model"
	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/deppfellow/questionnaire-validator/internal/sqlerr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotFoundMapsToValidationRun(t *testing.T) {
	err := notFound(uuid.New())
	require.ErrorIs(t, err, pgx.ErrNoRows)

	httpErr, ok := sqlerr.HandleError(err).(*errs.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
	assert.Equal(t, "Validation Run not found", httpErr.Message)
}

// newTestRepository connects to QVALIDATOR_TEST_DATABASE_URL, migrates it
// and empties validation_runs. Tests are skipped without it.
func newTestRepository(t *testing.T) *ValidationRunRepository {
	t.Helper()

	dsn := os.Getenv("QVALIDATOR_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("QVALIDATOR_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	logger := zerolog.Nop()
	require.NoError(t, database.Migrate(ctx, &logger, dsn, -1))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "TRUNCATE validation_runs")
	require.NoError(t, err)

	return NewValidationRunRepository(pool)
}

func TestValidationRunLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	email := "author@example.com"
	run := model.NewRun(model.RunModeAsync, []byte(`{"id":"household"}`))
	run.NotifyEmail = &email
	require.NoError(t, repo.Create(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPending, got.Status)
	assert.Equal(t, run.Document, got.Document)
	assert.Equal(t, email, *got.NotifyEmail)
	assert.Empty(t, got.Errors)

	require.NoError(t, repo.MarkRunning(ctx, run.ID))
	require.NoError(t, repo.MarkRunning(ctx, run.ID), "a retried job may mark the run again")

	run.Complete(&questionnaire.Report{
		Valid:           false,
		QuestionnaireID: "household",
		Errors: []questionnaire.ValidationError{{
			Message: questionnaire.MsgDuplicateID,
			ID:      "name-answer",
			Context: map[string]any{"count": 2},
		}},
		DurationMS: 3,
	}, time.Now().UTC())
	require.NoError(t, repo.Finish(ctx, run))

	got, err = repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Equal(t, "household", got.QuestionnaireID)
	require.NotNil(t, got.Valid)
	assert.False(t, *got.Valid)
	assert.Equal(t, 1, got.ErrorCount)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "name-answer", got.Errors[0].ID)
	assert.Nil(t, got.Document, "completed runs drop the stored document")

	assert.Error(t, repo.MarkRunning(ctx, run.ID), "completed runs cannot restart")
}

func TestValidationRunNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestValidationRunList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	alice := "user_alice"
	base := time.Now().UTC().Add(-time.Hour)
	for i := range 3 {
		run := model.NewRun(model.RunModeSync, []byte(`{}`))
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if i > 0 {
			run.UserID = &alice
		}
		require.NoError(t, repo.Create(ctx, run))
	}

	all, err := repo.List(ctx, ListRunsFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt), "newest first")
	assert.Nil(t, all[0].Document)

	mine, err := repo.List(ctx, ListRunsFilter{UserID: &alice, Limit: 1})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, alice, *mine[0].UserID)
}

// Package job runs asynchronous validations and report emails on Asynq,
// a Redis-backed task queue.
package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/questionnaire-validator/internal/config"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// RunProcessor validates the stored document of a pending run.
type RunProcessor interface {
	ProcessRun(ctx context.Context, runID uuid.UUID) error
}

// ReportSender emails the outcome of a finished run.
type ReportSender interface {
	SendRunReport(ctx context.Context, runID uuid.UUID, to string) error
}

// Enqueuer is the producer half of the queue.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type JobService struct {
	Client Enqueuer

	server *asynq.Server
	logger *zerolog.Logger

	runs    RunProcessor
	reports ReportSender
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	client := asynq.NewClient(redisOpt(cfg))

	jobLogger := logger.With().Str("component", "jobs").Logger()

	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: cfg.Validator.QueueConcurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			Logger:   asynqLogger{&jobLogger},
			LogLevel: asynq.WarnLevel,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				jobLogger.Error().
					Err(err).
					Str("task_type", task.Type()).
					Int("retry", retried).
					Int("max_retry", maxRetry).
					Msg("task failed")
			}),
		},
	)

	return &JobService{
		Client: client,
		server: server,
		logger: &jobLogger,
	}
}

// InitHandlers wires the task handlers' dependencies. It must be called before Start.
func (j *JobService) InitHandlers(runs RunProcessor, reports ReportSender) {
	j.runs = runs
	j.reports = reports
}

func (j *JobService) mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskValidationRun, j.handleValidationRunTask)
	mux.HandleFunc(TaskValidationReportEmail, j.handleReportEmailTask)
	return mux
}

// Start starts the worker server in the background.
func (j *JobService) Start() error {
	if j.runs == nil || j.reports == nil {
		return errors.New("job handlers are not initialized")
	}

	j.logger.Info().Msg("starting background job server")
	if err := j.server.Start(j.mux()); err != nil {
		return fmt.Errorf("starting job server: %w", err)
	}
	return nil
}

// Stop waits for in-flight tasks and closes the queue connections.
func (j *JobService) Stop() {
	j.logger.Info().Msg("stopping background job server")
	j.server.Shutdown()
	if c, ok := j.Client.(*asynq.Client); ok {
		_ = c.Close()
	}
}

// EnqueueValidationRun queues the asynchronous validation of runID.
func (j *JobService) EnqueueValidationRun(ctx context.Context, runID uuid.UUID) error {
	task, err := NewValidationRunTask(runID)
	if err != nil {
		return err
	}
	return j.enqueue(ctx, task)
}

// EnqueueReportEmail queues the report email of runID.
func (j *JobService) EnqueueReportEmail(ctx context.Context, runID uuid.UUID, to string) error {
	task, err := NewValidationReportEmailTask(runID, to)
	if err != nil {
		return err
	}
	return j.enqueue(ctx, task)
}

func (j *JobService) enqueue(ctx context.Context, task *asynq.Task) error {
	info, err := j.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		j.logger.Debug().Str("task_type", task.Type()).Msg("task already queued")
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueueing %s: %w", task.Type(), err)
	}

	j.logger.Debug().
		Str("task_type", task.Type()).
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Msg("task enqueued")
	return nil
}

// asynqLogger routes Asynq's own logs through zerolog.
type asynqLogger struct {
	log *zerolog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Fatal().Msg(fmt.Sprint(args...)) }

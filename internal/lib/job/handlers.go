package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

func (j *JobService) handleValidationRunTask(ctx context.Context, t *asynq.Task) error {
	var p ValidationRunPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal validation run payload: %v: %w", err, asynq.SkipRetry)
	}

	logger := j.logger.With().Str("task_type", t.Type()).Str("run_id", p.RunID.String()).Logger()
	logger.Info().Msg("processing validation run")

	if err := j.runs.ProcessRun(ctx, p.RunID); err != nil {
		logger.Error().Err(err).Msg("validation run failed")
		return err
	}

	logger.Info().Msg("validation run processed")
	return nil
}

func (j *JobService) handleReportEmailTask(ctx context.Context, t *asynq.Task) error {
	var p ValidationReportEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal report email payload: %v: %w", err, asynq.SkipRetry)
	}

	logger := j.logger.With().Str("task_type", t.Type()).Str("run_id", p.RunID.String()).Logger()

	if err := j.reports.SendRunReport(ctx, p.RunID, p.To); err != nil {
		logger.Error().Err(err).Msg("failed to send validation report")
		return err
	}

	logger.Info().Msg("validation report sent")
	return nil
}

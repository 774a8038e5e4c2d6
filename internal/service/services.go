package service

import (
	"fmt"

	"github.com/deppfellow/questionnaire-validator/internal/lib/cache"
	"github.com/deppfellow/questionnaire-validator/internal/lib/email"
	"github.com/deppfellow/questionnaire-validator/internal/lib/job"
	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/deppfellow/questionnaire-validator/internal/repository"
	"github.com/deppfellow/questionnaire-validator/internal/server"
)

type Services struct {
	Auth       *AuthService
	Validation *ValidationService
	Job        *job.JobService
}

// NewService builds the services and registers the job handlers they provide.
func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	validator, err := questionnaire.NewValidator(s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build questionnaire validator: %w", err)
	}

	validation := NewValidationService(ValidationDeps{
		Validator: validator,
		Cache:     cache.NewReportCache(s.Redis, s.Config.Validator.CacheTTL, *s.Logger),
		Runs:      repos.ValidationRuns,
		Queue:     s.Job,
		Mailer:    email.NewClient(s.Config, s.Logger),
		Logger:    s.Logger,
		Config:    s.Config.Validator,
		SlowAfter: s.Config.Observability.Logging.SlowValidationThreshold,
	})

	s.Job.InitHandlers(validation, validation)

	return &Services{
		Auth:       NewAuthService(s),
		Validation: validation,
		Job:        s.Job,
	}, nil
}

package repository

import (
	"github.com/deppfellow/questionnaire-validator/internal/server"
)

type Repositories struct {
	ValidationRuns *ValidationRunRepository
}

func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		ValidationRuns: NewValidationRunRepository(s.DB.Pool),
	}
}

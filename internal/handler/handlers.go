package handler

import (
	"github.com/deppfellow/questionnaire-validator/internal/server"
	"github.com/deppfellow/questionnaire-validator/internal/service"
)

type Handlers struct {
	Health     *HealthHandler
	OpenAPI    *OpenAPIHandler
	Metrics    *MetricsHandler
	Validation *ValidationHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(s),
		OpenAPI:    NewOpenAPIHandler(s),
		Metrics:    NewMetricsHandler(s),
		Validation: NewValidationHandler(s, services.Validation),
	}
}

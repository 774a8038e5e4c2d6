package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/deppfellow/questionnaire-validator/internal/middleware"
	"github.com/deppfellow/questionnaire-validator/internal/server"
	"github.com/labstack/echo/v4"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

type probe struct {
	// critical probes turn the service unhealthy; the others only degrade it.
	critical bool
	check    func(ctx context.Context) error
}

type HealthHandler struct {
	Handler
	probes map[string]probe
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
		probes: map[string]probe{
			// Synchronous validation keeps working without Redis.
			"database": {critical: true, check: func(ctx context.Context) error {
				if s.DB == nil {
					return errors.New("database not configured")
				}
				return s.DB.Pool.Ping(ctx)
			}},
			"redis": {check: func(ctx context.Context) error {
				if s.Redis == nil {
					return errors.New("redis not configured")
				}
				return s.Redis.Ping(ctx).Err()
			}},
		},
	}
}

type checkResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

type healthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Environment string                 `json:"environment"`
	Service     string                 `json:"service"`
	Checks      map[string]checkResult `json:"checks"`
}

// CheckHealth probes the configured dependencies. It answers 503 when a
// critical dependency is down and 200 otherwise.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	cfg := h.server.Config.Observability.HealthChecks

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	response := healthResponse{
		Status:      statusHealthy,
		Timestamp:   time.Now().UTC(),
		Environment: h.server.Config.Primary.Env,
		Service:     h.server.Config.Observability.ServiceName,
		Checks:      map[string]checkResult{},
	}

	for name, p := range h.probes {
		if !cfg.Has(name) {
			continue
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.Timeout)
		checkStart := time.Now()
		err := p.check(ctx)
		cancel()
		took := time.Since(checkStart)

		if err == nil {
			response.Checks[name] = checkResult{Status: statusHealthy, ResponseTime: took.String()}
			continue
		}

		response.Checks[name] = checkResult{
			Status:       statusUnhealthy,
			ResponseTime: took.String(),
			Error:        err.Error(),
		}
		switch {
		case p.critical:
			response.Status = statusUnhealthy
		case response.Status == statusHealthy:
			response.Status = statusDegraded
		}

		logger.Error().Err(err).Str("check", name).Dur("response_time", took).Msg("health check failed")
		h.recordFailure(name, took, err)
	}

	status := http.StatusOK
	if response.Status == statusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	logger.Debug().
		Str("status", response.Status).
		Dur("total_duration", time.Since(start)).
		Msg("health check finished")

	return c.JSON(status, response)
}

func (h *HealthHandler) recordFailure(check string, took time.Duration, err error) {
	if h.server.LoggerService == nil || h.server.LoggerService.GetApplication() == nil {
		return
	}
	h.server.LoggerService.GetApplication().RecordCustomEvent("HealthCheckError", map[string]any{
		"check_type":       check,
		"operation":        "health_check",
		"response_time_ms": took.Milliseconds(),
		"error_message":    err.Error(),
	})
}

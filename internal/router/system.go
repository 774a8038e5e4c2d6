package router

import (
	"github.com/deppfellow/questionnaire-validator/internal/handler"
	"github.com/deppfellow/questionnaire-validator/static"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers health, metrics and API docs.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)
	r.GET("/metrics", h.Metrics.ServeMetrics)

	r.StaticFS("/static", static.Files)
	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
}

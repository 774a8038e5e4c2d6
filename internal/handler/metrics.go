package handler

import (
	"github.com/deppfellow/questionnaire-validator/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsHandler struct {
	Handler
	serve echo.HandlerFunc
}

func NewMetricsHandler(s *server.Server) *MetricsHandler {
	return &MetricsHandler{
		Handler: NewHandler(s),
		serve:   echo.WrapHandler(promhttp.Handler()),
	}
}

// ServeMetrics exposes the default Prometheus registry.
func (h *MetricsHandler) ServeMetrics(c echo.Context) error {
	return h.serve(c)
}

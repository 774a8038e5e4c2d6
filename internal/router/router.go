// Package router builds the echo instance: global middleware, the error
// handler and every route.
package router

import (
	"net/http"

	"github.com/deppfellow/questionnaire-validator/internal/handler"
	"github.com/deppfellow/questionnaire-validator/internal/middleware"
	"github.com/deppfellow/questionnaire-validator/internal/model"
	"github.com/deppfellow/questionnaire-validator/internal/server"
	"github.com/labstack/echo/v4"
)

func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	m := middleware.NewMiddlewares(s)

	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.HTTPErrorHandler = m.Global.GlobalErrorHandler

	r.Use(
		middleware.RequestID(),
		m.Tracing.NewRelicMiddleware(),
		m.Tracing.EnhanceTracing(),
		m.ContextEnhancer.EnhanceContext(),
		m.Global.RequestLogger(),
		m.Global.Recover(),
		m.Global.CORS(),
		m.Global.Secure(),
		m.RateLimit.Limit(),
		m.Global.BodyLimit(),
	)

	registerSystemRoutes(r, h)

	r.POST("/validate", h.Validation.Validate)

	v1 := r.Group("/api/v1", m.Auth.RequireAuth)
	registerValidationRoutes(v1, h)

	return r
}

func registerValidationRoutes(g *echo.Group, h *handler.Handlers) {
	vh := h.Validation

	g.POST("/validations", handler.Handle(vh.Handler, vh.Submit, http.StatusAccepted, newSubmitRequest))
	g.GET("/validations", handler.Handle(vh.Handler, vh.ListRuns, http.StatusOK, newListRequest))
	g.GET("/validations/:id", handler.Handle(vh.Handler, vh.GetRun, http.StatusOK, newGetRequest))
}

func newSubmitRequest() *model.SubmitValidationRequest { return &model.SubmitValidationRequest{} }
func newListRequest() *model.ListValidationsRequest { return &model.ListValidationsRequest{} }
func newGetRequest() *model.GetValidationRequest { return &model.GetValidationRequest{} }

package middleware

import (
	"github.com/deppfellow/questionnaire-validator/internal/logger"
	"github.com/deppfellow/questionnaire-validator/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

const (
	// UserIDKey holds the Clerk subject of an authenticated request.
	// RequireAuth sets it; GetUserID reads it.
	UserIDKey = "user_id"

	// LoggerKey holds the request scoped *zerolog.Logger.
	LoggerKey = "logger"
)

// ContextEnhancer enriches every request with a request scoped logger.
//
// The logger carries:
//   - request_id
//   - method, path (the route template, e.g. /api/v1/validations/:id) and ip
//   - trace.id and span.id, when a New Relic transaction exists
//   - user_id, when the request is authenticated
//
// It is stored in the echo context under LoggerKey. Handlers and services
// read it back with GetLogger.
type ContextEnhancer struct {
	server *server.Server
}

func NewContextEnhancer(s *server.Server) *ContextEnhancer {
	return &ContextEnhancer{server: s}
}

// EnhanceContext returns the echo middleware.
//
// For every request it:
//  1. reads the request id set by RequestID
//  2. derives a logger with the request fields
//  3. adds the New Relic trace context when available
//  4. adds the user id when auth already ran
//  5. stores the logger under LoggerKey
//
// It must run after RequestID and NewRelicMiddleware. Routes that
// authenticate in a group run RequireAuth later, which adds user_id to this
// logger itself.
func (ce *ContextEnhancer) EnhanceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			contextLogger := ce.server.Logger.With().
				Str("request_id", GetRequestID(c)).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("ip", c.RealIP()).
				Logger()

			if txn := newrelic.FromContext(c.Request().Context()); txn != nil {
				contextLogger = logger.WithTraceContext(contextLogger, txn)
			}

			if userID := GetUserID(c); userID != "" {
				contextLogger = contextLogger.With().Str("user_id", userID).Logger()
			}

			c.Set(LoggerKey, &contextLogger)
			return next(c)
		}
	}
}

// GetUserID returns the authenticated Clerk user, or "" when auth is off.
func GetUserID(c echo.Context) string {
	if userID, ok := c.Get(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetLogger returns the request scoped logger.
//
// Outside EnhanceContext, for example in unit tests that build an echo
// context directly, it returns a no-op logger instead of nil.
func GetLogger(c echo.Context) *zerolog.Logger {
	if logger, ok := c.Get(LoggerKey).(*zerolog.Logger); ok {
		return logger
	}
	logger := zerolog.Nop()
	return &logger
}

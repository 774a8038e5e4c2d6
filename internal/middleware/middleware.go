// Package middleware holds the global and route level echo middleware:
// request ids, the request scoped logger, New Relic tracing, Clerk auth,
// rate limiting, body limits and the global error handler.
package middleware

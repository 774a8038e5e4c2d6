// Package errs defines the error shape returned by the HTTP API.
//
// Every failure a client can see is an *HTTPError: handlers return one
// directly, database errors are mapped into one by sqlerr, and anything
// else becomes a generic 500 in the global error handler.
package errs

// Package lib groups the integrations that are not part of a request
// layer: the report cache, background jobs, email delivery and small
// output helpers.
package lib

// Package service holds the business logic between the HTTP handlers and
// the repository, cache and queue.
package service

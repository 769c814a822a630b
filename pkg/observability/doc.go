// Package observability provides structured logging, Prometheus metrics and
// health checks for the authentication service.
package observability

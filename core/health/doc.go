// Package health provides HTTP handlers for service health monitoring.
//
// Handlers:
//   - Liveness: process is running (no dependency checks)
//   - Readiness: every dependency check passes
//   - NoContent: returns 204 for minimal overhead
//
// Usage:
//
//	mux.Handle("GET /health/live", health.Liveness())
//	mux.Handle("GET /health/ready", health.Readiness(log,
//		reader.Healthcheck,
//		redis.Healthcheck(client),
//	))
//
// Dependency checks must follow the func(context.Context) error signature.
package health

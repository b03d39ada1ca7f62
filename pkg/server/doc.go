// Package server provides the HTTP surface over the visit collector.
//
// # Routes
//
//	POST   /api/visits       record a visit
//	GET    /api/visits       query visits (filters, sort, pagination)
//	DELETE /api/visits       clear the store
//	GET    /api/visits/{id}  fetch one visit
//	DELETE /api/visits/{id}  delete one visit
//	GET    /api/stats        aggregate statistics
//	GET    /api/export.json  full-store JSON export
//	GET    /api/export.csv   full-store CSV export
//	GET    /healthz          liveness and storage check
//	GET    /metrics          Prometheus metrics (when enabled)
//
// # Error Mapping
//
// Domain errors map onto HTTP statuses: admission denial is 429 with a
// Retry-After header, validation failure is 422 with per-field details,
// a missing record is 404, and a storage fault is 503. Every error body
// carries a machine-readable code.
//
// # Middleware
//
// Requests pass through panic recovery, request ID assignment, and
// structured request logging, outermost first.
package server

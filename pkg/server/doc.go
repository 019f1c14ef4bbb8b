// Package server exposes the schedule mode over HTTP.
//
// Routes:
//
//	GET /metrics   Prometheus exposition of the export metrics
//	GET /healthz   readiness: last scheduled run and history database
//	GET /livez     liveness
//	GET /version   build information
//	GET /runs      latest recorded runs as JSON (?limit=N)
//
// The router is go-chi/chi with request IDs, panic recovery, W3C trace
// context extraction and debug-level request logging.
package server

// Package health implements the liveness, readiness and version endpoints
// of the schedule mode.
//
// Components register checks by name; the readiness endpoint runs them
// concurrently with a per-check timeout and answers 503 when any fails.
//
//	checker := health.New(0)
//	checker.RegisterCheck("history", store.Ping)
//	router.Get("/healthz", checker.ReadinessHandler())
package health

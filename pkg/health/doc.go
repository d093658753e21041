// Package health serves liveness and readiness probes.
//
// [LivenessHandler] always answers OK while the process runs.
// [ReadinessHandler] runs a set of named [Checks] in parallel under a
// timeout and answers 503 if any fails. The session kit registers one check
// per external store connection:
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(kit.Checks(),
//		health.WithTimeout(3*time.Second),
//		health.WithLogger(log),
//	))
//
// Responses are plain text ("OK" / "Service Unavailable") unless the client
// sends Accept: application/json or ?format=json:
//
//	{"status":"unhealthy","checks":{"redis":{"status":"unhealthy","error":"..."}}}
//
// [Run] executes the same checks outside HTTP and joins failures under
// [ErrCheckFailed]; checks that hit the deadline also match [ErrCheckTimeout].
package health

// Package prometheus renders ceremony metrics in Prometheus text exposition
// format.
//
// [NewExporter] accepts any snapshot source and exposes an [net/http.Handler]
// that renders all counters and the submit-prompt histogram. Counter names
// are prefixed emberauth_*_total; the single histogram is
// emberauth_submit_latency_ms.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate core state.
package prometheus

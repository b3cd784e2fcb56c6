// Package prometheus renders session metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts a [goSession.Session] and exposes an
// [http.Handler]. Counter names are prefixed gosession_*_total; the single
// histogram is gosession_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate session state.
package prometheus

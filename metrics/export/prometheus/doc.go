// Package prometheus renders goGate metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] accepts a [goGate.Gate] and exposes an [http.Handler].
// Counter names are prefixed gogate_*_total; the single histogram is
// gogate_authorize_latency_seconds. The route table version and each limiter
// policy's limit are rendered as gauges.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry: callers mount the Handler.
//   - Mutate gate state.
package prometheus

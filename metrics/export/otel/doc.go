// Package otel provides OpenTelemetry metric exporter bindings for goGate counters and
// histograms.
//
// [NewOTelExporter] registers Int64ObservableCounter instruments for each gate metric
// and Int64ObservableGauge per histogram bucket. A single callback reads
// [goGate.Gate.MetricsSnapshot] on each collection cycle. When the source can Ping
// its token store, the callback also reports gogate_store_up and
// gogate_store_ping_seconds.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider: callers supply the Meter.
//   - Mutate gate state.
package otel

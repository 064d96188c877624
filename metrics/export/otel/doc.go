// Package otel provides OpenTelemetry metric exporter bindings for ceremony
// counters and histograms.
//
// [NewExporter] registers Int64ObservableCounter instruments for each metric
// and Int64ObservableGauge per histogram bucket. A single callback reads the
// source snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate core state.
package otel

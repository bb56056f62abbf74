// Package otel publishes tglink engine metrics through an OpenTelemetry meter.
//
// [NewExporter] registers an observable counter per engine counter and a gauge
// per latency bucket. One callback reads [tglink.Engine.MetricsSnapshot] each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel

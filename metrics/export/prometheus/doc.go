// Package prometheus exposes tglink engine metrics to Prometheus.
//
// [NewCollector] wraps an [tglink.Engine] in a prometheus.Collector that the
// caller registers on its own registry. Counter names are prefixed
// tglink_*_total; the single histogram is tglink_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register anything in the global Prometheus registry.
//   - Mutate engine state.
package prometheus

// Package prometheus exposes authgate engine metrics through the Prometheus
// client library.
//
// [Exporter] is a [prometheus.Collector] that reads
// [authgate.Engine.MetricsSnapshot] on every scrape. Counter names are
// authgate_*_total and the verify latency histogram is
// authgate_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry; [Exporter.Handler] uses
//     a private one and callers may register the collector elsewhere.
//   - Mutate engine state.
package prometheus

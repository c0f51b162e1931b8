// Package prometheus renders goSession metrics for Prometheus scraping.
//
// [NewPrometheusExporter] wraps a [goSession.Manager] and exposes an
// [http.Handler] that writes every counter and histogram in text exposition
// format. Counters are named gosession_*_total; the histograms are
// gosession_store_latency_seconds and gosession_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate manager state.
package prometheus

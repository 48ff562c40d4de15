// Package prometheus exposes tokenAuth engine metrics as a client_golang
// collector.
//
// [NewCollector] reads Engine.MetricsSnapshot on every scrape and emits one
// counter per engine counter plus the gate latency histogram. Register it on
// a registry owned by the caller, or use [Handler] for a ready-made
// /metrics endpoint.
package prometheus

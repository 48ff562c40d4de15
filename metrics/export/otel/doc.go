// Package otel publishes tokenAuth engine metrics through an OpenTelemetry
// Meter.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per cumulative gate latency bucket. A single
// callback reads Engine.MetricsSnapshot on each collection. Callers own the
// MeterProvider.
package otel

// Package otel binds authkit counters to OpenTelemetry observable instruments.
//
// [NewOTelExporter] creates one Int64ObservableCounter per authkit counter and
// one cumulative Int64ObservableGauge per latency bucket. The caller owns the
// MeterProvider.
package otel

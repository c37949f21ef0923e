// Package prometheus exposes authkit counters through client_golang.
//
// [NewPrometheusExporter] wraps an [authkit.Client] in a prometheus.Collector
// that reads a fresh snapshot on every scrape. Counters are named
// authkit_*_total and the flow latency histogram is
// authkit_flow_latency_seconds. The exporter owns a private registry served
// by Handler; Register also attaches it to a caller's registry.
package prometheus

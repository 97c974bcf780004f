// Package metrics declares the Prometheus instruments shared across
// the billing and automation surfaces and the handler serving them.
//
// Instruments live on the default registry; cmd/server mounts
// metrics.Handler() at /metrics.
package metrics

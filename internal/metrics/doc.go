// Package metrics exposes Prometheus instrumentation for simulation runs.
package metrics

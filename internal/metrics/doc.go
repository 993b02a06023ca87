// Package metrics exposes gateway counters in the Prometheus format.
package metrics

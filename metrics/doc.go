// Package metrics exposes prometheus collectors for resolution and
// transfer. All methods are safe on a nil *Metrics.
package metrics

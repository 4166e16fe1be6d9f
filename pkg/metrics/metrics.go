// Package metrics defines the gateway's Prometheus metrics surface as
// interfaces, whose pkg/metrics/prometheus constructors return nil when
// metrics are disabled, mirroring the teacher's pkg/metrics indirection.
// internal/canbus, internal/dispatch and internal/feature do not take these
// interfaces; pkg/gateway uses only the registry, served at /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.Mutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates the process-wide Prometheus registry metrics
// constructors bind to. Calling it a second time replaces the registry.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// GetRegistry returns the current registry, or nil if InitRegistry was
// never called.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}

// IsEnabled reports whether metrics collection is active.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// NetworkMetrics records per-network health and throughput.
type NetworkMetrics interface {
	RecordHealth(networkID string, healthy bool)
	RecordMessage(networkID string)
	RecordDrop(networkID string)
	RecordError(networkID string)
	RecordFaultRecovery(networkID string)
}

// DecoderMetrics records per-decoder throughput and error counts.
type DecoderMetrics interface {
	RecordClassification(protocolName, class string)
	RecordDecodeError(protocolName string)
	RecordSafetyViolation(component string)
	RecordMultiplexBufferSize(networkID string, count int)
}

// FeatureMetrics records feature lifecycle state.
type FeatureMetrics interface {
	RecordFeatureState(name, state string)
}

// Package prometheus is the Prometheus-backed implementation of
// pkg/metrics's interfaces, adapting the teacher's
// pkg/metrics/prometheus/{badger,cache,s3}.go promauto-vec style to the
// gateway's network/decoder/feature domain.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/coachlink/gateway/pkg/metrics"
)

// networkMetrics is the Prometheus implementation of metrics.NetworkMetrics.
type networkMetrics struct {
	health          *prometheus.GaugeVec
	messagesTotal   *prometheus.CounterVec
	dropsTotal      *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	faultRecoveries *prometheus.CounterVec
}

// NewNetworkMetrics creates a Prometheus-backed NetworkMetrics instance.
// Returns nil if metrics are not enabled (metrics.InitRegistry not
// called), so callers can pass nil straight through at zero overhead.
func NewNetworkMetrics() metrics.NetworkMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &networkMetrics{
		health: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_network_healthy",
				Help: "Whether a registered CAN network is currently healthy (1) or not (0)",
			},
			[]string{"network_id"},
		),
		messagesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_network_messages_total",
				Help: "Total frames received per network",
			},
			[]string{"network_id"},
		),
		dropsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_network_drops_total",
				Help: "Total frames dropped per network due to backpressure",
			},
			[]string{"network_id"},
		),
		errorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_network_errors_total",
				Help: "Total bus errors recorded per network",
			},
			[]string{"network_id"},
		),
		faultRecoveries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_network_fault_recoveries_total",
				Help: "Total successful fault-isolation recoveries per network",
			},
			[]string{"network_id"},
		),
	}
}

func (m *networkMetrics) RecordHealth(networkID string, healthy bool) {
	if m == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.health.WithLabelValues(networkID).Set(v)
}

func (m *networkMetrics) RecordMessage(networkID string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(networkID).Inc()
}

func (m *networkMetrics) RecordDrop(networkID string) {
	if m == nil {
		return
	}
	m.dropsTotal.WithLabelValues(networkID).Inc()
}

func (m *networkMetrics) RecordError(networkID string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(networkID).Inc()
}

func (m *networkMetrics) RecordFaultRecovery(networkID string) {
	if m == nil {
		return
	}
	m.faultRecoveries.WithLabelValues(networkID).Inc()
}

package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/coachlink/gateway/pkg/metrics"
)

// decoderMetrics is the Prometheus implementation of metrics.DecoderMetrics.
type decoderMetrics struct {
	classifications   *prometheus.CounterVec
	decodeErrors      *prometheus.CounterVec
	safetyViolations  *prometheus.CounterVec
	multiplexBuffered *prometheus.GaugeVec
}

// NewDecoderMetrics creates a Prometheus-backed DecoderMetrics instance.
// Returns nil if metrics are not enabled.
func NewDecoderMetrics() metrics.DecoderMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &decoderMetrics{
		classifications: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_frames_classified_total",
				Help: "Total frames classified by protocol and classification",
			},
			[]string{"protocol", "classification"},
		),
		decodeErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_decode_errors_total",
				Help: "Total decode errors by protocol",
			},
			[]string{"protocol"},
		),
		safetyViolations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_safety_interlock_violations_total",
				Help: "Total safety interlock violations by component",
			},
			[]string{"component"},
		),
		multiplexBuffered: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_firefly_multiplex_buffered",
				Help: "Current count of in-flight Firefly multiplex reassembly buffers per network",
			},
			[]string{"network_id"},
		),
	}
}

func (m *decoderMetrics) RecordClassification(protocolName, class string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(protocolName, class).Inc()
}

func (m *decoderMetrics) RecordDecodeError(protocolName string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(protocolName).Inc()
}

func (m *decoderMetrics) RecordSafetyViolation(component string) {
	if m == nil {
		return
	}
	m.safetyViolations.WithLabelValues(component).Inc()
}

func (m *decoderMetrics) RecordMultiplexBufferSize(networkID string, count int) {
	if m == nil {
		return
	}
	m.multiplexBuffered.WithLabelValues(networkID).Set(float64(count))
}

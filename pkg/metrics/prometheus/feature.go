package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/coachlink/gateway/pkg/metrics"
)

// featureMetrics is the Prometheus implementation of metrics.FeatureMetrics.
type featureMetrics struct {
	state *prometheus.GaugeVec
}

// NewFeatureMetrics creates a Prometheus-backed FeatureMetrics instance.
// Returns nil if metrics are not enabled.
func NewFeatureMetrics() metrics.FeatureMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &featureMetrics{
		state: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_feature_state",
				Help: "Feature lifecycle state as a one-hot gauge (1 for the current state, 0 otherwise)",
			},
			[]string{"feature", "state"},
		),
	}
}

func (m *featureMetrics) RecordFeatureState(name, state string) {
	if m == nil {
		return
	}
	for _, s := range []string{"stopped", "starting", "running", "stopping", "failed"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		m.state.WithLabelValues(name, s).Set(v)
	}
}

package config

import (
	"strings"
	"time"

	"github.com/coachlink/gateway/internal/canbus"
	"github.com/coachlink/gateway/internal/telemetry"
)

// ApplyDefaults fills in any unspecified configuration fields with
// sensible defaults, following the teacher's "zero values replaced,
// explicit values preserved" strategy.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyMultiNetworkDefaults(&cfg.MultiNetwork)
	applyFireflyDefaults(&cfg.Firefly)
	applyJ1939Defaults(&cfg.J1939)
	applyNetworkDefaults(cfg.CAN)
	applyPersistenceDefaults(&cfg.Persistence)
	applyHTTPDefaults(&cfg.HTTP)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *telemetry.Config) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "coachlink-gateway"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyMultiNetworkDefaults(cfg *MultiNetworkConfig) {
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = canbus.DefaultHealthCheckInterval
	}
	if cfg.RouterQueueCapacity == 0 {
		cfg.RouterQueueCapacity = 256
	}
	if cfg.InboundQueueCapacity == 0 {
		cfg.InboundQueueCapacity = 256
	}
}

func applyFireflyDefaults(cfg *FireflyConfig) {
	if cfg.MultiplexTimeout == 0 {
		cfg.MultiplexTimeout = 5 * time.Second
	}
}

func applyJ1939Defaults(cfg *J1939Config) {
	// No numeric/string defaults beyond zero values; every flag is
	// opt-in and false is a valid configuration.
	_ = cfg
}

func applyNetworkDefaults(networks []NetworkConfig) {
	for i := range networks {
		if networks[i].Priority == "" {
			networks[i].Priority = "normal"
		}
		if networks[i].Bustype == "" {
			networks[i].Bustype = "virtual"
		}
	}
}

func applyPersistenceDefaults(cfg *PersistenceConfig) {
	if cfg.Journal.Enabled && cfg.Journal.MaxPerNode == 0 {
		cfg.Journal.MaxPerNode = 10000
	}
	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		cfg.Journal.Path = "/var/lib/coachlink-gateway/journal"
	}
}

func applyHTTPDefaults(cfg *HTTPConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}
}

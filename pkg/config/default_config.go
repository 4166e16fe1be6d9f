package config

import "github.com/coachlink/gateway/internal/telemetry"

// GetDefaultConfig returns the out-of-the-box configuration used when no
// config file is found: ambient stack defaulted, no networks registered
// (the operator must configure at least one via `gatewayd init`).
func GetDefaultConfig() *Config {
	cfg := &Config{
		Telemetry: telemetry.DefaultConfig(),
	}
	ApplyDefaults(cfg)
	return cfg
}

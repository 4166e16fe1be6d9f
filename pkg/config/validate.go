package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg against its struct tags and the cross-field
// invariants viper/mapstructure tags alone cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	seen := make(map[string]bool, len(cfg.CAN))
	for _, n := range cfg.CAN {
		if seen[n.NetworkID] {
			return fmt.Errorf("duplicate network_id %q in can configuration", n.NetworkID)
		}
		seen[n.NetworkID] = true

		if n.Protocol == "rvc" && n.SpecTablePath == "" {
			return fmt.Errorf("network %q: protocol rvc requires spec_table_path", n.NetworkID)
		}
	}

	if cfg.Persistence.Eventlog.Enabled && cfg.Persistence.Eventlog.DSN == "" {
		return fmt.Errorf("persistence.eventlog.enabled requires persistence.eventlog.dsn")
	}

	if cfg.Control.RequireToken && cfg.Control.SigningKey == "" {
		return fmt.Errorf("control.require_token requires control.signing_key")
	}

	return nil
}

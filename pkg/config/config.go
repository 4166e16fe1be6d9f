// Package config loads the gateway's static configuration: CAN network
// definitions, protocol feature flags, and the ambient logging/telemetry/
// metrics sections, per spec §6 and the teacher's layered viper/validator
// approach.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/coachlink/gateway/internal/logger"
	"github.com/coachlink/gateway/internal/telemetry"
)

// Config is the gateway's complete static configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (GATEWAY_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout bounds graceful shutdown of every supervised task
	// and feature, per spec §5.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// CAN lists every logical network the multi-network manager
	// registers at startup (spec §4.1, §6).
	CAN []NetworkConfig `mapstructure:"can" yaml:"can" validate:"dive"`

	// MultiNetwork controls cross-network health monitoring, fault
	// isolation/recovery, and routing (spec §4.1, §4.2).
	MultiNetwork MultiNetworkConfig `mapstructure:"multi_network" yaml:"multi_network"`

	// Firefly controls multiplex reassembly and interlock wiring
	// (spec §4.2, §4.6).
	Firefly FireflyConfig `mapstructure:"firefly" yaml:"firefly"`

	// J1939 controls manufacturer PGN layering and the J1939<->RV-C
	// bridge (spec §4.4).
	J1939 J1939Config `mapstructure:"j1939" yaml:"j1939"`

	// SpartanK2 controls chassis safety-interlock decoding
	// (spec §4.5).
	SpartanK2 SpartanK2Config `mapstructure:"spartan_k2" yaml:"spartan_k2"`

	// Persistence controls the optional diagnostic journal and
	// long-term event archive.
	Persistence PersistenceConfig `mapstructure:"persistence" yaml:"persistence"`

	// Control gates entity Control() calls behind JWT verification.
	Control ControlConfig `mapstructure:"control" yaml:"control"`

	// HTTP configures the thin status/health HTTP surface.
	HTTP HTTPConfig `mapstructure:"http" yaml:"http"`
}

// NetworkConfig describes one logical CAN network registered at startup.
type NetworkConfig struct {
	// NetworkID is this network's unique identifier.
	NetworkID string `mapstructure:"network_id" yaml:"network_id" validate:"required"`

	// Interface is the OS-level CAN interface name (e.g. "can0").
	Interface string `mapstructure:"interface" yaml:"interface" validate:"required"`

	// Bustype selects the transport family passed to the bus-transport
	// factory (e.g. "socketcan", "virtual"); the core never interprets it
	// beyond forwarding it, per spec §6's can.bustype and the abstract
	// BusTransport boundary in spec §1/§6.
	Bustype string `mapstructure:"bustype" yaml:"bustype,omitempty"`

	// Protocol selects the decoder family: "rvc" or "j1939".
	Protocol string `mapstructure:"protocol" yaml:"protocol" validate:"required,oneof=rvc j1939"`

	// Bitrate is the bus bitrate in bits/second (e.g. 250000).
	Bitrate int `mapstructure:"bitrate" yaml:"bitrate"`

	// Priority is the cross-network routing/backpressure priority class.
	Priority string `mapstructure:"priority" yaml:"priority"`

	// Isolation enables fault isolation for this network independent of
	// the global MultiNetwork.FaultIsolation setting.
	Isolation bool `mapstructure:"isolation" yaml:"isolation"`

	// Filters restricts decoding to a specific PGN/DGN allowlist; empty
	// means every known PGN/DGN is decoded.
	Filters []uint32 `mapstructure:"filters" yaml:"filters,omitempty"`

	// SpecTablePath points at the RV-C spec table YAML for this network
	// (ignored for protocol "j1939").
	SpecTablePath string `mapstructure:"spec_table_path" yaml:"spec_table_path,omitempty"`

	// CoachMappingPath points at the coach-mapping YAML for this
	// network (ignored for protocol "j1939").
	CoachMappingPath string `mapstructure:"coach_mapping_path" yaml:"coach_mapping_path,omitempty"`
}

// MultiNetworkConfig controls the multi-network manager, per spec §4.1.
type MultiNetworkConfig struct {
	Enabled              bool          `mapstructure:"enabled" yaml:"enabled"`
	HealthMonitoring     bool          `mapstructure:"health_monitoring" yaml:"health_monitoring"`
	FaultIsolation       bool          `mapstructure:"fault_isolation" yaml:"fault_isolation"`
	CrossNetworkRouting  bool          `mapstructure:"cross_network_routing" yaml:"cross_network_routing"`
	HealthCheckInterval  time.Duration `mapstructure:"health_check_interval" yaml:"health_check_interval"`
	RouterQueueCapacity  int           `mapstructure:"router_queue_capacity" yaml:"router_queue_capacity"`
	InboundQueueCapacity int           `mapstructure:"inbound_queue_capacity" yaml:"inbound_queue_capacity"`
}

// FireflyConfig controls Firefly multiplex reassembly, per spec §4.2/§4.6.
type FireflyConfig struct {
	Enabled              bool          `mapstructure:"enabled" yaml:"enabled"`
	MultiplexTimeout     time.Duration `mapstructure:"multiplex_timeout" yaml:"multiplex_timeout"`
	InterlockComponents  []string      `mapstructure:"interlock_components" yaml:"interlock_components,omitempty"`
	RequiredInterlocks   []string      `mapstructure:"required_interlocks" yaml:"required_interlocks,omitempty"`
}

// J1939Config controls manufacturer PGN layering and RV-C bridging, per
// spec §4.4.
type J1939Config struct {
	Enabled                 bool     `mapstructure:"enabled" yaml:"enabled"`
	EnableCumminsExtensions bool     `mapstructure:"enable_cummins_extensions" yaml:"enable_cummins_extensions"`
	EnableAllisonExtensions bool     `mapstructure:"enable_allison_extensions" yaml:"enable_allison_extensions"`
	EnableChassisExtensions bool     `mapstructure:"enable_chassis_extensions" yaml:"enable_chassis_extensions"`
	EnableAddressValidation bool     `mapstructure:"enable_address_validation" yaml:"enable_address_validation"`
	PriorityCriticalPGNs    []uint32 `mapstructure:"priority_critical_pgns" yaml:"priority_critical_pgns,omitempty"`
	PriorityHighPGNs        []uint32 `mapstructure:"priority_high_pgns" yaml:"priority_high_pgns,omitempty"`
	BridgeRVC               bool     `mapstructure:"bridge_rvc" yaml:"bridge_rvc"`
	BridgeEngineData        bool     `mapstructure:"bridge_engine_data" yaml:"bridge_engine_data"`
	BridgeTransmissionData  bool     `mapstructure:"bridge_transmission_data" yaml:"bridge_transmission_data"`
}

// SpartanK2Config controls the chassis safety-interlock decoder, per
// spec §4.5.
type SpartanK2Config struct {
	Enabled             bool `mapstructure:"enabled" yaml:"enabled"`
	SafetyInterlocks    bool `mapstructure:"safety_interlocks" yaml:"safety_interlocks"`
	AdvancedDiagnostics bool `mapstructure:"advanced_diagnostics" yaml:"advanced_diagnostics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// PersistenceConfig controls the optional diagnostic journal and
// long-term event archive (spec_full §5's supplemented features).
type PersistenceConfig struct {
	Journal  JournalConfig  `mapstructure:"journal" yaml:"journal"`
	Eventlog EventlogConfig `mapstructure:"eventlog" yaml:"eventlog"`
}

// JournalConfig controls the badger-backed diagnostic journal.
type JournalConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Path        string `mapstructure:"path" yaml:"path"`
	MaxPerNode  int    `mapstructure:"max_per_node" yaml:"max_per_node"`
}

// EventlogConfig controls the optional Postgres-backed long-term archive.
type EventlogConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// ControlConfig gates entity Control() calls behind JWT verification.
type ControlConfig struct {
	RequireToken bool   `mapstructure:"require_token" yaml:"require_token"`
	SigningKey   string `mapstructure:"signing_key" yaml:"signing_key,omitempty"`
}

// HTTPConfig configures the thin status/health HTTP surface.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-friendly error when the
// default config file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  gatewayd init\n\n"+
				"Or specify a custom config file:\n"+
				"  gatewayd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  gatewayd init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in YAML, creating parent directories as
// needed. Used by `gatewayd init` to scaffold a starter config.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// durationDecodeHook converts human-readable duration strings
// ("30s", "5m") into time.Duration during mapstructure decode.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "coachlink-gateway")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "coachlink-gateway")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}

// ApplyLoggerConfig initializes internal/logger from cfg.Logging.
func ApplyLoggerConfig(cfg *Config) error {
	return logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

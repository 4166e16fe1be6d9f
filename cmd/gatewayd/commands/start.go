package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coachlink/gateway/internal/feature"
	"github.com/coachlink/gateway/internal/logger"
	"github.com/coachlink/gateway/pkg/config"
	"github.com/coachlink/gateway/pkg/gateway"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the coachlink-gateway process",
	Long: `Start the coachlink-gateway CAN gateway with the specified configuration.

The process runs in the foreground until it receives SIGINT or SIGTERM, at
which point it shuts down every registered feature in reverse dependency
order and exits.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/coachlink-gateway/config.yaml.

Examples:
  # Start with default config location
  gatewayd start

  # Start with custom config file
  gatewayd start --config /etc/coachlink-gateway/config.yaml

  # Override logging level via environment variable
  GATEWAY_LOGGING_LEVEL=DEBUG gatewayd start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := config.ApplyLoggerConfig(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("coachlink-gateway starting", "version", Version, "source", getConfigSource(GetConfigFile()))

	svc, err := gateway.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to build gateway: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		var startupErr *feature.StartupError
		if errors.As(err, &startupErr) {
			return fmt.Errorf("critical feature %q failed to start: %w", startupErr.Feature, startupErr.Err)
		}
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	logger.Info("coachlink-gateway running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	signal.Stop(sigChan)

	logger.Info("shutdown signal received, stopping gateway")
	svc.Stop()
	logger.Info("coachlink-gateway stopped")

	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

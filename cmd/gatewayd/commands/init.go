package commands

import (
	"fmt"
	"os"

	"github.com/coachlink/gateway/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample coachlink-gateway configuration file.

By default, the configuration file is created at
$XDG_CONFIG_HOME/coachlink-gateway/config.yaml. Use --config to specify a
custom path.

Examples:
  # Initialize with default location
  gatewayd init

  # Initialize with custom path
  gatewayd init --config /etc/coachlink-gateway/config.yaml

  # Force overwrite existing config
  gatewayd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	cfg := config.GetDefaultConfig()
	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to list your CAN networks")
	fmt.Println("  2. Start the gateway with: gatewayd start")
	fmt.Printf("  3. Or specify a custom config: gatewayd start --config %s\n", configPath)

	return nil
}

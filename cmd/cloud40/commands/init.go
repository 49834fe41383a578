package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample 0x40-cloud configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/0x40-cloud/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  cloud40 init

  # Initialize with custom path
  cloud40 init --config /etc/cloud40/config.yaml

  # Force overwrite existing config
  cloud40 init --force`,
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

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	cfg := config.GetDefaultConfig()

	// A fresh install gets a usable development secret. Production
	// deployments should override it via environment variable.
	secret, err := randomSecret(32)
	if err != nil {
		return err
	}
	cfg.Auth.Secret = secret

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: cloud40 start")
	fmt.Printf("  3. Or specify custom config: cloud40 start --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  A random JWT secret has been generated for development use.")
	fmt.Println("  For production, generate a secure secret and use an environment variable:")
	fmt.Println("    # Generates a 64-character hex string (32 bytes of entropy)")
	fmt.Println("    export CLOUD40_AUTH_SECRET=$(openssl rand -hex 32)")

	return nil
}

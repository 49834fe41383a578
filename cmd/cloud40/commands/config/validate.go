package config

import (
	"fmt"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the 0x40 Cloud configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  cloud40 config validate

  # Validate specific config file
  cloud40 config validate --config /etc/cloud40/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string

	if len(cfg.Auth.Secret) < 32 {
		warnings = append(warnings, "JWT secret missing or shorter than 32 characters - the server will refuse to start")
	}

	if cfg.Storage.Path == "" && cfg.Storage.Backend != config.BackendS3 {
		warnings = append(warnings, "Storage path not configured")
	}

	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	return nil
}

package config

import (
	"os"

	"github.com/Dreamer0iQ/0x40-cloud/internal/cli/output"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/config"
	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the current 0x40 Cloud configuration.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show default config as YAML
  cloud40 config show

  # Show as JSON
  cloud40 config show --output json

  # Show specific config file
  cloud40 config show --config /etc/cloud40/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}
	return format.Print(os.Stdout, cfg)
}

package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// randomSecret returns a hex string carrying n bytes of entropy.
func randomSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource() string {
	if source := activeConfigFile(); source != "" {
		return source
	}
	return "defaults"
}

// activeConfigFile returns the config file path in use, or empty when
// running on pure defaults.
func activeConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return ""
}

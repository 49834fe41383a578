package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Dreamer0iQ/0x40-cloud/internal/bytesize"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced, explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	cfg.Database.ApplyDefaults()
	applyStorageDefaults(&cfg.Storage)
	applyUploadDefaults(&cfg.Upload)

	if cfg.Quota.DefaultLimit == 0 {
		cfg.Quota.DefaultLimit = 10 * bytesize.GiB
	}

	applyPreviewCacheDefaults(&cfg.PreviewCache)
	cfg.Activity.ApplyDefaults()
	applyAuthDefaults(cfg)
	cfg.API.ApplyDefaults()
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

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Backend == "" {
		cfg.Backend = BackendFS
	}
	if cfg.Backend == BackendFS && cfg.Path == "" {
		cfg.Path = filepath.Join(getDataDir(), "blobs")
	}
}

func applyUploadDefaults(cfg *UploadConfig) {
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = 2 * bytesize.GiB
	}
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = os.TempDir()
	}
}

func applyPreviewCacheDefaults(cfg *PreviewCacheConfig) {
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(getDataDir(), "previews")
	}
	cfg.Cache.ApplyDefaults()
}

func applyAuthDefaults(cfg *Config) {
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "0x40-cloud"
	}
	if cfg.Auth.AccessTokenDuration == 0 {
		cfg.Auth.AccessTokenDuration = 15 * time.Minute
	}
	if cfg.Auth.RefreshTokenDuration == 0 {
		cfg.Auth.RefreshTokenDuration = 7 * 24 * time.Hour
	}
}

// GetDefaultConfig returns a Config struct with all default values
// applied. Useful for generating sample configuration files and tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: store.Config{
			Type: store.DatabaseTypeSQLite,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if cfg.Storage.Backend == BackendS3 && cfg.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage: s3 backend requires a bucket")
	}

	if len(cfg.Auth.Secret) > 0 && len(cfg.Auth.Secret) < 32 {
		return fmt.Errorf("auth: secret must be at least 32 characters")
	}

	return nil
}

// Package config loads and validates the server configuration from
// file, environment and defaults.
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

	"github.com/Dreamer0iQ/0x40-cloud/internal/bytesize"
	"github.com/Dreamer0iQ/0x40-cloud/internal/telemetry"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/activity"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/api"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/api/auth"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/content/cache"
	s3store "github.com/Dreamer0iQ/0x40-cloud/pkg/content/store/s3"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

// Config represents the complete server configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (CLOUD40_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the metadata catalog (SQLite or PostgreSQL)
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Storage configures the physical blob store backend
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Upload bounds incoming file transfers
	Upload UploadConfig `mapstructure:"upload" yaml:"upload"`

	// Quota controls per-user storage accounting
	Quota QuotaConfig `mapstructure:"quota" yaml:"quota"`

	// PreviewCache configures the Badger-backed preview cache
	PreviewCache PreviewCacheConfig `mapstructure:"preview_cache" yaml:"preview_cache"`

	// Activity configures the Redis-backed interaction tracker used for
	// file suggestions. Leaving the address empty disables tracking.
	Activity activity.Config `mapstructure:"activity" yaml:"activity"`

	// Auth configures JWT token issuance
	Auth auth.JWTConfig `mapstructure:"auth" yaml:"auth"`

	// API configures the HTTP server
	API api.Config `mapstructure:"api" yaml:"api"`

	// Admin contains the bootstrap administrator configuration
	Admin AdminConfig `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written.
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing and
// Pyroscope continuous profiling.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	// Default: false (opt-in)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use a non-TLS connection.
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled.
	// Default: false (opt-in)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL.
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect.
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures Prometheus metrics collection. The scrape
// endpoint is served on the API port at /metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is enabled.
	// Default: false (opt-in, zero overhead when disabled)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// StorageBackend selects the physical blob store implementation.
type StorageBackend string

const (
	// BackendFS stores blobs on the local filesystem.
	BackendFS StorageBackend = "fs"
	// BackendS3 stores blobs in an S3-compatible object store.
	BackendS3 StorageBackend = "s3"
)

// StorageConfig configures the physical blob store backend.
type StorageConfig struct {
	// Backend selects the blob store implementation.
	// Valid values: fs (default), s3
	Backend StorageBackend `mapstructure:"backend" validate:"omitempty,oneof=fs s3" yaml:"backend"`

	// Path is the blob directory for the fs backend.
	// Default: $XDG_DATA_HOME/0x40-cloud/blobs
	Path string `mapstructure:"path" yaml:"path"`

	// S3 configures the s3 backend.
	S3 s3store.Config `mapstructure:"s3" yaml:"s3"`
}

// UploadConfig bounds incoming file transfers.
type UploadConfig struct {
	// MaxFileSize is the maximum size of a single uploaded file.
	// Supports human-readable formats: "2Gi", "500MB".
	// Default: 2Gi. Zero disables the limit.
	MaxFileSize bytesize.ByteSize `mapstructure:"max_file_size" yaml:"max_file_size,omitempty"`

	// SpoolDir is where uploads are staged while being hashed.
	// Default: the system temp directory.
	SpoolDir string `mapstructure:"spool_dir" yaml:"spool_dir,omitempty"`
}

// QuotaConfig controls per-user storage accounting.
type QuotaConfig struct {
	// DefaultLimit is the per-user logical storage limit applied to
	// users without an individual quota. Zero disables enforcement.
	// Default: 10Gi
	DefaultLimit bytesize.ByteSize `mapstructure:"default_limit" yaml:"default_limit,omitempty"`
}

// PreviewCacheConfig configures the Badger-backed preview cache.
type PreviewCacheConfig struct {
	// Enabled controls whether previews are cached.
	// Default: true
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// Cache holds the Badger cache settings.
	Cache cache.Config `mapstructure:",squash" yaml:",inline"`
}

// IsEnabled reports whether the preview cache should be started.
// Defaults to true if not explicitly set.
func (c *PreviewCacheConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// AdminConfig contains the bootstrap administrator configuration.
// On first start an "admin" account is created with this password.
type AdminConfig struct {
	// Password is the bootstrap admin password. When empty and no admin
	// account exists yet, a random password is generated on first start
	// and printed once.
	// Override: CLOUD40_ADMIN_PASSWORD
	Password string `mapstructure:"password" yaml:"password,omitempty"`
}

// TelemetryConfig converts to the telemetry package's config type.
func (c *Config) TelemetryConfig(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    "0x40-cloud",
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// ProfilingConfig converts to the telemetry package's profiling config.
func (c *Config) ProfilingConfig(version string) telemetry.ProfilingConfig {
	return telemetry.ProfilingConfig{
		Enabled:        c.Telemetry.Profiling.Enabled,
		ServiceName:    "0x40-cloud",
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Profiling.Endpoint,
		ProfileTypes:   c.Telemetry.Profiling.ProfileTypes,
	}
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
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
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the
// config file cannot be found.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  cloud40 init\n\n"+
				"Or specify a custom config file:\n"+
				"  cloud40 <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  cloud40 init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML
// format. The file is written with owner-only permissions because it may
// contain secrets.
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

// setupViper configures viper with environment variables and config
// file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the CLOUD40_ prefix and underscores.
	// Example: CLOUD40_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("CLOUD40")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. Returns
// (fileFound, error).
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

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize
// so config files can use human-readable sizes like "1Gi" or "500MB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings to time.Duration so config files
// can use human-readable durations like "30s" or "5m".
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

// getConfigDir returns the configuration directory path. Uses
// XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "0x40-cloud")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "0x40-cloud")
}

// getDataDir returns the data directory path. Uses XDG_DATA_HOME if
// set, otherwise ~/.local/share.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "0x40-cloud")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "0x40-cloud")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for
// the init command).
func GetConfigDir() string {
	return getConfigDir()
}

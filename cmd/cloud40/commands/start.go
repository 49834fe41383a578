package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/internal/telemetry"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/activity"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/api"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/api/auth"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/config"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/content"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/content/cache"
	contentstore "github.com/Dreamer0iQ/0x40-cloud/pkg/content/store"
	fsstore "github.com/Dreamer0iQ/0x40-cloud/pkg/content/store/fs"
	s3store "github.com/Dreamer0iQ/0x40-cloud/pkg/content/store/s3"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/lifecycle"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/metrics"
	promexport "github.com/Dreamer0iQ/0x40-cloud/pkg/metrics/prometheus"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/quota"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/share"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the 0x40-cloud server",
	Long: `Start the 0x40-cloud server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/0x40-cloud/config.yaml.

Examples:
  # Start with the default config
  cloud40 start

  # Start with custom config file
  cloud40 start --config /etc/cloud40/config.yaml

  # Start with environment variable overrides
  CLOUD40_LOGGING_LEVEL=DEBUG cloud40 start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, cfg.TelemetryConfig(Version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(cfg.ProfilingConfig(Version))
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	fmt.Println("0x40-cloud - Personal cloud drive server")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource())
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// Log level changes take effect without a restart; everything else
	// still requires one.
	if configFile := activeConfigFile(); configFile != "" {
		err := config.Watch(ctx, configFile, func(next *config.Config) {
			if next.Logging.Level != cfg.Logging.Level {
				logger.Info("Log level changed", "level", next.Logging.Level)
				logger.SetLevel(next.Logging.Level)
				cfg.Logging.Level = next.Logging.Level
			}
		})
		if err != nil {
			logger.Warn("Config watching disabled", logger.KeyError, err)
		}
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "endpoint", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	catalog, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	defer func() {
		if err := catalog.Close(); err != nil {
			logger.Error("catalog close error", logger.KeyError, err)
		}
	}()

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize blob store: %w", err)
	}
	logger.Info("Blob store initialized", "backend", cfg.Storage.Backend)

	contentSvc := content.NewService(blobs,
		content.WithSpoolDir(cfg.Upload.SpoolDir),
		content.WithMaxSize(cfg.Upload.MaxFileSize.Int64()),
	)

	var previews *cache.Cache
	if cfg.PreviewCache.IsEnabled() {
		previews, err = cache.New(cfg.PreviewCache.Cache)
		if err != nil {
			return fmt.Errorf("failed to initialize preview cache: %w", err)
		}
		defer func() {
			if err := previews.Close(); err != nil {
				logger.Error("preview cache close error", logger.KeyError, err)
			}
		}()
		logger.Info("Preview cache enabled", "path", cfg.PreviewCache.Cache.Dir)
	} else {
		logger.Info("Preview cache disabled")
	}

	tracker, err := activity.New(cfg.Activity)
	if err != nil {
		return fmt.Errorf("failed to initialize activity tracker: %w", err)
	}
	defer func() {
		if err := tracker.Close(); err != nil {
			logger.Error("activity tracker close error", logger.KeyError, err)
		}
	}()
	if cfg.Activity.Addr != "" {
		logger.Info("Activity tracking enabled", "addr", cfg.Activity.Addr)
	}

	quotaSvc := quota.NewService(catalog, cfg.Storage.Path, cfg.Quota.DefaultLimit.Int64())

	filesSvc := lifecycle.NewService(catalog, contentSvc, quotaSvc, tracker,
		lifecycle.WithPreviewCache(previews),
		lifecycle.WithTransferMetrics(promexport.NewTransferMetrics()),
	)
	sharesSvc := share.NewService(catalog, share.WithMetrics(promexport.NewShareMetrics()))

	jwtSvc, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	if err := bootstrapAdmin(ctx, catalog, cfg.Admin.Password); err != nil {
		return err
	}

	cfg.API.ShutdownTimeout = cfg.ShutdownTimeout
	apiServer := api.NewServer(cfg.API, api.Dependencies{
		Catalog:     catalog,
		Files:       filesSvc,
		Shares:      sharesSvc,
		Quota:       quotaSvc,
		JWT:         jwtSvc,
		HTTPMetrics: promexport.NewHTTPMetrics(),
	})
	logger.Info("API server configured", "port", apiServer.Port(), "base_url", cfg.API.BaseURL)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", logger.KeyError, err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", logger.KeyError, err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// newBlobStore creates the physical blob backend selected by config.
func newBlobStore(ctx context.Context, cfg *config.Config) (contentstore.BlobStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendS3:
		return s3store.NewFromConfig(ctx, cfg.Storage.S3)
	default:
		return fsstore.New(fsstore.Config{BasePath: cfg.Storage.Path})
	}
}

// bootstrapAdmin ensures the admin account exists. When no password is
// configured a random one is generated and shown exactly once.
func bootstrapAdmin(ctx context.Context, catalog *store.GORMStore, password string) error {
	generated := false
	if password == "" {
		var err error
		password, err = randomSecret(12)
		if err != nil {
			return err
		}
		generated = true
	}

	created, err := catalog.EnsureAdminUser(ctx, password)
	if err != nil {
		return fmt.Errorf("failed to ensure admin user: %w", err)
	}
	if created {
		logger.Info("Admin user created", "username", "admin")
		if generated {
			fmt.Printf("\n*** IMPORTANT: Admin user created with password: %s ***\n", password)
			fmt.Println("Please save this password. It will not be shown again.")
			fmt.Println()
		}
	}
	return nil
}

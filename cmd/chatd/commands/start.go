package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Andreysim/Chat/internal/logger"
	"github.com/Andreysim/Chat/internal/telemetry"
	"github.com/Andreysim/Chat/internal/version"
	"github.com/Andreysim/Chat/pkg/config"
	"github.com/Andreysim/Chat/pkg/metrics"
	"github.com/Andreysim/Chat/pkg/server"

	// Import prometheus metrics to register init() functions
	_ "github.com/Andreysim/Chat/pkg/metrics/prometheus"
)

var (
	startPort     int
	startListen   string
	startLogLevel string
	startLogFile  string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the chat server",
	Long: `Start the chat server in the foreground.

Configuration comes from the config file, CHAT_* environment variables,
and flags (highest priority). Without a config file the built-in
defaults apply, so a bare "chatd start" serves on port 51488.

The server stops on SIGINT/SIGTERM or when the operator types "exit"
on the console.

Examples:
  # Start with defaults (port 51488, all interfaces)
  chatd start

  # Start on a custom port, logging to a file
  chatd start --port 6000 --log-file /var/log/chatd.log

  # Start with a custom config file
  chatd start --config /etc/chat/config.yaml

  # Start with environment variable overrides
  CHAT_LOGGING_LEVEL=DEBUG chatd start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVarP(&startPort, "port", "p", 0, "TCP port to listen on (overrides config)")
	startCmd.Flags().StringVar(&startListen, "listen", "", "Interface to bind (overrides config)")
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Log level: DEBUG, INFO, WARN or ERROR (overrides config)")
	startCmd.Flags().StringVar(&startLogFile, "log-file", "", "Log output file (overrides config)")
}

// applyStartFlags layers explicitly set flags over the loaded config.
// cobra's Changed check keeps unset flags from clobbering file values.
func applyStartFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = startPort
	}
	if cmd.Flags().Changed("listen") {
		cfg.Server.Listen = startListen
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = startLogLevel
	}
	if cmd.Flags().Changed("log-file") {
		cfg.Logging.Output = startLogFile
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyStartFlags(cmd, cfg)

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "chatd",
		ServiceVersion: version.Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("Telemetry shutdown error", logger.Err(err))
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "chatd",
		ServiceVersion: version.Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", configSource())
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics FIRST so NewChatMetrics registers against a live
	// registry.
	metricsResult := config.InitializeMetrics(cfg)
	metrics.RegisterBuildInfo(version.Version, version.Commit, version.BuildDate)

	if metricsResult.Server != nil {
		logger.Info("Metrics enabled", logger.Port(cfg.Metrics.Port))
		go func() {
			if err := metricsResult.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", logger.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := metricsResult.Server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Metrics server shutdown error", logger.Err(err))
			}
		}()
	} else {
		logger.Info("Metrics collection disabled")
	}

	srv := server.New(cfg.Server, server.WithMetrics(metrics.NewChatMetrics()))

	// Start the server in the background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Run(ctx)
	}()

	// Wait for interrupt signal or server exit
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Type \"exit\" or press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for the sessions to drain
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

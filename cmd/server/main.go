package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snoozarr/snoozarr/internal/api"
	"github.com/snoozarr/snoozarr/internal/config"
	"github.com/snoozarr/snoozarr/internal/eventbus"
	"github.com/snoozarr/snoozarr/internal/integration"
	"github.com/snoozarr/snoozarr/internal/logger"
	"github.com/snoozarr/snoozarr/internal/metrics"
	"github.com/snoozarr/snoozarr/internal/notifier"
	"github.com/snoozarr/snoozarr/internal/services"
	"github.com/snoozarr/snoozarr/internal/timer"
	"github.com/snoozarr/snoozarr/internal/web"
)

func main() {
	// Define command line flags (these override environment variables)
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.BoolVar(showVersion, "v", false, "Print version and exit (shorthand)")

	// Configuration flags - all can also be set via environment variables (SNOOZARR_*)
	flagPort := flag.String("port", "", "HTTP server port (env: SNOOZARR_PORT, default: 3099)")
	flagBasePath := flag.String("base-path", "", "URL base path for reverse proxy (env: SNOOZARR_BASE_PATH, default: /)")
	flagLogLevel := flag.String("log-level", "", "Log level: debug, info, error (env: SNOOZARR_LOG_LEVEL, default: info)")
	flagDataDir := flag.String("data-dir", "", "Data directory path (env: SNOOZARR_DATA_DIR)")
	flagWebDir := flag.String("web-dir", "", "Web assets directory (env: SNOOZARR_WEB_DIR)")
	flagDryRun := flag.Bool("dry-run", false, "Dry run mode - log media/suspend commands instead of running them (env: SNOOZARR_DRY_RUN)")
	flagSettleDelay := flag.Duration("settle-delay", 0, "Pause between media pause and suspend (env: SNOOZARR_SETTLE_DELAY, default: 1s)")
	flagBedtimeCron := flag.String("bedtime-cron", "", "Cron expression that auto-starts a countdown (env: SNOOZARR_BEDTIME_CRON)")
	flagBedtimeMinutes := flag.Float64("bedtime-minutes", 0, "Countdown length for the bedtime schedule (env: SNOOZARR_BEDTIME_MINUTES, default: 60)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Snoozarr %s\n", config.Version)
		os.Exit(0)
	}

	// Load configuration from environment variables (initial load, refreshed after flags)
	config.Load()

	// Apply command-line flag overrides
	config.ApplyFlags(config.FlagOverrides{
		Port:           flagPort,
		BasePath:       flagBasePath,
		LogLevel:       flagLogLevel,
		DataDir:        flagDataDir,
		WebDir:         flagWebDir,
		DryRunMode:     flagDryRun,
		SettleDelay:    flagSettleDelay,
		BedtimeCron:    flagBedtimeCron,
		BedtimeMinutes: flagBedtimeMinutes,
	})

	// Refresh config after applying flags
	cfg := config.Get()

	// Initialize logger with configured log directory
	logger.Init(cfg.LogDir)
	logger.SetLevel(cfg.LogLevel)

	logger.Infof("========================================")
	logger.Infof("Starting Snoozarr %s...", config.Version)
	logger.Infof("Sleep timer: pause media, then suspend")
	logger.Infof("========================================")

	logger.Infof("Configuration:")
	logger.Infof("  Port: %s", cfg.Port)
	logger.Infof("  Base Path: %s (source: %s)", cfg.BasePath, cfg.BasePathSource)
	logger.Infof("  Log Level: %s", cfg.LogLevel)
	logger.Infof("  Log Directory: %s", cfg.LogDir)
	if !web.HasEmbeddedAssets() {
		logger.Infof("  Web Directory: %s", cfg.WebDir)
	}
	logger.Infof("  Timer Range: %g-%g minutes", cfg.MinMinutes, cfg.MaxMinutes)
	logger.Infof("  Settle Delay: %s", cfg.SettleDelay)
	if cfg.BedtimeCron != "" {
		logger.Infof("  Bedtime Schedule: %q (%g minutes)", cfg.BedtimeCron, cfg.BedtimeMinutes)
	}
	if len(cfg.NotifyURLs) > 0 {
		logger.Infof("  Notifications: %d URL(s) configured", len(cfg.NotifyURLs))
	}
	if cfg.DryRunMode {
		logger.Infof("  ⚠️  DRY-RUN MODE: ENABLED (media/suspend commands logged, not executed)")
	}

	// Check which platform tools are available before wiring the controllers
	tools := integration.CheckTools()
	for _, tool := range tools {
		if tool.Available {
			logger.Infof("✓ Found %s (%s)", tool.Name, tool.Path)
		} else if tool.Required {
			logger.Errorf("✗ Missing required tool %s: %s", tool.Name, tool.Description)
		} else {
			logger.Infof("⚠ Missing optional tool %s: %s", tool.Name, tool.Description)
		}
	}

	// Initialize Event Bus
	logger.Infof("Initializing Event Bus...")
	eb := eventbus.NewEventBus()
	logger.Infof("✓ Event Bus initialized")

	// Media and power controllers shell out to the platform tools
	mediaController := integration.NewOSMediaController(cfg.DryRunMode)
	powerController := integration.NewOSPowerController(cfg.DryRunMode)

	// Timer engine drives the countdown and the expiry pipeline
	logger.Infof("Initializing Timer Engine...")
	engine := timer.NewEngine(eb, mediaController, powerController)
	logger.Infof("✓ Timer Engine (tick: %s, settle: %s)", cfg.TickInterval, cfg.SettleDelay)

	// Notification Service
	notifierService := notifier.NewNotifier(eb, cfg.NotifyURLs)
	notifierService.Start()
	if len(cfg.NotifyURLs) > 0 {
		logger.Infof("✓ Notification Service (shoutrrr, %d target(s))", len(cfg.NotifyURLs))
	}

	// Metrics Service (Prometheus metrics)
	metricsService := metrics.NewMetricsService(eb)
	metricsService.Start()
	logger.Infof("✓ Metrics Service (Prometheus endpoint at /metrics)")

	// Bedtime schedule (disabled unless a cron expression is configured)
	bedtimeService := services.NewBedtimeService(engine, eb, cfg.BedtimeCron, cfg.BedtimeMinutes)
	if err := bedtimeService.Start(); err != nil {
		logger.Errorf("Failed to start bedtime schedule: %v", err)
		// Non-fatal - continue without the schedule
	} else if bedtimeService.Active() {
		logger.Infof("✓ Bedtime Service (cron: %q)", cfg.BedtimeCron)
	}

	// Start API Server
	logger.Infof("Initializing REST API and WebSocket server...")
	apiServer := api.NewRESTServer(api.ServerDeps{
		EventBus: eb,
		Engine:   engine,
		Bedtime:  bedtimeService,
		Metrics:  metricsService,
		Tools:    tools,
	})
	go func() {
		addr := ":" + cfg.Port
		if err := apiServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Failed to start API server: %v", err)
			os.Exit(1)
		}
	}()

	logger.Infof("========================================")
	logger.Infof("✓ Snoozarr %s started successfully", config.Version)
	logger.Infof("✓ Server listening on port %s", cfg.Port)
	if cfg.BasePath != "/" {
		logger.Infof("✓ Web UI available at base path: %s", cfg.BasePath)
	}
	logger.Infof("========================================")

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Infof("========================================")
	logger.Infof("Received signal %v, initiating graceful shutdown...", sig)
	logger.Infof("========================================")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown in reverse order of startup
	logger.Infof("Stopping Bedtime Service...")
	bedtimeService.Stop()
	logger.Infof("✓ Bedtime Service stopped")

	logger.Infof("Stopping Timer Engine...")
	engine.Stop()
	logger.Infof("✓ Timer Engine stopped")

	logger.Infof("Stopping Notification Service...")
	notifierService.Stop()
	logger.Infof("✓ Notification Service stopped")

	logger.Infof("Stopping Event Bus...")
	eb.Shutdown()
	logger.Infof("✓ Event Bus stopped")

	logger.Infof("Stopping API Server...")
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API Server shutdown error: %v", err)
	} else {
		logger.Infof("✓ API Server stopped")
	}

	logger.Infof("========================================")
	logger.Infof("✓ Snoozarr shutdown complete")
	logger.Infof("========================================")
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Version is set at build time via -ldflags
// Default "dev" is used for development builds
var Version = "dev"

// Config holds all application configuration loaded from environment variables.
// All fields have sensible defaults if environment variables are not set.
type Config struct {
	// Port is the HTTP server listen port (default: 3099)
	Port string

	// BasePath is the URL base path for reverse proxy setups (default: "/")
	// Example: "/snoozarr" if hosting at domain.com/snoozarr/
	BasePath string

	// BasePathSource indicates where the base path came from: "environment", "flag", or "default"
	BasePathSource string

	// LogLevel controls logging verbosity: "debug", "info", "warn", "error" (default: "info")
	LogLevel string

	// TickInterval is the cadence of the countdown tick (default: 1s)
	// Only tests should change this; the wire contract counts whole seconds.
	TickInterval time.Duration

	// SettleDelay is the pause between stopping media and suspending the
	// machine, so the pause audibly takes effect first (default: 1s)
	SettleDelay time.Duration

	// MinMinutes / MaxMinutes bound the timer durations accepted by the API (default: 1-480)
	MinMinutes float64
	MaxMinutes float64

	// PresetMinutes are the quick-select durations offered by the UI
	PresetMinutes []int

	// DryRunMode when true, logs the pause/suspend commands without running them (default: false)
	// Useful for verifying wiring without actually putting the machine to sleep
	DryRunMode bool

	// BedtimeCron is an optional cron expression that auto-starts a countdown,
	// e.g. "30 22 * * *" for 22:30 nightly. Empty disables the schedule.
	BedtimeCron string

	// BedtimeMinutes is the countdown length started by the bedtime schedule (default: 60)
	BedtimeMinutes float64

	// NotifyURLs are shoutrrr URLs to push expiry notifications to (comma-separated env value)
	NotifyURLs []string

	// DataDir is the directory for persistent data (logs, pid file)
	// Default: /config in Docker, ./config locally
	DataDir string

	// LogDir is the directory for log files (default: <DataDir>/logs)
	LogDir string

	// WebDir is the directory containing web assets (index.html, etc.)
	WebDir string
}

// Global singleton
var cfg *Config

// Load reads configuration from environment variables with sensible defaults.
// Should be called once at application startup.
func Load() *Config {
	basePath := getEnvOrDefault("SNOOZARR_BASE_PATH", "")
	basePathSource := "default"

	if basePath != "" {
		basePathSource = "environment"
	} else {
		basePath = "/"
	}
	basePath = normalizeBasePath(basePath)

	// Determine DataDir - this is where logs live
	// Default: ./config (relative to executable or cwd); /config in Docker
	dataDir := getEnvOrDefault("SNOOZARR_DATA_DIR", "")
	if dataDir == "" {
		if info, err := os.Stat("/config"); err == nil && info.IsDir() {
			dataDir = "/config"
		} else {
			if execPath, err := os.Executable(); err == nil {
				dataDir = filepath.Join(filepath.Dir(execPath), "config")
			} else if cwd, err := os.Getwd(); err == nil {
				dataDir = filepath.Join(cwd, "config")
			} else {
				dataDir = "./config"
			}
		}
	}
	if absDataDir, err := filepath.Abs(dataDir); err == nil {
		dataDir = absDataDir
	}
	os.MkdirAll(dataDir, 0755)

	// Determine WebDir - find a directory containing index.html
	webDir := getEnvOrDefault("SNOOZARR_WEB_DIR", "")
	if webDir == "" {
		candidates := []string{
			"/app/web", // Docker container default
		}
		if cwd, err := os.Getwd(); err == nil {
			candidates = append(candidates,
				filepath.Join(cwd, "web"),
				filepath.Join(cwd, "..", "web"),
				filepath.Join(cwd, "..", "..", "web"),
			)
		}
		if execPath, err := os.Executable(); err == nil {
			execDir := filepath.Dir(execPath)
			candidates = append(candidates,
				filepath.Join(execDir, "web"),
				filepath.Join(execDir, "..", "web"),
				filepath.Join(execDir, "..", "..", "web"),
			)
		}
		for _, candidate := range candidates {
			indexPath := filepath.Join(candidate, "index.html")
			if _, err := os.Stat(indexPath); err == nil {
				if absPath, err := filepath.Abs(candidate); err == nil {
					webDir = absPath
					break
				}
			}
		}
		if webDir == "" {
			webDir = "./web"
		}
	}

	logDir := filepath.Join(dataDir, "logs")
	os.MkdirAll(logDir, 0755)

	cfg = &Config{
		Port:           getEnvOrDefault("SNOOZARR_PORT", "3099"),
		BasePath:       basePath,
		BasePathSource: basePathSource,
		LogLevel:       strings.ToLower(getEnvOrDefault("SNOOZARR_LOG_LEVEL", "info")),
		TickInterval:   getEnvDurationOrDefault("SNOOZARR_TICK_INTERVAL", time.Second),
		SettleDelay:    getEnvDurationOrDefault("SNOOZARR_SETTLE_DELAY", time.Second),
		MinMinutes:     getEnvFloatOrDefault("SNOOZARR_MIN_MINUTES", 1),
		MaxMinutes:     getEnvFloatOrDefault("SNOOZARR_MAX_MINUTES", 480),
		PresetMinutes:  getEnvIntListOrDefault("SNOOZARR_PRESET_MINUTES", []int{15, 30, 45, 60, 90, 120, 180, 240}),
		DryRunMode:     getEnvBoolOrDefault("SNOOZARR_DRY_RUN", false),
		BedtimeCron:    getEnvOrDefault("SNOOZARR_BEDTIME_CRON", ""),
		BedtimeMinutes: getEnvFloatOrDefault("SNOOZARR_BEDTIME_MINUTES", 60),
		NotifyURLs:     getEnvListOrDefault("SNOOZARR_NOTIFY_URLS", nil),
		DataDir:        dataDir,
		LogDir:         logDir,
		WebDir:         webDir,
	}

	// Validate log level
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		cfg.LogLevel = "info" // Fall back to info for invalid values
	}

	return cfg
}

// Get returns the current configuration. Panics if Load() hasn't been called.
func Get() *Config {
	if cfg == nil {
		panic("config.Load() must be called before config.Get()")
	}
	return cfg
}

// SetForTesting allows tests to set the global config without calling Load().
// This should ONLY be used in test code.
func SetForTesting(c *Config) {
	cfg = c
}

// NewTestConfig returns a minimal Config suitable for unit tests.
func NewTestConfig() *Config {
	return &Config{
		Port:           "8080",
		BasePath:       "/",
		BasePathSource: "test",
		LogLevel:       "debug",
		TickInterval:   time.Second,
		SettleDelay:    time.Second,
		MinMinutes:     1,
		MaxMinutes:     480,
		PresetMinutes:  []int{15, 30, 60},
		DryRunMode:     true,
		BedtimeCron:    "",
		BedtimeMinutes: 60,
		NotifyURLs:     nil,
		DataDir:        "/tmp/snoozarr-test",
		LogDir:         "/tmp/snoozarr-test/logs",
		WebDir:         "",
	}
}

// normalizeBasePath ensures the base path starts with / and doesn't end with /.
func normalizeBasePath(basePath string) string {
	if basePath == "/" {
		return basePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimSuffix(basePath, "/")
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDurationOrDefault returns the environment variable as a duration or the default if not set/invalid.
// Accepts Go duration strings like "500ms", "1s", "2m".
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the environment variable as a bool or the default if not set.
// Accepts "true", "1", "yes" as true values (case-insensitive).
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

// getEnvFloatOrDefault returns the environment variable as a float64 or the default if not set/invalid.
func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvListOrDefault returns the environment variable split on commas, or the default if not set.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvIntListOrDefault returns the environment variable as a comma-separated
// int list, or the default if not set or nothing parses.
func getEnvIntListOrDefault(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, item := range strings.Split(value, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(item)); err == nil {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// FlagOverrides holds command-line flag values that can override environment variables
type FlagOverrides struct {
	Port           *string
	BasePath       *string
	LogLevel       *string
	SettleDelay    *time.Duration
	DryRunMode     *bool
	BedtimeCron    *string
	BedtimeMinutes *float64
	DataDir        *string
	WebDir         *string
}

// ApplyFlags applies command-line flag overrides to the configuration.
// Should be called after Load() and after flag parsing.
// Only non-nil values with non-default flag values will override.
func ApplyFlags(flags FlagOverrides) {
	if cfg == nil {
		return
	}

	if flags.Port != nil && *flags.Port != "" {
		cfg.Port = *flags.Port
	}
	if flags.BasePath != nil && *flags.BasePath != "" {
		cfg.BasePath = normalizeBasePath(*flags.BasePath)
		cfg.BasePathSource = "flag"
	}
	if flags.LogLevel != nil && *flags.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(*flags.LogLevel)
	}
	if flags.SettleDelay != nil && *flags.SettleDelay != 0 {
		cfg.SettleDelay = *flags.SettleDelay
	}
	if flags.DryRunMode != nil {
		cfg.DryRunMode = *flags.DryRunMode
	}
	if flags.BedtimeCron != nil && *flags.BedtimeCron != "" {
		cfg.BedtimeCron = *flags.BedtimeCron
	}
	if flags.BedtimeMinutes != nil && *flags.BedtimeMinutes != 0 {
		cfg.BedtimeMinutes = *flags.BedtimeMinutes
	}
	if flags.DataDir != nil && *flags.DataDir != "" {
		cfg.DataDir = *flags.DataDir
	}
	if flags.WebDir != nil && *flags.WebDir != "" {
		cfg.WebDir = *flags.WebDir
	}
}

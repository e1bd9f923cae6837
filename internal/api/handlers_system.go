package api

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snoozarr/snoozarr/internal/config"
)

// formatUptime returns a human-readable uptime string
func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// handleHealth returns server health status for container orchestration.
// This endpoint must return quickly for Docker healthchecks.
func (s *RESTServer) handleHealth(c *gin.Context) {
	state := s.engine.State()

	// The server is degraded when the suspend tool is missing; expiry would
	// pause media but never put the machine to sleep.
	status := "healthy"
	var missingTools []string
	for _, tool := range s.tools {
		if tool.Required && !tool.Available {
			status = "degraded"
			missingTools = append(missingTools, tool.Name)
		}
	}

	health := gin.H{
		"status":            status,
		"version":           config.Version,
		"uptime":            formatUptime(time.Since(s.startTime)),
		"timer_running":     state.IsRunning,
		"bedtime_active":    s.bedtime != nil && s.bedtime.Active(),
		"websocket_clients": s.hub.ClientCount(),
		"dry_run":           config.Get().DryRunMode,
	}
	if len(missingTools) > 0 {
		health["missing_tools"] = missingTools
	}

	c.JSON(http.StatusOK, health)
}

// SystemInfo contains runtime environment information
type SystemInfo struct {
	Version     string                   `json:"version"`
	Environment string                   `json:"environment"` // "docker" or "native"
	OS          string                   `json:"os"`
	Arch        string                   `json:"arch"`
	GoVersion   string                   `json:"go_version"`
	Uptime      string                   `json:"uptime"`
	UptimeSecs  int64                    `json:"uptime_seconds"`
	StartedAt   time.Time                `json:"started_at"`
	Config      SystemConfigInfo         `json:"config"`
	Tools       []map[string]interface{} `json:"tools"`
}

// SystemConfigInfo contains configuration details
type SystemConfigInfo struct {
	Port           string  `json:"port"`
	BasePath       string  `json:"base_path"`
	BasePathSource string  `json:"base_path_source"`
	LogLevel       string  `json:"log_level"`
	LogDir         string  `json:"log_dir"`
	DryRunMode     bool    `json:"dry_run_mode"`
	SettleDelay    string  `json:"settle_delay"`
	MinMinutes     float64 `json:"min_minutes"`
	MaxMinutes     float64 `json:"max_minutes"`
	BedtimeCron    string  `json:"bedtime_cron,omitempty"`
	BedtimeMinutes float64 `json:"bedtime_minutes,omitempty"`
}

// handleSystemInfo returns runtime environment information
func (s *RESTServer) handleSystemInfo(c *gin.Context) {
	cfg := config.Get()
	uptime := time.Since(s.startTime)

	environment := "native"
	if isDockerEnvironment() {
		environment = "docker"
	}

	tools := make([]map[string]interface{}, 0, len(s.tools))
	for _, tool := range s.tools {
		tools = append(tools, map[string]interface{}{
			"name":        tool.Name,
			"available":   tool.Available,
			"path":        tool.Path,
			"required":    tool.Required,
			"description": tool.Description,
		})
	}

	info := SystemInfo{
		Version:     config.Version,
		Environment: environment,
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		GoVersion:   runtime.Version(),
		Uptime:      formatUptime(uptime),
		UptimeSecs:  int64(uptime.Seconds()),
		StartedAt:   s.startTime,
		Config: SystemConfigInfo{
			Port:           cfg.Port,
			BasePath:       cfg.BasePath,
			BasePathSource: cfg.BasePathSource,
			LogLevel:       cfg.LogLevel,
			LogDir:         cfg.LogDir,
			DryRunMode:     cfg.DryRunMode,
			SettleDelay:    cfg.SettleDelay.String(),
			MinMinutes:     cfg.MinMinutes,
			MaxMinutes:     cfg.MaxMinutes,
			BedtimeCron:    cfg.BedtimeCron,
			BedtimeMinutes: cfg.BedtimeMinutes,
		},
		Tools: tools,
	}

	c.JSON(http.StatusOK, info)
}

// isDockerEnvironment checks if we're running inside a container
func isDockerEnvironment() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		content := string(data)
		if strings.Contains(content, "docker") || strings.Contains(content, "containerd") {
			return true
		}
	}

	// podman
	if _, err := os.Stat("/run/.containerenv"); err == nil {
		return true
	}

	return false
}

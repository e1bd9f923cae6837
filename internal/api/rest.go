// Package api provides the REST API handlers and server for Snoozarr.
// It exposes the timer endpoints, health and system info, Prometheus
// metrics, and real-time updates via WebSocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snoozarr/snoozarr/internal/config"
	"github.com/snoozarr/snoozarr/internal/eventbus"
	"github.com/snoozarr/snoozarr/internal/integration"
	"github.com/snoozarr/snoozarr/internal/logger"
	"github.com/snoozarr/snoozarr/internal/metrics"
	"github.com/snoozarr/snoozarr/internal/services"
	"github.com/snoozarr/snoozarr/internal/timer"
	"github.com/snoozarr/snoozarr/internal/web"
)

// TimerEngine is the slice of the countdown engine the API serves.
type TimerEngine interface {
	State() timer.State
	Start(minutes float64) timer.State
	Cancel() timer.State
}

type RESTServer struct {
	router     *gin.Engine
	httpServer *http.Server
	eventBus   eventbus.Publisher
	engine     TimerEngine
	bedtime    *services.BedtimeService
	metrics    *metrics.MetricsService
	hub        *WebSocketHub
	tools      []integration.ToolStatus
	startTime  time.Time
}

// ServerDeps contains all dependencies required for the REST server
type ServerDeps struct {
	EventBus eventbus.Publisher
	Engine   TimerEngine
	Bedtime  *services.BedtimeService
	Metrics  *metrics.MetricsService
	Tools    []integration.ToolStatus
}

func NewRESTServer(deps ServerDeps) *RESTServer {
	// Set Gin to release mode for production (suppresses debug warnings)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Request ID middleware for correlation/tracing
	r.Use(func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = fmt.Sprintf("%d-%d", time.Now().UnixNano(), c.Request.ContentLength)
		}
		c.Set("request_id", reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	})

	// Custom recovery middleware with enhanced logging
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		reqID := c.GetString("request_id")
		logger.Errorf("[PANIC RECOVERY] request_id=%s path=%s method=%s error=%v",
			reqID, c.Request.URL.Path, c.Request.Method, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      ErrMsgInternalError,
			"request_id": reqID,
		})
	}))

	// CORS middleware - configurable via SNOOZARR_CORS_ORIGIN env var
	// If not set, defaults to same-origin (no CORS header = browser enforces same-origin)
	// Set to "*" only for development, or specify allowed origins comma-separated
	corsOrigins := os.Getenv("SNOOZARR_CORS_ORIGIN")
	allowedOrigins := make(map[string]bool)
	if corsOrigins != "" {
		for _, origin := range strings.Split(corsOrigins, ",") {
			allowedOrigins[strings.TrimSpace(origin)] = true
		}
	}

	r.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if corsOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowedOrigins[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}
		// If no match, don't set Access-Control-Allow-Origin (same-origin policy applies)

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	s := &RESTServer{
		router:    r,
		eventBus:  deps.EventBus,
		engine:    deps.Engine,
		bedtime:   deps.Bedtime,
		metrics:   deps.Metrics,
		hub:       NewWebSocketHub(deps.EventBus),
		tools:     deps.Tools,
		startTime: time.Now(),
	}

	s.setupRoutes()

	return s
}

// indexHTMLFile is the name of the index file for SPA routing
const indexHTMLFile = "index.html"

// handleRuntimeConfig returns the runtime configuration for the frontend
func (s *RESTServer) handleRuntimeConfig(c *gin.Context) {
	cfg := config.Get()
	c.JSON(http.StatusOK, gin.H{
		"base_path":        cfg.BasePath,
		"base_path_source": cfg.BasePathSource,
	})
}

// serveIndexWithBasePath serves index.html with the base path injected
func (s *RESTServer) serveIndexWithBasePath(basePath string, readFile func() ([]byte, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := readFile()
		if err != nil {
			logger.Errorf("Failed to read index.html: %v", err)
			c.Status(http.StatusNotFound)
			return
		}
		injectedScript := fmt.Sprintf(`<script>window.__SNOOZARR_BASE_PATH__=%q;</script></head>`, basePath)
		html := strings.Replace(string(data), "</head>", injectedScript, 1)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	}
}

// setupEmbeddedAssets configures routes for serving embedded web assets
func (s *RESTServer) setupEmbeddedAssets(base *gin.RouterGroup, basePath string) {
	logger.Infof("Serving web assets from embedded filesystem")

	if files := web.ListEmbeddedFiles(); files != nil {
		logger.Debugf("Embedded files: %v", files)
	}

	indexHandler := s.serveIndexWithBasePath(basePath, func() ([]byte, error) {
		return web.ReadFile(indexHTMLFile)
	})

	base.GET("/", indexHandler)
	base.GET("/"+indexHTMLFile, indexHandler)

	serveEmbeddedFile := func(c *gin.Context, filename string, contentType string) {
		data, err := web.ReadFile(filename)
		if err != nil {
			logger.Errorf("Failed to read embedded file %s: %v", filename, err)
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}

	base.GET("/favicon.svg", func(c *gin.Context) { serveEmbeddedFile(c, "favicon.svg", "image/svg+xml") })

	// SPA fallback
	s.router.NoRoute(func(c *gin.Context) {
		if basePath == "/" || strings.HasPrefix(c.Request.URL.Path, basePath) {
			indexHandler(c)
		} else {
			c.Redirect(http.StatusMovedPermanently, basePath)
		}
	})
}

// setupFilesystemAssets configures routes for serving filesystem web assets
func (s *RESTServer) setupFilesystemAssets(base *gin.RouterGroup, basePath, webDir string) {
	logger.Infof("Serving web assets from filesystem: %s", webDir)

	base.StaticFile("/favicon.svg", filepath.Join(webDir, "favicon.svg"))

	indexFile := filepath.Join(webDir, indexHTMLFile)
	indexHandler := s.serveIndexWithBasePath(basePath, func() ([]byte, error) {
		return os.ReadFile(indexFile)
	})

	base.GET("/", indexHandler)
	base.GET("/"+indexHTMLFile, indexHandler)

	// SPA fallback
	s.router.NoRoute(func(c *gin.Context) {
		if basePath == "/" || strings.HasPrefix(c.Request.URL.Path, basePath) {
			indexHandler(c)
		} else {
			c.Redirect(http.StatusMovedPermanently, basePath)
		}
	})
}

// setupAPIOnlyMode configures routes when no web assets are available
func (s *RESTServer) setupAPIOnlyMode(basePath, webDir string) {
	logger.Infof("No web assets found (embedded or filesystem at %s) - running in API-only mode", webDir)

	s.router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
		} else {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Web UI not available",
				"message": "This binary was built without embedded web assets. Please download a release binary or run with a web/ directory.",
				"api":     basePath + "api/",
			})
		}
	})
}

func (s *RESTServer) setupRoutes() {
	cfg := config.Get()
	basePath := cfg.BasePath

	// Prometheus metrics endpoint at root level (standard convention, not behind base path)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// Create a group for the base path (or use root if basePath is "/")
	var base *gin.RouterGroup
	if basePath == "/" {
		base = s.router.Group("")
	} else {
		base = s.router.Group(basePath)
		s.router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, basePath)
		})
	}

	api := base.Group("/api")
	{
		api.GET("/config/runtime", s.handleRuntimeConfig)
		api.GET("/health", s.handleHealth)
		api.GET("/system/info", s.handleSystemInfo)
		api.GET("/metrics", gin.WrapH(s.metrics.Handler()))

		api.GET("/timer", s.getTimer)
		api.POST("/timer/start", s.startTimer)
		api.POST("/timer/cancel", s.cancelTimer)
		api.GET("/presets", s.getPresets)

		api.GET("/ws", func(c *gin.Context) {
			s.hub.HandleConnection(c)
		})
	}

	// Serve static files under the base path
	// Check for embedded assets first, fall back to filesystem
	webDir := cfg.WebDir
	if web.HasEmbeddedAssets() {
		s.setupEmbeddedAssets(base, basePath)
	} else if _, err := os.Stat(filepath.Join(webDir, indexHTMLFile)); err == nil {
		s.setupFilesystemAssets(base, basePath, webDir)
	} else {
		s.setupAPIOnlyMode(basePath, webDir)
	}
}

func (s *RESTServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/futuretasks/core/docs"
	httpHandlers "github.com/futuretasks/core/internal/adapters/http"
	"github.com/futuretasks/core/internal/application/services"
	"github.com/futuretasks/core/internal/infrastructure/config"
	"github.com/futuretasks/core/internal/infrastructure/logger"
	"github.com/futuretasks/core/internal/infrastructure/metrics"
	"github.com/futuretasks/core/internal/ports"
)

const multipartOverhead = 64 << 10

// Dependencies are the wired services the server exposes.
type Dependencies struct {
	Store   ports.KeyValueStore
	Tasks   ports.TaskService
	Theme   ports.ThemeService
	Reports ports.ReportService
	Auth    ports.AuthService
	Metrics *metrics.Collector
	Clock   services.Clock
}

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	deps   Dependencies
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// NewValidator returns the validator used for request bodies
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// New creates a new server instance
func New(cfg *config.Config, deps Dependencies, appLogger *logger.Logger) (*Server, error) {
	if deps.Store == nil || deps.Tasks == nil || deps.Theme == nil || deps.Reports == nil || deps.Auth == nil {
		return nil, errors.New("server dependencies are incomplete")
	}
	if appLogger == nil {
		appLogger = logger.NewNop()
	}

	e := echo.New()

	// Set custom validator
	e.Validator = NewValidator()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize handlers
	taskHandler := httpHandlers.NewTaskHandler(deps.Tasks, deps.Reports, deps.Clock, cfg.Security.MaxImportBytes, appLogger.WithComponent("task_handler"))
	themeHandler := httpHandlers.NewThemeHandler(deps.Theme)
	authHandler := httpHandlers.NewAuthHandler(deps.Auth, appLogger.WithComponent("auth_handler"))

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		deps:   deps,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup metrics
	if cfg.Metrics.Enabled && deps.Metrics != nil {
		server.setupMetrics()
	}

	// Setup routes
	server.setupRoutes(taskHandler, themeHandler, authHandler)

	return server, nil
}

// Echo exposes the router, mainly for tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			l := s.logger.WithRequestID(values.RequestID)
			if claims, ok := claimsFromContext(c); ok {
				l = l.WithFields("subject", claims.Subject)
			}
			if values.Error != nil {
				l.WithError(values.Error).LogHTTPRequest(values.Method, values.URI, values.UserAgent, values.RemoteIP, values.Status, float64(values.Latency.Nanoseconds())/1000000)
				return nil
			}
			l.LogHTTPRequest(values.Method, values.URI, values.UserAgent, values.RemoteIP, values.Status, float64(values.Latency.Nanoseconds())/1000000)
			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	}))

	// Rate limiting middleware
	if s.config.Security.RateLimitRequests > 0 {
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
			),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(context echo.Context, err error) error {
				return context.JSON(http.StatusForbidden, httpHandlers.ErrorResponse{Error: "rate limit exceeded"})
			},
			DenyHandler: func(context echo.Context, identifier string, err error) error {
				return context.JSON(http.StatusTooManyRequests, httpHandlers.ErrorResponse{Error: "rate limit exceeded"})
			},
		}))
	}

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	// Timeout middleware
	if s.config.Server.RequestTimeout > 0 {
		s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: s.config.Server.RequestTimeout,
		}))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(taskHandler *httpHandlers.TaskHandler, themeHandler *httpHandlers.ThemeHandler, authHandler *httpHandlers.AuthHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Auth routes (public)
	v1.POST("/auth/token", authHandler.IssueToken)

	protected := v1.Group("", s.authMiddleware(s.deps.Auth))

	taskGroup := protected.Group("/tasks")
	taskGroup.GET("", taskHandler.ListTasks)
	taskGroup.POST("", taskHandler.CreateTask)
	taskGroup.GET("/stats", taskHandler.GetStats)
	taskGroup.GET("/export", taskHandler.ExportTasks)
	taskGroup.POST("/import", taskHandler.ImportTasks, middleware.BodyLimit(s.importBodyLimit()))
	taskGroup.GET("/report", taskHandler.GetReport)
	taskGroup.GET("/:id", taskHandler.GetTask)
	taskGroup.PUT("/:id", taskHandler.UpdateTask)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask)
	taskGroup.POST("/:id/toggle", taskHandler.ToggleTask)
	taskGroup.POST("/:id/move", taskHandler.MoveTask)

	themeGroup := protected.Group("/theme")
	themeGroup.GET("", themeHandler.GetTheme)
	themeGroup.PUT("", themeHandler.SetTheme)
	themeGroup.POST("/toggle", themeHandler.ToggleTheme)
}

// importBodyLimit bounds the whole import request; the multipart envelope gets some headroom
// on top of the snapshot size checked by the handler.
func (s *Server) importBodyLimit() string {
	limit := s.config.Security.MaxImportBytes
	if limit <= 0 {
		limit = httpHandlers.DefaultMaxImportBytes
	}
	return fmt.Sprintf("%dB", limit+multipartOverhead)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	s.echo.Use(s.deps.Metrics.Middleware())
	s.echo.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	storage := map[string]interface{}{
		"status": "ok",
		"driver": s.config.Storage.Driver,
	}
	if err := s.pingStore(c.Request().Context()); err != nil {
		status = "error"
		storage["status"] = "error"
		storage["error"] = err.Error()
	}
	if inspector, ok := s.deps.Store.(ports.StoreInspector); ok {
		if info := inspector.Info(); info != nil {
			storage["connection"] = info
		}
	}
	checks["storage"] = storage

	checks["tasks"] = s.deps.Tasks.Stats()

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.pingStore(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "storage_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) pingStore(ctx context.Context) error {
	timeout := s.config.Storage.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.deps.Store.Ping(ctx)
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(appLogger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		var he *echo.HTTPError
		var ve validator.ValidationErrors
		switch {
		case errors.As(err, &he):
			code = he.Code
			msg = httpHandlers.ErrorResponse{Error: fmt.Sprint(he.Message)}
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		case errors.As(err, &ve):
			code = http.StatusBadRequest
			msg = httpHandlers.ErrorResponse{Error: "validation failed", Details: ve.Error()}
		default:
			msg = httpHandlers.ErrorResponse{Error: http.StatusText(code)}
		}

		if code >= http.StatusInternalServerError {
			appLogger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				appLogger.Errorw("Error sending response", "error", err)
			}
		}
	}
}

package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/futuretasks/core/internal/infrastructure/logger"
	"github.com/futuretasks/core/internal/ports"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService ports.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, appLogger *logger.Logger) *AuthHandler {
	if appLogger == nil {
		appLogger = logger.NewNop()
	}
	return &AuthHandler{
		authService: authService,
		logger:      appLogger,
	}
}

// IssueToken exchanges the owner password for an access token
func (h *AuthHandler) IssueToken(c echo.Context) error {
	if !h.authService.Enabled() {
		return echo.NewHTTPError(http.StatusNotFound, "Authentication is disabled")
	}

	var req ports.TokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.authService.IssueToken(c.Request().Context(), req.Password)
	if err != nil {
		h.logger.LogSecurityEvent("token_denied", c.RealIP(), map[string]interface{}{"error": err.Error()})
		return mapError(err)
	}

	return c.JSON(http.StatusOK, response)
}

package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/futuretasks/core/internal/domain/entities"
	"github.com/futuretasks/core/internal/ports"
)

// ThemeHandler handles the theme preference
type ThemeHandler struct {
	themeService ports.ThemeService
}

// NewThemeHandler creates a new theme handler
func NewThemeHandler(themeService ports.ThemeService) *ThemeHandler {
	return &ThemeHandler{themeService: themeService}
}

// GetTheme returns the active theme
func (h *ThemeHandler) GetTheme(c echo.Context) error {
	return c.JSON(http.StatusOK, ThemeResponse{Theme: h.themeService.Get(c.Request().Context())})
}

// SetTheme selects a theme
func (h *ThemeHandler) SetTheme(c echo.Context) error {
	var req ThemeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	theme, ok := entities.ParseTheme(req.Theme)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Theme must be dark or light")
	}

	err := h.themeService.Set(c.Request().Context(), theme)
	return respondMutation(c, http.StatusOK, ThemeResponse{Theme: theme}, err)
}

// ToggleTheme switches between dark and light
func (h *ThemeHandler) ToggleTheme(c echo.Context) error {
	theme, err := h.themeService.Toggle(c.Request().Context())
	return respondMutation(c, http.StatusOK, ThemeResponse{Theme: theme}, err)
}

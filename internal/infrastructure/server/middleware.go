package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/futuretasks/core/internal/ports"
)

const claimsContextKey = "claims"

// authMiddleware validates JWT tokens. It lets every request through when
// authentication is disabled.
func (s *Server) authMiddleware(authService ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !authService.Enabled() {
				return next(c)
			}

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			claims, err := authService.ValidateToken(tokenString)
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", c.RealIP(), map[string]interface{}{
					"error":    err.Error(),
					"endpoint": c.Request().URL.Path,
				})
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			c.Set(claimsContextKey, claims)

			return next(c)
		}
	}
}

// claimsFromContext returns the claims stored by authMiddleware, if any.
func claimsFromContext(c echo.Context) (*ports.Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*ports.Claims)
	return claims, ok
}

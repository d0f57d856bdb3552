package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/futuretasks/core/internal/domain/entities"
)

// Request/Response types

// Envelope wraps the result of a mutation. Warning is set when the change was
// applied in memory but could not be persisted.
type Envelope struct {
	Data    interface{} `json:"data,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

type ListResponse struct {
	Data  []entities.Task `json:"data"`
	Total int             `json:"total"`
}

type MoveRequest struct {
	BeforeID *int64 `json:"before_id"`
}

type ThemeRequest struct {
	Theme string `json:"theme" validate:"required"`
}

type ThemeResponse struct {
	Theme entities.Theme `json:"theme"`
}

type ImportResponse struct {
	Imported int    `json:"imported"`
	Warning  string `json:"warning,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondMutation answers a mutation that may carry a persistence warning.
func respondMutation(c echo.Context, status int, data interface{}, err error) error {
	if err != nil && !entities.IsWarning(err) {
		return mapError(err)
	}

	env := Envelope{Data: data}
	if err != nil {
		env.Warning = err.Error()
	}

	if data == nil && env.Warning == "" && status == http.StatusNoContent {
		return c.NoContent(http.StatusNoContent)
	}
	if status == http.StatusNoContent {
		status = http.StatusOK
	}
	return c.JSON(status, env)
}

// mapError translates domain errors to HTTP errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, entities.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, entities.ErrInvalidInput), errors.Is(err, entities.ErrInvalidFormat):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, entities.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}

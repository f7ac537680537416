package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/anonto42/niche-communities/backend/internal/auth"
	"github.com/anonto42/niche-communities/backend/internal/services"
	"github.com/anonto42/niche-communities/backend/pkg/media"
	"github.com/labstack/echo/v4"
)

// getUserIDFromContext returns the caller set by JWTAuthMiddleware
func getUserIDFromContext(c echo.Context) string {
	id, _ := c.Get("userID").(string)
	return id
}

func getSessionIDFromContext(c echo.Context) string {
	id, _ := c.Get("sessionID").(string)
	return id
}

// bind decodes and validates the request body into req
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// httpError maps service errors to HTTP responses. Unexpected errors are
// logged and answered with a generic message.
func httpError(c echo.Context, err error) error {
	var status int
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrNotMember),
		errors.Is(err, auth.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrUnknownReaction),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrCannotRemoveSelf),
		errors.Is(err, media.ErrImageTooLarge),
		errors.Is(err, media.ErrNotAnImage),
		errors.Is(err, media.ErrEmptyImage):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrUnsupported):
		status = http.StatusNotImplemented
	default:
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong, please try again")
	}
	return echo.NewHTTPError(status, err.Error())
}

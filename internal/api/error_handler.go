package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/syncroweb/launchpad/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. Code is a
// stable machine-readable value the UI switches on.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<code>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, resp := resolveError(err, log, c)
		_ = c.JSON(status, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, auth middleware, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: statusCode(he.Code)}
	}

	// Known domain errors → deterministic HTTP codes. Specific errors first:
	// several of them wrap a broader root.
	switch {
	case errors.Is(err, domain.ErrNotApproved):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "not_approved"}
	case errors.Is(err, domain.ErrLastAdmin):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "last_admin"}
	case errors.Is(err, domain.ErrSelfChat):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: "self_chat"}
	case errors.Is(err, domain.ErrInvalidRole):
		return http.StatusForbidden, errorResponse{Error: err.Error(), Code: "invalid_role"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: err.Error(), Code: "forbidden"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"}
	case errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: "invalid_operation"}
	case errors.Is(err, domain.ErrPreconditionFailed):
		return http.StatusConflict, errorResponse{Error: "conversation changed, retry", Code: "conflict"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal"}
}

func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "invalid_operation"
	default:
		if status >= 500 {
			return "internal"
		}
		return "error"
	}
}

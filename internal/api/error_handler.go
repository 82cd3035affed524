package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wlcham/notes-server/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// validationResponse carries per-field failures.
type validationResponse struct {
	Errors []domain.FieldError `json:"errors"`
}

// statusByKind maps each domain sentinel to its HTTP status. Missing notes
// and collections answer 204 with an error body; net/http drops that body on
// the wire.
var statusByKind = []struct {
	kind   error
	status int
}{
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrNoteNotFound, http.StatusNoContent},
	{domain.ErrCollectionNotFound, http.StatusNoContent},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrDuplicateUsername, http.StatusBadRequest},
	{domain.ErrUnknownCollection, http.StatusBadRequest},
	{domain.ErrInvalidID, http.StatusBadRequest},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Renders validation failures as {"errors": [{field, message}]}.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			_ = c.JSON(http.StatusBadRequest, validationResponse{Errors: verr.Fields})
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, rate limiting, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, m := range statusByKind {
		if errors.Is(err, m.kind) {
			return m.status, message(err, m.kind)
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

// message prefers the text attached by domain.Errorf over the sentinel's.
func message(err, kind error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return kind.Error()
}

package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/wlcham/notes-server/internal/core/domain"
)

// RequireAdmin rejects callers whose identity lacks the admin flag. It must
// run after Auth.
func RequireAdmin(message string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return domain.ErrUnauthenticated
			}
			if !id.IsAdmin {
				return domain.Errorf(domain.ErrForbidden, message)
			}
			return next(c)
		}
	}
}

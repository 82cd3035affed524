package middleware

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wlcham/notes-server/internal/core/domain"
)

// ValidateObjectID rejects requests whose path parameters are not well-formed
// ObjectID hex strings.
func ValidateObjectID(params ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, p := range params {
				if !primitive.IsValidObjectID(c.Param(p)) {
					return domain.ErrInvalidID
				}
			}
			return next(c)
		}
	}
}

package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/wlcham/notes-server/internal/pkg/pagination"
)

const pageKey = "pagination"

// Paginate validates the page and limit query parameters and stores the
// resulting pagination.Params for the handler.
func Paginate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := pagination.Parse(c.QueryParam("page"), c.QueryParam("limit"))
			if err != nil {
				return err
			}
			c.Set(pageKey, p)
			return next(c)
		}
	}
}

// PageFrom returns the params stored by Paginate, or the defaults.
func PageFrom(c echo.Context) pagination.Params {
	if p, ok := c.Get(pageKey).(pagination.Params); ok {
		return p
	}
	return pagination.Default()
}

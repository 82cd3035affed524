package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wlcham/notes-server/internal/api/middleware"
	"github.com/wlcham/notes-server/internal/core/domain"
)

// actor returns the identity injected by the Auth middleware. Its absence
// means the route was wired without Auth, which is treated as unauthenticated.
func actor(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.UserID == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}

// bindAndValidate decodes the request into req and runs the validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

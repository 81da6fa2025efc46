package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that authorizes the already-resolved
// user against a fixed allow-list of roles. It must run after Authenticate;
// the only failure mode is 403 when the role is not in the list.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok || !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"status":  "fail",
					"message": "you do not have permission to perform this action",
				})
			}
			return next(c)
		}
	}
}

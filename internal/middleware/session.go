package middleware // reusable HTTP middleware shared by protected routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/irodav/gatehouse/internal/model"
	"github.com/irodav/gatehouse/internal/token"
)

// userKey is the context key the resolved user is stored under.
const userKey = "user"

// UserResolver loads the user behind a verified token subject. Implemented
// by repository.CachedUsers in production.
type UserResolver interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Authenticate returns an Echo middleware that walks a request from bearer
// token to resolved user: extract the token from the Authorization header,
// verify it with the codec, load the subject's record, and reject tokens
// issued before the user's last password change. On success the user is
// attached to the context for handlers and the role gate; every failure is
// a 401.
func Authenticate(codec *token.Codec, users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return fail(c, "you are not logged in, please log in to get access")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := codec.Verify(raw)
			if err != nil {
				return fail(c, "invalid or expired token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				return fail(c, "the user belonging to this token does no longer exist")
			}

			// Stateless revocation: a password change bumps
			// password_changed_at, which kills every token issued before
			// it. Compared at second granularity to match both the iat
			// claim and the DATETIME column.
			if u.PasswordChangedAt.Unix() > claims.IssuedAt.Unix() {
				return fail(c, "user recently changed password, please log in again")
			}

			c.Set(userKey, u)
			return next(c)
		}
	}
}

// CurrentUser returns the user resolved by Authenticate for this request.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok
}

func fail(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"status": "fail", "message": msg})
}

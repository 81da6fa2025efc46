package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irodav/gatehouse/internal/model"
)

func runRole(t *testing.T, user *model.User, allowed ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(userKey, *user)
	}
	h := RequireRole(allowed...)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	admin := &model.User{ID: 1, Role: model.RoleAdmin}
	user := &model.User{ID: 2, Role: model.RoleUser}

	assert.Equal(t, http.StatusOK, runRole(t, admin, model.RoleAdmin).Code)
	assert.Equal(t, http.StatusOK, runRole(t, user, model.RoleAdmin, model.RoleUser).Code)
	assert.Equal(t, http.StatusForbidden, runRole(t, user, model.RoleAdmin).Code)
	assert.Equal(t, http.StatusForbidden, runRole(t, admin).Code)
}

func TestRequireRole_NoResolvedUser(t *testing.T) {
	t.Parallel()

	// Without Authenticate having run there is no user in context.
	assert.Equal(t, http.StatusForbidden, runRole(t, nil, model.RoleAdmin).Code)
}

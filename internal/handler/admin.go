package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/irodav/gatehouse/internal/auth"
	"github.com/irodav/gatehouse/internal/repository"
)

// AdminHandler serves endpoints restricted to the ADMIN role.
type AdminHandler struct {
	Users auth.UserStore
}

func NewAdminHandler(users auth.UserStore) *AdminHandler {
	return &AdminHandler{Users: users}
}

// GetUser returns the sanitized record of any user by id.
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "fail", "message": "invalid user id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"status": "fail", "message": "no user found with that id"})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"user": sanitize(u)},
	})
}

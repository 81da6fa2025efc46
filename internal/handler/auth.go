package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/irodav/gatehouse/internal/auth"
	"github.com/irodav/gatehouse/internal/config"
	"github.com/irodav/gatehouse/internal/middleware"
	"github.com/irodav/gatehouse/internal/model"
)

// AuthHandler exposes the auth flows over HTTP. It binds request bodies,
// delegates to the auth service and renders the success envelope, setting
// the session cookie alongside every issued token.
type AuthHandler struct {
	Svc *auth.Service
	Cfg config.Config
}

func NewAuthHandler(svc *auth.Service, cfg config.Config) *AuthHandler {
	return &AuthHandler{Svc: svc, Cfg: cfg}
}

// ----- DTOs -----

type signupReq struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}
type updatePasswordReq struct {
	Password           string `json:"password"` // current password
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// userPart is the sanitized user shape embedded in success responses.
// Secret-bearing fields never appear here.
type userPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func sanitize(u model.User) userPart {
	return userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// SessionCookieName is the cookie mirroring the bearer token for browser
// clients.
const SessionCookieName = "session"

// sendToken renders the success envelope and mirrors the token into an
// HTTP-only cookie, marked Secure in the hardened configuration.
func (h *AuthHandler) sendToken(c echo.Context, status int, u model.User, tok string) error {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    tok,
		Expires:  time.Now().Add(time.Duration(h.Cfg.CookieTTLHours) * time.Hour),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Cfg.Prod(),
	})
	return c.JSON(status, echo.Map{
		"status": "success",
		"token":  tok,
		"data":   echo.Map{"user": sanitize(u)},
	})
}

// respondError maps a domain error onto the error envelope. Anything that
// is not an *auth.Error is reported as an opaque 500 so storage or broker
// details never leak to clients.
func respondError(c echo.Context, err error) error {
	if e, ok := err.(*auth.Error); ok {
		status := "fail"
		if e.Status >= http.StatusInternalServerError {
			status = "error"
		}
		return c.JSON(e.Status, echo.Map{"status": status, "message": e.Message})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"status":  "error",
		"message": "something went very wrong",
	})
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Signup creates an account and logs the new user in.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "fail", "message": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, tok, err := h.Svc.Signup(ctx, req.Name, req.Email, req.Password, req.PasswordConfirm)
	if err != nil {
		return respondError(c, err)
	}
	return h.sendToken(c, http.StatusCreated, u, tok)
}

// Login verifies credentials and issues a session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "fail", "message": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, tok, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return h.sendToken(c, http.StatusOK, u, tok)
}

// ForgotPassword mails a reset link; the token itself is only ever in the
// email, never in the response.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "fail", "message": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.ForgotPassword(ctx, req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "token sent to email"})
}

// ResetPassword redeems the path-embedded reset token and logs the user in
// with their new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "fail", "message": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, tok, err := h.Svc.ResetPassword(ctx, c.Param("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		return respondError(c, err)
	}
	return h.sendToken(c, http.StatusOK, u, tok)
}

// UpdatePassword changes the authenticated user's password after
// re-verifying the current one.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": "fail", "message": "you are not logged in, please log in to get access"})
	}
	var req updatePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "fail", "message": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	updated, tok, err := h.Svc.UpdatePassword(ctx, u, req.Password, req.NewPassword, req.NewPasswordConfirm)
	if err != nil {
		return respondError(c, err)
	}
	return h.sendToken(c, http.StatusOK, updated, tok)
}

// Me returns the authenticated user's sanitized record.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"status": "fail", "message": "you are not logged in, please log in to get access"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"user": sanitize(u)},
	})
}

// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/irodav/gatehouse/internal/handler"
	"github.com/irodav/gatehouse/internal/middleware"
	"github.com/irodav/gatehouse/internal/model"
	"github.com/irodav/gatehouse/internal/token"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth flows. Credential operations live under
// /v1/auth and carry no session; the authenticated surface lives under /v1
// behind the session middleware, with the admin subtree additionally gated
// by role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, adm *handler.AdminHandler, codec *token.Codec, users middleware.UserResolver) {
	g := e.Group("/v1/auth")
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.POST("/forgot-password", a.ForgotPassword)
	// The raw reset token rides in the path, exactly as mailed to the user.
	g.PATCH("/reset-password/:token", a.ResetPassword)

	authed := e.Group("/v1")
	authed.Use(middleware.Authenticate(codec, users))
	authed.GET("/me", a.Me)
	authed.PATCH("/me/password", a.UpdatePassword)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users/:id", adm.GetUser)
}

package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmanager/auth-service/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
	AccessAuth  *middleware.AccessAuth
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/api/v1/auth")

	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)

	private := auth.Group("")
	private.Use(d.AccessAuth.RequireAuth)

	private.POST("/logout-all", d.AuthHandler.LogoutAll)
}

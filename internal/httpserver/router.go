package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wgdash/wg-dashboard/internal/middleware"
	"github.com/wgdash/wg-dashboard/internal/tokens"
)

type Deps struct {
	AuthHandler *AuthHTTP
	UserHandler *UserHTTP
	PeerHandler *PeerHTTP
	Issuer      *tokens.Issuer
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMw := middleware.NewBearerAuth(d.Issuer)

	auth := e.Group("/api/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.DELETE("/revoke", d.AuthHandler.Revoke)
	auth.PATCH("/passwd/:id", d.AuthHandler.ChangePassword, authMw.RequireAuth)

	users := e.Group("/api/users", authMw.RequireAuth)
	users.GET("", d.UserHandler.List)
	users.GET("/:id", d.UserHandler.Get)
	users.PUT("/:id", d.UserHandler.Update)
	users.DELETE("/:id", d.UserHandler.Delete)

	peers := e.Group("/api/peers", authMw.RequireAuth)
	peers.POST("", d.PeerHandler.Create)
	peers.GET("", d.PeerHandler.List)
	peers.GET("/:id", d.PeerHandler.Get)
	peers.GET("/owner/:ownerid", d.PeerHandler.ListByOwner)
	peers.GET("/owner/username/:username", d.PeerHandler.ListByOwnerUsername)
	peers.PUT("/:id", d.PeerHandler.Update)
	peers.DELETE("/:id", d.PeerHandler.Delete)
}

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/wgdash/wg-dashboard/internal/logging"
	"github.com/wgdash/wg-dashboard/internal/middleware"
	"github.com/wgdash/wg-dashboard/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Signup(ctx, req.Username, req.Password, req.Name)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":       user.ID,
		"username": user.Username,
		"name":     user.Name,
		"role":     user.Role,
	})
}

// Login returns the access token as the response body and hands the
// refresh token back on its own channel, a cookie.
func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(refreshCookie(res.RefreshToken, res.RefreshExp))
	return c.JSON(http.StatusOK, res.AccessToken)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	res, err := h.Svc.Refresh(ctx, cookie.Value)
	if err != nil {
		c.SetCookie(deleteRefreshCookie())
		return httpError(err)
	}

	c.SetCookie(refreshCookie(res.RefreshToken, res.RefreshExp))
	return c.JSON(http.StatusOK, res.AccessToken)
}

func (h *AuthHTTP) Revoke(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	if err := h.Svc.Logout(ctx, cookie.Value); err != nil {
		c.SetCookie(deleteRefreshCookie())
		return httpError(err)
	}

	c.SetCookie(deleteRefreshCookie())
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_passwd")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var req struct {
		ID       uint   `json:"id"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("passwd_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ID != uint(id) {
		return echo.NewHTTPError(http.StatusBadRequest, "conflicting IDs in URL and body")
	}

	actor, ok := middleware.SubjectFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	if err := h.Svc.ChangePassword(ctx, actor, uint(id), req.Password); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

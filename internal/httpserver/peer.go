package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/wgdash/wg-dashboard/internal/logging"
	"github.com/wgdash/wg-dashboard/internal/middleware"
	"github.com/wgdash/wg-dashboard/internal/service"
)

type PeerHTTP struct {
	Svc *service.PeerService
}

func (h *PeerHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "peer_create")

	var req struct {
		PublicKey         string `json:"publickey"`
		AllowedIPs        string `json:"allowedips"`
		OwnerID           uint   `json:"ownerid"`
		DeviceType        string `json:"devicetype"`
		DeviceDescription string `json:"devicedescription"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("create_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	actor, ok := middleware.SubjectFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	profile, err := h.Svc.Create(ctx, actor, service.PeerInput{
		PublicKey:         req.PublicKey,
		AllowedIPs:        req.AllowedIPs,
		DeviceType:        req.DeviceType,
		DeviceDescription: req.DeviceDescription,
		OwnerID:           req.OwnerID,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *PeerHTTP) List(c echo.Context) error {
	actor, ok := middleware.SubjectFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	profiles, err := h.Svc.List(c.Request().Context(), actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profiles)
}

func (h *PeerHTTP) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid peer id")
	}

	actor, ok := middleware.SubjectFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	profile, err := h.Svc.Get(c.Request().Context(), actor, uint(id))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *PeerHTTP) ListByOwner(c echo.Context) error {
	ownerID, err := strconv.ParseUint(c.Param("ownerid"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid owner id")
	}

	actor, ok := middleware.SubjectFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	profiles, err := h.Svc.ListByOwner(c.Request().Context(), actor, uint(ownerID))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profiles)
}

func (h *PeerHTTP) ListByOwnerUsername(c echo.Context) error {
	username := c.Param("username")
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid owner username")
	}

	actor, ok := middleware.SubjectFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	profiles, err := h.Svc.ListByOwnerUsername(c.Request().Context(), actor, username)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profiles)
}

func (h *PeerHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "peer_update")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid peer id")
	}

	var req struct {
		ID                uint   `json:"id"`
		PublicKey         string `json:"publickey"`
		AllowedIPs        string `json:"allowedips"`
		DeviceType        string `json:"devicetype"`
		DeviceDescription string `json:"devicedescription"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("update_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ID != uint(id) {
		return echo.NewHTTPError(http.StatusBadRequest, "conflicting IDs in URL and body")
	}

	actor, ok := middleware.SubjectFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	if err := h.Svc.Update(ctx, actor, uint(id), service.PeerInput{
		PublicKey:         req.PublicKey,
		AllowedIPs:        req.AllowedIPs,
		DeviceType:        req.DeviceType,
		DeviceDescription: req.DeviceDescription,
	}); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PeerHTTP) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid peer id")
	}

	actor, ok := middleware.SubjectFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	if err := h.Svc.Delete(c.Request().Context(), actor, uint(id)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

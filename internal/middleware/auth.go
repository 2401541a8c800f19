package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/wgdash/wg-dashboard/internal/authz"
	"github.com/wgdash/wg-dashboard/internal/tokens"
)

const subjectKey = "subject"

type BearerAuth struct {
	Issuer *tokens.Issuer
}

func NewBearerAuth(issuer *tokens.Issuer) *BearerAuth {
	return &BearerAuth{Issuer: issuer}
}

// RequireAuth validates the Authorization header and stores the derived
// authz subject on the echo context.
func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		claims, err := m.Issuer.ParseAccess(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		userID, err := claims.UserID()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(subjectKey, authz.Subject{ID: userID, Role: claims.Role})

		return next(c)
	}
}

// SubjectFrom returns the authenticated subject stored by RequireAuth.
func SubjectFrom(c echo.Context) (authz.Subject, bool) {
	sub, ok := c.Get(subjectKey).(authz.Subject)
	return sub, ok
}

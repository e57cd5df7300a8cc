package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskmanager/auth-service/internal/tokens"
)

const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRoles    = "roles"
)

type AccessAuth struct {
	Signer *tokens.Signer
}

func NewAccessAuth(signer *tokens.Signer) *AccessAuth {
	return &AccessAuth{Signer: signer}
}

// RequireAuth verifies the bearer access token and stashes the caller
// principal into the echo context for handlers that need an explicit
// caller identity.
func (m *AccessAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.Signer.Verify(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Subject)
		c.Set(CtxRoles, claims.Roles)

		return next(c)
	}
}

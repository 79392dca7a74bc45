package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/school-event-seating/internal/utils"
)

// Context keys set by AdminAuth.
const (
	ctxKeySubject = "subject"
	ctxKeyRole    = "role"
)

// AdminAuth returns an Echo middleware that validates a Bearer admin token
// and injects the token's subject and role claims into the request context.
// The provided secret must match the one used when issuing tokens.
func AdminAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims, err := utils.ParseAdminToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(ctxKeySubject, claims.Subject)
			c.Set(ctxKeyRole, claims.Role)
			return next(c)
		}
	}
}

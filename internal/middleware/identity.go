package middleware

import "github.com/labstack/echo/v4"

// Subject returns the authenticated subject stored by AdminAuth, or "anon"
// for unauthenticated requests.
func Subject(c echo.Context) string {
	if s, ok := c.Get(ctxKeySubject).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// clientIP returns the caller's address as seen through proxies.
func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}

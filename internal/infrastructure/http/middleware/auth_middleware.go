package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/quietline/quietline/pkg/jwt"
)

const (
	// OperatorContextKey is the echo context key holding the operator claims
	OperatorContextKey = "operator"
)

// EchoAuth returns an Echo middleware that validates the operator JWT and
// sets the parsed claims into the Echo context
func EchoAuth(manager *jwt.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization token")
			}

			claims, err := manager.ValidateAccessToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(OperatorContextKey, claims)
			return next(c)
		}
	}
}

// OperatorFromContext retrieves the operator claims set by EchoAuth
func OperatorFromContext(c echo.Context) (*jwt.Claims, bool) {
	claims, ok := c.Get(OperatorContextKey).(*jwt.Claims)
	return claims, ok
}

func extractToken(c echo.Context) string {
	// Try Authorization header first
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		// Expected format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// Try cookie as fallback
	if cookie, err := c.Cookie("access_token"); err == nil {
		return cookie.Value
	}

	return ""
}

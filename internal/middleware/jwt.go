package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"perfectpay-backend/internal/auth"
)

// JWT authenticates the Bearer token and stores user_id and role in the
// echo context for downstream handlers.
func JWT(tokens *auth.Tokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing or malformed token"})
			}

			userID, role, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set("user_id", userID)
			c.Set("role", role)
			return next(c)
		}
	}
}

// RequireRoles ensures the requester's role is one of the allowed roles.
// Usage: route(..., RequireRoles("partner", "admin"))
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if role == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "role missing"})
			}
			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
		}
	}
}

// UserID pulls the authenticated user id set by JWT.
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get("user_id").(int64)
	return id, ok
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"artmarket/internal/domain"
	"artmarket/internal/services"
	"artmarket/pkg/logger"
)

const userContextKey = "artmarket.user"

// AuthMiddleware resolves the bearer token through the identity provider and
// stashes the locally cached user on the request context. Credential
// verification itself belongs to the provider.
func AuthMiddleware(accounts *services.AccountService, log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}

			user, err := accounts.ResolveCaller(c.Request().Context(), token)
			if err != nil {
				log.Warn("Identity resolution failed", "error", err)
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// RequireRole rejects callers below the given role. Admins pass everything.
func RequireRole(role domain.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := currentUser(c)
			if user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			}
			if user.Role != role && user.Role != domain.RoleAdmin {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "insufficient role"})
			}
			return next(c)
		}
	}
}

func currentUser(c echo.Context) *domain.User {
	user, _ := c.Get(userContextKey).(*domain.User)
	return user
}

package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

const (
	PermissionCrawlCreate = "crawl.create"
	// PermissionViewAllGames lets a user read the gameplays of other users.
	PermissionViewAllGames = "game.view:all"
)

var allPermissions = []string{
	PermissionCrawlCreate,
	PermissionViewAllGames,
}

func HasPermission(user *AppUser, permission string) bool {
	return user != nil && slices.Contains(user.Permissions, permission)
}

// CanView reports whether user may see the gameplays of owner.
func CanView(user *AppUser, owner string) bool {
	if user == nil {
		return false
	}
	return user.UserID == owner || HasPermission(user, PermissionViewAllGames)
}

func RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, ok := c.(*AppContext)
			switch {
			case !ok || ac.User == nil:
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			case !HasPermission(ac.User, permission):
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden: missing permission " + permission})
			}
			return next(c)
		}
	}
}

package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/okravchenko/parking-api/internal/blacklist"
	"github.com/okravchenko/parking-api/internal/models"
	"github.com/okravchenko/parking-api/internal/repo"
	"github.com/okravchenko/parking-api/internal/tokens"
)

const (
	userContextKey  = "current_user"
	tokenContextKey = "access_token"
)

// Guard resolves the current user from a bearer access token. Every
// protected route goes through RequireAuth first.
type Guard struct {
	Tokens    *tokens.Service
	Repo      *repo.GormRepo
	Blacklist *blacklist.Blacklist
}

func (g *Guard) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := tokens.ExtractBearer(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		if g.Blacklist.Has(token) {
			return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
		}

		email, err := g.Tokens.DecodeAccess(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		user, err := g.Repo.GetUserByEmail(c.Request().Context(), email)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(userContextKey, user)
		c.Set(tokenContextKey, token)
		return next(c)
	}
}

// RequireRoles gates a route on the allowed role set. Must run after
// RequireAuth.
func (g *Guard) RequireRoles(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}
			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Operation forbidden")
		}
	}
}

func CurrentUser(c echo.Context) (*models.User, bool) {
	user, ok := c.Get(userContextKey).(*models.User)
	return user, ok
}

func AccessToken(c echo.Context) string {
	token, _ := c.Get(tokenContextKey).(string)
	return token
}

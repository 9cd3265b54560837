package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/okravchenko/parking-api/internal/blacklist"
	"github.com/okravchenko/parking-api/internal/models"
	"github.com/okravchenko/parking-api/internal/repo"
	"github.com/okravchenko/parking-api/internal/tokens"
)

func newTestGuard(t *testing.T) (*Guard, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	guard := &Guard{
		Tokens:    tokens.NewService([]byte("test-jwt-secret"), []byte("test-refresh-secret")),
		Repo:      repo.New(db),
		Blacklist: blacklist.New(),
	}
	return guard, db
}

func newBearerContext(token string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRequireAuth(t *testing.T) {
	guard, db := newTestGuard(t)

	user := models.User{Email: "a@x.com", PasswordHash: "x", Role: models.RoleUser, Confirmed: true, IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	protected := guard.RequireAuth(okHandler)

	err := protected(newBearerContext(""))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)

	err = protected(newBearerContext("garbage"))
	require.Equal(t, http.StatusUnauthorized, err.(*echo.HTTPError).Code)

	ghost, err := guard.Tokens.CreateAccessToken("ghost@x.com")
	require.NoError(t, err)
	err = protected(newBearerContext(ghost))
	require.Equal(t, http.StatusUnauthorized, err.(*echo.HTTPError).Code)

	refresh, err := guard.Tokens.CreateRefreshToken(user.Email)
	require.NoError(t, err)
	err = protected(newBearerContext(refresh))
	require.Equal(t, http.StatusUnauthorized, err.(*echo.HTTPError).Code)

	access, err := guard.Tokens.CreateAccessToken(user.Email)
	require.NoError(t, err)

	c := newBearerContext(access)
	require.NoError(t, protected(c))

	resolved, found := CurrentUser(c)
	require.True(t, found)
	require.Equal(t, user.Email, resolved.Email)
	require.Equal(t, access, AccessToken(c))

	guard.Blacklist.Add(access, time.Now().Add(time.Hour))
	err = protected(newBearerContext(access))
	require.Equal(t, http.StatusUnauthorized, err.(*echo.HTTPError).Code)
}

func TestRequireRoles(t *testing.T) {
	guard, db := newTestGuard(t)

	admin := models.User{Email: "admin@x.com", PasswordHash: "x", Role: models.RoleAdmin, Confirmed: true, IsActive: true}
	plain := models.User{Email: "user@x.com", PasswordHash: "x", Role: models.RoleUser, Confirmed: true, IsActive: true}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&plain).Error)

	adminOnly := guard.RequireAuth(guard.RequireRoles(models.RoleAdmin)(okHandler))

	adminToken, err := guard.Tokens.CreateAccessToken(admin.Email)
	require.NoError(t, err)
	plainToken, err := guard.Tokens.CreateAccessToken(plain.Email)
	require.NoError(t, err)

	require.NoError(t, adminOnly(newBearerContext(adminToken)))

	err = adminOnly(newBearerContext(plainToken))
	require.Equal(t, http.StatusForbidden, err.(*echo.HTTPError).Code)

	// role set with more than one allowed role
	staff := guard.RequireAuth(guard.RequireRoles(models.RoleAdmin, models.RoleModerator)(okHandler))
	moderator := models.User{Email: "mod@x.com", PasswordHash: "x", Role: models.RoleModerator, Confirmed: true, IsActive: true}
	require.NoError(t, db.Create(&moderator).Error)
	modToken, err := guard.Tokens.CreateAccessToken(moderator.Email)
	require.NoError(t, err)

	require.NoError(t, staff(newBearerContext(modToken)))
	err = staff(newBearerContext(plainToken))
	require.Equal(t, http.StatusForbidden, err.(*echo.HTTPError).Code)

	// guard without RequireAuth in front rejects as unauthenticated
	bare := guard.RequireRoles(models.RoleAdmin)(okHandler)
	err = bare(newBearerContext(adminToken))
	require.Equal(t, http.StatusUnauthorized, err.(*echo.HTTPError).Code)
}

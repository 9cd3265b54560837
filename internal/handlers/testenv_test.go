package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/okravchenko/parking-api/internal/blacklist"
	"github.com/okravchenko/parking-api/internal/hash"
	authmw "github.com/okravchenko/parking-api/internal/middleware/auth"
	"github.com/okravchenko/parking-api/internal/models"
	"github.com/okravchenko/parking-api/internal/mykafka"
	"github.com/okravchenko/parking-api/internal/repo"
	"github.com/okravchenko/parking-api/internal/tokens"
)

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
		return nil
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.ParkingRecord{},
		&models.ParkingRate{},
		&models.ParkingLot{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

type testEnv struct {
	T         *testing.T
	E         *echo.Echo
	DB        *gorm.DB
	Repo      *repo.GormRepo
	Tokens    *tokens.Service
	Blacklist *blacklist.Blacklist
	Guard     *authmw.Guard
	Auth      *AuthHandler
	Admin     *AdminHandler
	Parking   *ParkingHandler
}

func newTestEnv(t *testing.T) *testEnv {
	db := InitTestDB(t)

	gormRepo := repo.New(db)
	tokenService := tokens.NewService([]byte("test-jwt-secret"), []byte("test-refresh-secret"))
	revoked := blacklist.New()
	prod := &mykafka.Producer{}

	env := &testEnv{
		T:         t,
		E:         echo.New(),
		DB:        db,
		Repo:      gormRepo,
		Tokens:    tokenService,
		Blacklist: revoked,
		Guard:     &authmw.Guard{Tokens: tokenService, Repo: gormRepo, Blacklist: revoked},
	}
	env.Auth = &AuthHandler{Repo: gormRepo, Tokens: tokenService, Blacklist: revoked, Producer: prod}
	env.Admin = &AdminHandler{Repo: gormRepo}
	env.Parking = &ParkingHandler{Repo: gormRepo, Producer: prod}

	return env
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) doBearerRequest(method, path, token string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	rec, c := env.doJSONRequest(method, path, body)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return rec, c
}

func createUser(t *testing.T, env *testEnv, email string, role models.Role, confirmed, active bool) *models.User {
	t.Helper()

	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)

	user := models.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
		Confirmed:    confirmed,
		IsActive:     active,
	}
	require.NoError(t, env.DB.Create(&user).Error)
	return &user
}

func loginTokens(t *testing.T, env *testEnv, email string) (string, string) {
	t.Helper()

	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": "password",
	})
	require.NoError(t, env.Auth.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)

	return resp.AccessToken, resp.RefreshToken
}

func httpErrorCode(t *testing.T, err error) int {
	t.Helper()

	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	return he.Code
}

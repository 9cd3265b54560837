package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/okravchenko/parking-api/internal/blacklist"
	"github.com/okravchenko/parking-api/internal/hash"
	"github.com/okravchenko/parking-api/internal/logging"
	authmw "github.com/okravchenko/parking-api/internal/middleware/auth"
	"github.com/okravchenko/parking-api/internal/models"
	"github.com/okravchenko/parking-api/internal/mykafka"
	"github.com/okravchenko/parking-api/internal/repo"
	"github.com/okravchenko/parking-api/internal/tokens"
)

type AuthHandler struct {
	Repo      *repo.GormRepo
	Tokens    *tokens.Service
	Blacklist *blacklist.Blacklist
	Producer  *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req struct {
		FirstName            string `json:"first_name"`
		LastName             string `json:"last_name"`
		Email                string `json:"email"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(req.PasswordConfirmation)) != 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "Passwords do not match")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not hash password")
	}

	user := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := h.Repo.CreateUser(c.Request().Context(), &user); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, "Account already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create user")
	}

	confirmToken, err := h.Tokens.CreateEmailToken(user.Email)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("confirmation token error", "error", err)
	} else {
		h.publish(c, user.Email, map[string]interface{}{
			"type":               "user_registered",
			"user_id":            user.ID,
			"email":              user.Email,
			"fullname":           user.FullName(),
			"confirmation_token": confirmToken,
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"user":   user,
		"detail": "User successfully created. Check your email for confirmation.",
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	user, err := h.Repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email")
	}
	if !user.Confirmed {
		return echo.NewHTTPError(http.StatusUnauthorized, "Email not confirmed")
	}
	if !user.IsActive {
		return echo.NewHTTPError(http.StatusForbidden, "User is inactive")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid password")
	}

	accessToken, err := h.Tokens.CreateAccessToken(user.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create access token")
	}
	refreshToken, err := h.Tokens.CreateRefreshToken(user.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create refresh token")
	}

	if err := h.Repo.UpdateRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not persist refresh token")
	}

	h.publish(c, user.Email, map[string]interface{}{
		"type":    "user_logged_in",
		"user_id": user.ID,
		"email":   user.Email,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "bearer",
	})
}

// Logout runs behind RequireAuth, so the access token is already verified.
// It is blacklisted for its remaining lifetime and the stored refresh token
// is dropped.
func (h *AuthHandler) Logout(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	token := authmw.AccessToken(c)
	claims, err := h.Tokens.DecodeAccessClaims(token)
	if err == nil && claims.ExpiresAt != nil {
		h.Blacklist.Add(token, claims.ExpiresAt.Time)
	}

	if err := h.Repo.UpdateRefreshToken(c.Request().Context(), user.ID, ""); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not clear refresh token")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful."})
}

// Refresh rotates the token pair. The stored refresh token is swapped with a
// conditional UPDATE; when the presented token lost that race or was already
// rotated out, the stored token is cleared and the caller must log in again.
func (h *AuthHandler) Refresh(c echo.Context) error {
	token, err := tokens.ExtractBearer(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	email, err := h.Tokens.DecodeRefresh(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}

	ctx := c.Request().Context()
	user, err := h.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}

	newRefresh, err := h.Tokens.CreateRefreshToken(user.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create refresh token")
	}

	ok, err := h.Repo.RotateRefreshToken(ctx, user.ID, token, newRefresh)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not rotate refresh token")
	}
	if !ok {
		// Reuse of a stale token: force a logout.
		if err := h.Repo.UpdateRefreshToken(ctx, user.ID, ""); err != nil {
			logging.FromContext(ctx).Error("clear refresh token error", "error", err)
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}

	accessToken, err := h.Tokens.CreateAccessToken(user.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create access token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  accessToken,
		"refresh_token": newRefresh,
		"token_type":    "bearer",
	})
}

// RequestEmail answers the same way whether or not the address is
// registered, so it cannot be used to probe for accounts.
func (h *AuthHandler) RequestEmail(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.Repo.GetUserByEmail(c.Request().Context(), req.Email)
	if err == nil {
		if user.Confirmed {
			return c.JSON(http.StatusOK, echo.Map{"message": "Your email is already confirmed"})
		}
		confirmToken, tokenErr := h.Tokens.CreateEmailToken(user.Email)
		if tokenErr != nil {
			logging.FromContext(c.Request().Context()).Error("confirmation token error", "error", tokenErr)
		} else {
			h.publish(c, user.Email, map[string]interface{}{
				"type":               "confirmation_requested",
				"user_id":            user.ID,
				"email":              user.Email,
				"fullname":           user.FullName(),
				"confirmation_token": confirmToken,
			})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Check your email for confirmation."})
}

func (h *AuthHandler) ConfirmedEmail(c echo.Context) error {
	email, err := h.Tokens.DecodeEmail(c.Param("token"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Verification error")
	}

	ctx := c.Request().Context()
	user, err := h.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Verification error")
	}
	if user.Confirmed {
		return c.JSON(http.StatusOK, echo.Map{"message": "Your email is already confirmed"})
	}

	if err := h.Repo.ConfirmUser(ctx, email); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not confirm email")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Email confirmed"})
}

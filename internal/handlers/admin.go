package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/okravchenko/parking-api/internal/models"
	"github.com/okravchenko/parking-api/internal/repo"
	"github.com/okravchenko/parking-api/internal/report"
)

type AdminHandler struct {
	Repo *repo.GormRepo
}

func (h *AdminHandler) setUserStatus(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		IsActive bool   `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	user, err := h.Repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found.")
	}
	if err := h.Repo.SetUserActive(ctx, user.ID, req.IsActive); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not update user status")
	}

	status := "inactive"
	if req.IsActive {
		status = "active"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("User status changed to %s.", status),
	})
}

func (h *AdminHandler) BlockUser(c echo.Context) error {
	return h.setUserStatus(c)
}

// UnblockUser mirrors BlockUser; both routes exist in the public interface.
func (h *AdminHandler) UnblockUser(c echo.Context) error {
	return h.setUserStatus(c)
}

func (h *AdminHandler) ChangeRole(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var req struct {
		Role models.Role `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !req.Role.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	ctx := c.Request().Context()
	user, err := h.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found.")
	}
	if err := h.Repo.SetUserRole(ctx, user.ID, req.Role); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not update user role")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("User role updated to %s", req.Role),
	})
}

func (h *AdminHandler) SetParkingRate(c echo.Context) error {
	var req struct {
		RatePerHour  int    `json:"rate_per_hour"`
		MaxDailyRate int    `json:"max_daily_rate"`
		Currency     string `json:"currency"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RatePerHour <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "rate_per_hour must be positive")
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	rate := models.ParkingRate{
		TotalSpaces:     100,
		AvailableSpaces: 100,
		RatePerHour:     req.RatePerHour,
		MaxDailyRate:    req.MaxDailyRate,
		Currency:        req.Currency,
	}
	if err := h.Repo.CreateParkingRate(c.Request().Context(), &rate); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create parking rate")
	}

	return c.JSON(http.StatusCreated, rate)
}

func (h *AdminHandler) AvailableSpaces(c echo.Context) error {
	rate, err := h.Repo.GetLatestParkingRate(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Parking information not found.")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_spaces":     rate.TotalSpaces,
		"available_spaces": rate.AvailableSpaces,
		"occupied_spaces":  rate.TotalSpaces - rate.AvailableSpaces,
		"rate_per_hour":    rate.RatePerHour,
		"max_daily_rate":   rate.MaxDailyRate,
		"currency":         rate.Currency,
	})
}

func (h *AdminHandler) UpdateParkingInfo(c echo.Context) error {
	var req struct {
		TotalSpaces     int    `json:"total_spaces"`
		AvailableSpaces int    `json:"available_spaces"`
		RatePerHour     int    `json:"rate_per_hour"`
		MaxDailyRate    int    `json:"max_daily_rate"`
		Currency        string `json:"currency"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TotalSpaces <= 0 || req.AvailableSpaces < 0 || req.AvailableSpaces > req.TotalSpaces {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid space counts")
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	info := models.ParkingRate{
		TotalSpaces:     req.TotalSpaces,
		AvailableSpaces: req.AvailableSpaces,
		RatePerHour:     req.RatePerHour,
		MaxDailyRate:    req.MaxDailyRate,
		Currency:        req.Currency,
	}
	updated, err := h.Repo.UpdateParkingInfo(c.Request().Context(), &info)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not update parking info")
	}

	return c.JSON(http.StatusOK, updated)
}

func (h *AdminHandler) GenerateReport(c echo.Context) error {
	var req struct {
		VehicleID uuid.UUID `json:"vehicle_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	records, err := h.Repo.RecordsByVehicle(c.Request().Context(), req.VehicleID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load parking records")
	}
	if len(records) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "No parking records found for this vehicle.")
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, records); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not generate report")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, report.Filename(req.VehicleID)))
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *AdminHandler) BlacklistVehicle(c echo.Context) error {
	var req struct {
		IsBlacklisted bool `json:"is_blacklisted"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.Repo.SetVehicleBlacklisted(c.Request().Context(), c.Param("plate"), req.IsBlacklisted)
	if errors.Is(err, repo.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Vehicle not found.")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not update vehicle")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Vehicle blacklist updated."})
}

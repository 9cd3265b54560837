package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/labstack/echo/v4"

	"github.com/okravchenko/parking-api/internal/logging"
	authmw "github.com/okravchenko/parking-api/internal/middleware/auth"
	"github.com/okravchenko/parking-api/internal/models"
	"github.com/okravchenko/parking-api/internal/mykafka"
	"github.com/okravchenko/parking-api/internal/repo"
	"github.com/okravchenko/parking-api/internal/service/search"
)

type ParkingHandler struct {
	Repo     *repo.GormRepo
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Index    string
}

func (h *ParkingHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "parking_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *ParkingHandler) RegisterVehicle(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	var req struct {
		LicensePlate string `json:"license_plate"`
		BrandModel   string `json:"brand_model"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.LicensePlate == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "license_plate is required")
	}

	vehicle := models.Vehicle{
		LicensePlate: req.LicensePlate,
		BrandModel:   req.BrandModel,
		UserID:       user.ID,
	}
	if err := h.Repo.CreateVehicle(c.Request().Context(), &vehicle); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, "Vehicle already registered")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not register vehicle")
	}

	return c.JSON(http.StatusCreated, vehicle)
}

func (h *ParkingHandler) MyVehicles(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	vehicles, err := h.Repo.VehiclesByUser(c.Request().Context(), user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load vehicles")
	}
	return c.JSON(http.StatusOK, vehicles)
}

func (h *ParkingHandler) Entry(c echo.Context) error {
	var req struct {
		LicensePlate string `json:"license_plate"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	vehicle, err := h.Repo.GetVehicleByPlate(ctx, req.LicensePlate)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Vehicle not found.")
	}
	if vehicle.IsBlacklisted {
		return echo.NewHTTPError(http.StatusForbidden, "Vehicle is blacklisted")
	}

	if _, err := h.Repo.OpenRecordByVehicle(ctx, vehicle.ID); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "Vehicle is already parked")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not check parking state")
	}

	rate, err := h.Repo.GetLatestParkingRate(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Parking information not found.")
	}

	taken, err := h.Repo.TakeSpace(ctx, rate.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not reserve space")
	}
	if !taken {
		return echo.NewHTTPError(http.StatusConflict, "No available spaces")
	}

	record := models.ParkingRecord{
		VehicleID: vehicle.ID,
		EntryTime: time.Now().UTC(),
	}
	if err := h.Repo.CreateParkingRecord(ctx, &record); err != nil {
		if relErr := h.Repo.ReleaseSpace(ctx, rate.ID); relErr != nil {
			logging.FromContext(ctx).Error("release space error", "error", relErr)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create parking record")
	}

	h.publish(c, vehicle.LicensePlate, map[string]interface{}{
		"type":          "vehicle_entered",
		"record_id":     record.ID,
		"license_plate": vehicle.LicensePlate,
		"entry_time":    record.EntryTime,
	})

	return c.JSON(http.StatusCreated, record)
}

func (h *ParkingHandler) Exit(c echo.Context) error {
	var req struct {
		LicensePlate string `json:"license_plate"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	vehicle, err := h.Repo.GetVehicleByPlate(ctx, req.LicensePlate)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Vehicle not found.")
	}

	record, err := h.Repo.OpenRecordByVehicle(ctx, vehicle.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "No open parking record for this vehicle.")
	}

	rate, err := h.Repo.GetLatestParkingRate(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Parking information not found.")
	}

	exit := time.Now().UTC()
	parked := exit.Sub(record.EntryTime)
	duration := int(math.Ceil(parked.Minutes()))
	cost := CalculateCost(parked, rate.RatePerHour, rate.MaxDailyRate)

	if err := h.Repo.CloseParkingRecord(ctx, record, exit, duration, cost); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not close parking record")
	}
	if err := h.Repo.ReleaseSpace(ctx, rate.ID); err != nil {
		logging.FromContext(ctx).Error("release space error", "error", err)
	}

	record.ExitTime = &exit
	record.Duration = duration
	record.Cost = cost

	h.publish(c, vehicle.LicensePlate, map[string]interface{}{
		"type":          "vehicle_exited",
		"record_id":     record.ID,
		"license_plate": vehicle.LicensePlate,
		"duration":      duration,
		"cost":          cost,
	})
	h.indexRecord(c, vehicle, record)

	return c.JSON(http.StatusOK, record)
}

func (h *ParkingHandler) indexRecord(c echo.Context, vehicle *models.Vehicle, record *models.ParkingRecord) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	doc := search.RecordDoc{
		ID:           record.ID.String(),
		LicensePlate: vehicle.LicensePlate,
		BrandModel:   vehicle.BrandModel,
		EntryTime:    record.EntryTime,
		ExitTime:     record.ExitTime,
		Duration:     record.Duration,
		Cost:         record.Cost,
	}
	if err := search.IndexRecord(ctx, h.ES, h.Index, doc); err != nil {
		logging.FromContext(c.Request().Context()).Error("es index error", "error", err)
	}
}

// CalculateCost charges every started hour, capping each started day at the
// daily maximum when one is configured.
func CalculateCost(parked time.Duration, ratePerHour, maxDailyRate int) int {
	if parked <= 0 {
		return 0
	}

	const day = 24 * time.Hour
	if maxDailyRate <= 0 {
		return int(math.Ceil(parked.Hours())) * ratePerHour
	}

	fullDays := int(parked / day)
	rest := parked % day
	cost := fullDays * maxDailyRate
	if rest > 0 {
		restCost := int(math.Ceil(rest.Hours())) * ratePerHour
		if restCost > maxDailyRate {
			restCost = maxDailyRate
		}
		cost += restCost
	}
	return cost
}

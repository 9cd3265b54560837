package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/okravchenko/parking-api/internal/models"
)

func seedRate(t *testing.T, env *testEnv, available int) *models.ParkingRate {
	t.Helper()
	rate := models.ParkingRate{
		TotalSpaces:     100,
		AvailableSpaces: available,
		RatePerHour:     10,
		MaxDailyRate:    50,
		Currency:        "UAH",
	}
	require.NoError(t, env.DB.Create(&rate).Error)
	return &rate
}

func TestRegisterVehicle(t *testing.T) {
	env := newTestEnv(t)
	createUser(t, env, "a@x.com", models.RoleUser, true, true)
	access, _ := loginTokens(t, env, "a@x.com")

	register := env.Guard.RequireAuth(env.Parking.RegisterVehicle)

	rec, c := env.doBearerRequest(http.MethodPost, "/api/vehicles", access, map[string]string{
		"license_plate": "AA1234BB", "brand_model": "Toyota Corolla",
	})
	require.NoError(t, register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var vehicle models.Vehicle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vehicle))
	require.Equal(t, "AA1234BB", vehicle.LicensePlate)
	require.False(t, vehicle.IsBlacklisted)

	_, cDup := env.doBearerRequest(http.MethodPost, "/api/vehicles", access, map[string]string{
		"license_plate": "AA1234BB",
	})
	require.Equal(t, http.StatusConflict, httpErrorCode(t, register(cDup)))

	list := env.Guard.RequireAuth(env.Parking.MyVehicles)
	rec, c = env.doBearerRequest(http.MethodGet, "/api/vehicles", access, nil)
	require.NoError(t, list(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var vehicles []models.Vehicle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vehicles))
	require.Len(t, vehicles, 1)
}

func TestEntryAndExit(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env, "a@x.com", models.RoleUser, true, true)
	rate := seedRate(t, env, 5)

	vehicle := models.Vehicle{LicensePlate: "AA1234BB", UserID: user.ID}
	require.NoError(t, env.DB.Create(&vehicle).Error)

	_, c := env.doJSONRequest(http.MethodPost, "/api/parking/entry", map[string]string{"license_plate": "XX0000XX"})
	require.Equal(t, http.StatusNotFound, httpErrorCode(t, env.Parking.Entry(c)))

	rec, c := env.doJSONRequest(http.MethodPost, "/api/parking/entry", map[string]string{"license_plate": "AA1234BB"})
	require.NoError(t, env.Parking.Entry(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored models.ParkingRate
	require.NoError(t, env.DB.First(&stored, "id = ?", rate.ID).Error)
	require.Equal(t, 4, stored.AvailableSpaces)

	// double entry for the same vehicle
	_, c = env.doJSONRequest(http.MethodPost, "/api/parking/entry", map[string]string{"license_plate": "AA1234BB"})
	require.Equal(t, http.StatusConflict, httpErrorCode(t, env.Parking.Entry(c)))

	rec, c = env.doJSONRequest(http.MethodPost, "/api/parking/exit", map[string]string{"license_plate": "AA1234BB"})
	require.NoError(t, env.Parking.Exit(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var record models.ParkingRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	require.NotNil(t, record.ExitTime)
	require.Equal(t, 1, record.Duration)
	require.Equal(t, 10, record.Cost)

	require.NoError(t, env.DB.First(&stored, "id = ?", rate.ID).Error)
	require.Equal(t, 5, stored.AvailableSpaces)

	// no open record anymore
	_, c = env.doJSONRequest(http.MethodPost, "/api/parking/exit", map[string]string{"license_plate": "AA1234BB"})
	require.Equal(t, http.StatusNotFound, httpErrorCode(t, env.Parking.Exit(c)))
}

func TestEntryBlacklistedVehicle(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env, "a@x.com", models.RoleUser, true, true)
	seedRate(t, env, 5)

	vehicle := models.Vehicle{LicensePlate: "AA1234BB", UserID: user.ID, IsBlacklisted: true}
	require.NoError(t, env.DB.Create(&vehicle).Error)

	_, c := env.doJSONRequest(http.MethodPost, "/api/parking/entry", map[string]string{"license_plate": "AA1234BB"})
	require.Equal(t, http.StatusForbidden, httpErrorCode(t, env.Parking.Entry(c)))
}

func TestEntryLotFull(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env, "a@x.com", models.RoleUser, true, true)
	seedRate(t, env, 0)

	vehicle := models.Vehicle{LicensePlate: "AA1234BB", UserID: user.ID}
	require.NoError(t, env.DB.Create(&vehicle).Error)

	_, c := env.doJSONRequest(http.MethodPost, "/api/parking/entry", map[string]string{"license_plate": "AA1234BB"})
	require.Equal(t, http.StatusConflict, httpErrorCode(t, env.Parking.Entry(c)))
}

func TestCalculateCost(t *testing.T) {
	cases := []struct {
		name   string
		parked time.Duration
		rate   int
		cap    int
		want   int
	}{
		{"zero", 0, 10, 50, 0},
		{"half hour rounds up", 30 * time.Minute, 10, 50, 10},
		{"two hours", 2 * time.Hour, 10, 50, 20},
		{"daily cap applies", 6 * time.Hour, 10, 50, 50},
		{"full day plus hour", 25 * time.Hour, 10, 50, 60},
		{"no cap configured", 5 * time.Hour, 10, 0, 50},
		{"two full days", 48 * time.Hour, 10, 50, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CalculateCost(tc.parked, tc.rate, tc.cap))
		})
	}
}

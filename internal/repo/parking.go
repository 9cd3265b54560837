package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/okravchenko/parking-api/internal/models"
)

func (r *GormRepo) CreateParkingRate(ctx context.Context, rate *models.ParkingRate) error {
	return r.DB.WithContext(ctx).Create(rate).Error
}

func (r *GormRepo) GetLatestParkingRate(ctx context.Context) (*models.ParkingRate, error) {
	var rate models.ParkingRate
	if err := r.DB.WithContext(ctx).Order("created_at DESC").First(&rate).Error; err != nil {
		return nil, notFound(err)
	}
	return &rate, nil
}

// UpdateParkingInfo rewrites the latest rate row, creating one when nothing
// has been configured yet.
func (r *GormRepo) UpdateParkingInfo(ctx context.Context, info *models.ParkingRate) (*models.ParkingRate, error) {
	latest, err := r.GetLatestParkingRate(ctx)
	if err == ErrNotFound {
		if err := r.CreateParkingRate(ctx, info); err != nil {
			return nil, err
		}
		return info, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"total_spaces":     info.TotalSpaces,
		"available_spaces": info.AvailableSpaces,
		"rate_per_hour":    info.RatePerHour,
		"max_daily_rate":   info.MaxDailyRate,
		"currency":         info.Currency,
	}
	if err := r.DB.WithContext(ctx).Model(latest).Updates(updates).Error; err != nil {
		return nil, err
	}
	return latest, nil
}

// TakeSpace reserves one space on the latest rate row. Returns false when
// the lot is full; the conditional UPDATE cannot drive capacity negative
// under concurrent entries.
func (r *GormRepo) TakeSpace(ctx context.Context, rateID uint) (bool, error) {
	tx := r.DB.WithContext(ctx).Model(&models.ParkingRate{}).
		Where("id = ? AND available_spaces > 0", rateID).
		Update("available_spaces", gorm.Expr("available_spaces - 1"))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *GormRepo) ReleaseSpace(ctx context.Context, rateID uint) error {
	return r.DB.WithContext(ctx).Model(&models.ParkingRate{}).
		Where("id = ? AND available_spaces < total_spaces", rateID).
		Update("available_spaces", gorm.Expr("available_spaces + 1")).Error
}

func (r *GormRepo) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	tx := r.DB.WithContext(ctx).Where("license_plate = ?", v.LicensePlate).FirstOrCreate(v)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *GormRepo) GetVehicleByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := r.DB.WithContext(ctx).Where("license_plate = ?", plate).First(&v).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *GormRepo) VehiclesByUser(ctx context.Context, userID uuid.UUID) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("license_plate ASC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *GormRepo) SetVehicleBlacklisted(ctx context.Context, plate string, blacklisted bool) error {
	tx := r.DB.WithContext(ctx).Model(&models.Vehicle{}).
		Where("license_plate = ?", plate).
		Update("is_blacklisted", blacklisted)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) CreateParkingRecord(ctx context.Context, rec *models.ParkingRecord) error {
	return r.DB.WithContext(ctx).Create(rec).Error
}

// OpenRecordByVehicle finds the record of a vehicle currently in the lot.
func (r *GormRepo) OpenRecordByVehicle(ctx context.Context, vehicleID uuid.UUID) (*models.ParkingRecord, error) {
	var rec models.ParkingRecord
	if err := r.DB.WithContext(ctx).
		Where("vehicle_id = ? AND exit_time IS NULL", vehicleID).
		First(&rec).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (r *GormRepo) CloseParkingRecord(ctx context.Context, rec *models.ParkingRecord, exit time.Time, duration, cost int) error {
	return r.DB.WithContext(ctx).Model(rec).Updates(map[string]any{
		"exit_time": exit,
		"duration":  duration,
		"cost":      cost,
	}).Error
}

func (r *GormRepo) RecordsByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]models.ParkingRecord, error) {
	var records []models.ParkingRecord
	if err := r.DB.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("entry_time ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

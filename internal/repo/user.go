package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/okravchenko/parking-api/internal/models"
)

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	tx := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// UpdateRefreshToken overwrites the stored rotation token; empty string
// clears it, forcing a fresh login.
func (r *GormRepo) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_token", token).Error
}

// RotateRefreshToken swaps old for new only if old is still the stored
// token. A single conditional UPDATE keeps two concurrent refreshes from
// both winning; the loser sees false.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, userID uuid.UUID, old, new string) (bool, error) {
	tx := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", userID, old).
		Update("refresh_token", new)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *GormRepo) ConfirmUser(ctx context.Context, email string) error {
	tx := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Update("confirmed", true)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) SetUserActive(ctx context.Context, userID uuid.UUID, active bool) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_active", active).Error
}

func (r *GormRepo) SetUserRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", role).Error
}

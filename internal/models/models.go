package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"          json:"id"`
	FirstName    string    `gorm:"size:50"                       json:"first_name"`
	LastName     string    `gorm:"size:50"                       json:"last_name"`
	Email        string    `gorm:"size:320;unique;not null"      json:"email"`
	PasswordHash string    `gorm:"size:1024;not null"            json:"-"`
	Role         Role      `gorm:"size:20;not null;default:user" json:"role"`
	Avatar       string    `gorm:"size:100"                      json:"avatar,omitempty"`
	RefreshToken string    `gorm:"size:1024"                     json:"-"`
	Confirmed    bool      `gorm:"not null;default:false"        json:"confirmed"`
	IsActive     bool      `gorm:"default:false"                 json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type Vehicle struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"          json:"id"`
	LicensePlate  string    `gorm:"size:20;unique;index;not null" json:"license_plate"`
	BrandModel    string    `gorm:"size:50;index"                 json:"brand_model"`
	UserID        uuid.UUID `gorm:"type:uuid;index;not null"      json:"user_id"`
	IsBlacklisted bool      `gorm:"default:false"                 json:"is_blacklisted"`
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

type ParkingRecord struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"     json:"id"`
	VehicleID uuid.UUID  `gorm:"type:uuid;index;not null" json:"vehicle_id"`
	EntryTime time.Time  `gorm:"not null"                 json:"entry_time"`
	ExitTime  *time.Time `json:"exit_time,omitempty"`
	Duration  int        `json:"duration"`
	Cost      int        `json:"cost"`
}

func (p *ParkingRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type ParkingRate struct {
	ID              uint      `gorm:"primaryKey"                   json:"id"`
	TotalSpaces     int       `gorm:"not null;default:100"         json:"total_spaces"`
	AvailableSpaces int       `gorm:"not null;default:100"         json:"available_spaces"`
	RatePerHour     int       `gorm:"not null"                     json:"rate_per_hour"`
	MaxDailyRate    int       `json:"max_daily_rate"`
	Currency        string    `gorm:"size:10;not null;default:USD" json:"currency"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ParkingLot struct {
	ID              uint      `gorm:"primaryKey"           json:"id"`
	TotalSpaces     int       `gorm:"not null;default:100" json:"total_spaces"`
	AvailableSpaces int       `gorm:"not null;default:100" json:"available_spaces"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization groups the seats carved out of a team-tier license.
type Organization struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string     `gorm:"column:name;not null"`
	MainLicenseKeyID *uuid.UUID `gorm:"column:main_license_key_id;type:uuid"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/pkg/enums"
)

// SubLicense is a team-member seat carved out of a main license key.
type SubLicense struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key              string                 `gorm:"column:key;not null;unique"`
	Status           enums.SubLicenseStatus `gorm:"column:status;not null;default:'ACTIVE'"`
	AssignedEmail    *string                `gorm:"column:assigned_email"`
	AssignedUserID   *uuid.UUID             `gorm:"column:assigned_user_id;type:uuid"`
	MainLicenseKeyID uuid.UUID              `gorm:"column:main_license_key_id;type:uuid;not null;index"`
	ConvertedToTeam  bool                   `gorm:"column:converted_to_team;not null;default:false"`
	ActivationCount  int                    `gorm:"column:activation_count;not null;default:0"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

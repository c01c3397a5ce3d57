package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/pkg/enums"
)

// LicenseGoal is a per-platform engagement goal scoped to a main license or a
// sub-license seat. At most one non-achieved goal may exist per platform per
// license scope.
type LicenseGoal struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	LicenseKeyID *uuid.UUID       `gorm:"column:license_key_id;type:uuid;index"`
	SubLicenseID *uuid.UUID       `gorm:"column:sub_license_id;type:uuid;index"`
	Goal         string           `gorm:"column:goal;not null"`
	Platform     enums.Platform   `gorm:"column:platform;not null"`
	Target       int              `gorm:"column:target;not null"`
	Progress     int              `gorm:"column:progress;not null;default:0"`
	Status       enums.GoalStatus `gorm:"column:status;not null;default:'in_progress'"`
	AchievedAt   *time.Time       `gorm:"column:achieved_at"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

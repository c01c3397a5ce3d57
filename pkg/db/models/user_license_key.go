package models

import (
	"time"

	"github.com/google/uuid"
)

// UserLicenseKey joins users to the license keys they have activated.
// The (user_id, license_key_id) pair is unique so repeated activations
// of the same key by the same user stay idempotent.
type UserLicenseKey struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_license"`
	LicenseKeyID uuid.UUID `gorm:"column:license_key_id;type:uuid;not null;uniqueIndex:idx_user_license"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

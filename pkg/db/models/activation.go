package models

import (
	"time"

	"github.com/google/uuid"
)

// Activation records a license being activated on a device. Exactly one of
// LicenseKeyID or SubLicenseID is set depending on which entitlement matched.
type Activation struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LicenseKeyID *uuid.UUID `gorm:"column:license_key_id;type:uuid;index"`
	SubLicenseID *uuid.UUID `gorm:"column:sub_license_id;type:uuid;index"`
	UserID       *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	Device       string     `gorm:"column:device"`
	Browser      string     `gorm:"column:browser"`
	IPAddress    string     `gorm:"column:ip_address"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

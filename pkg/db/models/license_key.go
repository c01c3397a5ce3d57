package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/pkg/enums"
)

// LicenseKey is a purchased entitlement. Keys originate locally, from
// LemonSqueezy orders, or from AppSumo deals; remote keys are persisted here
// on first successful activation.
type LicenseKey struct {
	ID              uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key             string       `gorm:"column:key;not null;unique"`
	IsActive        bool         `gorm:"column:is_active;not null;default:true"`
	Tier            int          `gorm:"column:tier;not null;default:1"`
	Vendor          enums.Vendor `gorm:"column:vendor;not null;default:'local'"`
	LemonProductID  *string      `gorm:"column:lemon_product_id"`
	ActivationCount int          `gorm:"column:activation_count;not null;default:0"`
	ConvertedToTeam bool         `gorm:"column:converted_to_team;not null;default:false"`
	OrganizationID  *uuid.UUID   `gorm:"column:organization_id;type:uuid"`
	RedeemCode      *string      `gorm:"column:redeem_code;unique"`
	RedeemedAt      *time.Time   `gorm:"column:redeemed_at"`
	CreatedAt       time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

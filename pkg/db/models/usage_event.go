package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/pkg/enums"
)

// UsageEvent is an append-only record of a metered or tracked user action.
// Analytics aggregation and milestone detection both read from this table.
type UsageEvent struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index:idx_usage_user_action"`
	Action    string          `gorm:"column:action;not null;index:idx_usage_user_action"`
	Platform  enums.Platform  `gorm:"column:platform;not null"`
	Event     *string         `gorm:"column:event"`
	Metadata  json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime;index"`
}

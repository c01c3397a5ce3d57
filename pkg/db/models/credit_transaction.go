package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/pkg/enums"
)

// CreditTransaction is the immutable audit trail for credit balance changes.
// Every balance mutation writes exactly one row here.
type CreditTransaction struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Type        enums.CreditTransactionType `gorm:"column:type;not null"`
	Amount      int64                       `gorm:"column:amount;not null"`
	Action      string                      `gorm:"column:action;not null"`
	Description *string                     `gorm:"column:description"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

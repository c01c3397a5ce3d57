package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/pkg/enums"
)

// SherlockTask tracks one username search submitted to the OSINT worker.
// TaskID is the worker-issued identifier the result webhook keys on.
type SherlockTask struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TaskID        string                   `gorm:"column:task_id;not null;unique"`
	UserID        *uuid.UUID               `gorm:"column:user_id;type:uuid;index"`
	Username      string                   `gorm:"column:username;not null"`
	Status        enums.SherlockTaskStatus `gorm:"column:status;not null;default:'PENDING'"`
	OutputFile    *string                  `gorm:"column:output_file"`
	Error         *string                  `gorm:"column:error"`
	AccountsFound json.RawMessage          `gorm:"column:accounts_found;type:jsonb"`
	TotalFound    int                      `gorm:"column:total_found;not null;default:0"`
	ValidFound    int                      `gorm:"column:valid_found;not null;default:0"`
	NotifiedAt    *time.Time               `gorm:"column:notified_at"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

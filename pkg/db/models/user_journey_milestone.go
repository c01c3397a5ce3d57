package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/pkg/enums"
)

// UserJourneyMilestone records a one-time journey event. The (user_id,
// milestone) pair is unique; inserts race through ON CONFLICT DO NOTHING so a
// milestone fires at most once per user.
type UserJourneyMilestone struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_milestone"`
	Milestone enums.Milestone `gorm:"column:milestone;not null;uniqueIndex:idx_user_milestone"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

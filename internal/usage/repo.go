package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
)

// Repository manages persistence for usage events and journey milestones.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEvent(ctx context.Context, event *models.UsageEvent) error
	CountByAction(ctx context.Context, userID uuid.UUID, action string) (int64, error)
	ListEventsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.UsageEvent, error)
	CountByActionBetween(ctx context.Context, userID uuid.UUID, action string, from, to time.Time) ([]DailyCount, error)
	InsertMilestone(ctx context.Context, userID uuid.UUID, milestone enums.Milestone) (bool, error)
	ListMilestones(ctx context.Context, userID uuid.UUID) ([]models.UserJourneyMilestone, error)
}

// DailyCount is one day's action count inside an aggregation window.
type DailyCount struct {
	Day   time.Time
	Count int64
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a usage repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEvent(ctx context.Context, event *models.UsageEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) CountByAction(ctx context.Context, userID uuid.UUID, action string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UsageEvent{}).
		Where("user_id = ? AND action = ?", userID, action).
		Count(&count).Error
	return count, err
}

func (r *repository) ListEventsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.UsageEvent, error) {
	var rows []models.UsageEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByActionBetween buckets matching events per calendar day. Bucketing is
// done in Go rather than SQL so the sqlite test driver behaves identically to
// postgres.
func (r *repository) CountByActionBetween(ctx context.Context, userID uuid.UUID, action string, from, to time.Time) ([]DailyCount, error) {
	var rows []models.UsageEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND action = ? AND created_at >= ? AND created_at < ?", userID, action, from, to).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byDay := map[time.Time]int64{}
	for _, row := range rows {
		day := row.CreatedAt.UTC().Truncate(24 * time.Hour)
		byDay[day]++
	}

	counts := make([]DailyCount, 0, len(byDay))
	for day := from.UTC().Truncate(24 * time.Hour); day.Before(to); day = day.Add(24 * time.Hour) {
		counts = append(counts, DailyCount{Day: day, Count: byDay[day]})
	}
	return counts, nil
}

// InsertMilestone records the milestone once; replays return false.
func (r *repository) InsertMilestone(ctx context.Context, userID uuid.UUID, milestone enums.Milestone) (bool, error) {
	row := models.UserJourneyMilestone{UserID: userID, Milestone: milestone}
	row.ID = uuid.New()
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "milestone"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListMilestones(ctx context.Context, userID uuid.UUID) ([]models.UserJourneyMilestone, error) {
	var rows []models.UserJourneyMilestone
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

package usage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
)

func setupUsageTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	usageEvents := `
CREATE TABLE IF NOT EXISTS usage_events (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  action TEXT NOT NULL,
  platform TEXT NOT NULL,
  event TEXT,
  metadata TEXT,
  created_at DATETIME
);`
	milestones := `
CREATE TABLE IF NOT EXISTS user_journey_milestones (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  milestone TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (user_id, milestone)
);`
	require.NoError(t, db.Exec(usageEvents).Error)
	require.NoError(t, db.Exec(milestones).Error)
	return db
}

func seedEvent(t *testing.T, db *gorm.DB, userID uuid.UUID, action string, created time.Time) {
	t.Helper()

	event := &models.UsageEvent{
		UserID:    userID,
		Action:    action,
		Platform:  enums.PlatformLinkedIn,
		CreatedAt: created,
	}
	event.ID = uuid.New()
	require.NoError(t, db.Create(event).Error)
}

func TestInsertMilestoneFiresOnce(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	inserted, err := repo.InsertMilestone(ctx, userID, enums.MilestoneFirstComment)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = repo.InsertMilestone(ctx, userID, enums.MilestoneFirstComment)
	require.NoError(t, err)
	require.False(t, inserted, "replayed milestone insert must be a no-op")

	rows, err := repo.ListMilestones(ctx, userID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestCountByActionScopesUserAndAction(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()
	now := time.Now().UTC()

	seedEvent(t, db, userID, "comment", now)
	seedEvent(t, db, userID, "comment", now)
	seedEvent(t, db, userID, "post", now)
	seedEvent(t, db, other, "comment", now)

	count, err := repo.CountByAction(ctx, userID, "comment")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestCountByActionBetweenFillsEmptyDays(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	seedEvent(t, db, userID, "comment", start.Add(2*time.Hour))
	seedEvent(t, db, userID, "comment", start.Add(3*time.Hour))
	seedEvent(t, db, userID, "comment", start.AddDate(0, 0, 2).Add(time.Hour))
	seedEvent(t, db, userID, "comment", end.Add(time.Hour)) // outside range

	counts, err := repo.CountByActionBetween(ctx, userID, "comment", start, end)
	require.NoError(t, err)
	require.Len(t, counts, 3)
	require.Equal(t, int64(2), counts[0].Count)
	require.Equal(t, int64(0), counts[1].Count, "days without comments appear with zero")
	require.Equal(t, int64(1), counts[2].Count)
}

func TestListEventsSince(t *testing.T) {
	db := setupUsageTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC()

	seedEvent(t, db, userID, "comment", now.Add(-48*time.Hour))
	seedEvent(t, db, userID, "post", now.Add(-time.Hour))

	rows, err := repo.ListEventsSince(ctx, userID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "post", rows[0].Action)
}

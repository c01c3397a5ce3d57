package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/pkg/enums"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

// MilestoneRecorder lets other domains record one-time journey milestones
// without reaching into the usage repository directly.
type MilestoneRecorder struct {
	repo   Repository
	notify notifier
	logg   *logger.Logger
}

// NewMilestoneRecorder wires the cross-domain milestone writer.
func NewMilestoneRecorder(repo Repository, notify notifier, logg *logger.Logger) (*MilestoneRecorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("usage repository required")
	}
	return &MilestoneRecorder{repo: repo, notify: notify, logg: logg}, nil
}

// RecordFirstGoal marks the first license goal a user ever created.
func (m *MilestoneRecorder) RecordFirstGoal(ctx context.Context, userID uuid.UUID) error {
	return m.record(ctx, userID, enums.MilestoneFirstGoal)
}

// RecordFirstActivation marks the first license activation for a user.
func (m *MilestoneRecorder) RecordFirstActivation(ctx context.Context, userID uuid.UUID) error {
	return m.record(ctx, userID, enums.MilestoneFirstActivate)
}

func (m *MilestoneRecorder) record(ctx context.Context, userID uuid.UUID, milestone enums.Milestone) error {
	if userID == uuid.Nil {
		return nil
	}
	inserted, err := m.repo.InsertMilestone(ctx, userID, milestone)
	if err != nil {
		return fmt.Errorf("insert milestone: %w", err)
	}
	if !inserted {
		return nil
	}
	if m.notify != nil && m.notify.Enabled() {
		content := fmt.Sprintf("user %s reached milestone %s", userID, milestone)
		if sendErr := m.notify.Send(ctx, content); sendErr != nil && m.logg != nil {
			m.logg.Error(ctx, "milestone.notify_failed", sendErr)
		}
	}
	return nil
}

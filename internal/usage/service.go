package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/pkg/db/models"
	"github.com/ollyhq/olly-backend/pkg/enums"
	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
	"github.com/ollyhq/olly-backend/pkg/logger"
)

const actionComment = "comment"

type actorResolver interface {
	ResolveUserByKey(ctx context.Context, key string) (uuid.UUID, error)
}

type balanceReader interface {
	CurrentBalance(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notifier interface {
	Enabled() bool
	Send(ctx context.Context, content string) error
}

// Service records usage events, detects journey milestones, and aggregates
// activity for the dashboard.
type Service interface {
	RecordUsage(ctx context.Context, input RecordUsageInput) (*RecordUsageResult, error)
	Aggregate(ctx context.Context, userID uuid.UUID, period string) (*AggregateResult, error)
	WeeklyComments(ctx context.Context, input WeeklyCommentsInput) (*WeeklyCommentsResult, error)
}

type service struct {
	repo          Repository
	actors        actorResolver
	balances      balanceReader
	notify        notifier
	logg          *logger.Logger
	testingUserID uuid.UUID
}

// RecordUsageInput carries one tracked action from the extension.
type RecordUsageInput struct {
	LicenseKey string
	UserID     uuid.UUID
	Action     string
	Platform   string
	Event      string
	Metadata   json.RawMessage
}

// RecordUsageResult is the extension-facing acknowledgment.
type RecordUsageResult struct {
	Message       string          `json:"message"`
	CreditBalance int64           `json:"creditBalance"`
	Milestone     enums.Milestone `json:"milestone,omitempty"`
}

// AggregateResult buckets event counts for a dashboard period.
type AggregateResult struct {
	Period  string           `json:"period"`
	Total   int64            `json:"total"`
	Buckets []AggregateEntry `json:"buckets"`
}

// AggregateEntry is one action's count within the period.
type AggregateEntry struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// WeeklyCommentsInput selects an explicit date range for per-day counts.
type WeeklyCommentsInput struct {
	UserID    uuid.UUID
	StartDate time.Time
	EndDate   time.Time
}

// WeeklyCommentsResult lists comment counts per day in the range.
type WeeklyCommentsResult struct {
	Days []DayCount `json:"days"`
}

// DayCount is one day's comment count.
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// NewService wires the usage service.
func NewService(repo Repository, actors actorResolver, balances balanceReader, notify notifier, logg *logger.Logger, testingUserID uuid.UUID) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("usage repository required")
	}
	if actors == nil {
		return nil, fmt.Errorf("actor resolver required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance reader required")
	}
	return &service{
		repo:          repo,
		actors:        actors,
		balances:      balances,
		notify:        notify,
		logg:          logg,
		testingUserID: testingUserID,
	}, nil
}

func (s *service) RecordUsage(ctx context.Context, input RecordUsageInput) (*RecordUsageResult, error) {
	action := strings.TrimSpace(input.Action)
	if action == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action is required")
	}
	platform, err := enums.ParsePlatform(input.Platform)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform is required")
	}

	userID := s.resolveActor(ctx, input)

	event := &models.UsageEvent{
		UserID:   userID,
		Action:   action,
		Platform: platform,
		Metadata: input.Metadata,
	}
	event.ID = uuid.New()
	if trimmed := strings.TrimSpace(input.Event); trimmed != "" {
		event.Event = &trimmed
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record usage event")
	}

	result := &RecordUsageResult{Message: "usage recorded"}

	if action == actionComment {
		milestone, err := s.detectCommentMilestone(ctx, userID)
		if err != nil {
			// Milestone detection is best-effort; the event is already stored.
			if s.logg != nil {
				s.logg.Error(ctx, "milestone.detect_failed", err)
			}
		} else if milestone != "" {
			result.Milestone = milestone
		}
	}

	balance, err := s.balances.CurrentBalance(ctx, userID)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "usage.balance_lookup_failed", err)
		}
	} else {
		result.CreditBalance = balance
	}

	return result, nil
}

// resolveActor maps the request to a user id: license key first, then an
// explicit user id, then the configured testing user.
func (s *service) resolveActor(ctx context.Context, input RecordUsageInput) uuid.UUID {
	if key := strings.TrimSpace(input.LicenseKey); key != "" {
		userID, err := s.actors.ResolveUserByKey(ctx, key)
		if err == nil && userID != uuid.Nil {
			return userID
		}
		if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithLicenseKey(ctx, key), "usage.actor_resolution_failed")
		}
	}
	if input.UserID != uuid.Nil {
		return input.UserID
	}
	return s.testingUserID
}

// detectCommentMilestone counts every prior comment row for the user and
// fires the matching milestone when the total lands exactly on a threshold.
// The count is linear in the user's comment history.
func (s *service) detectCommentMilestone(ctx context.Context, userID uuid.UUID) (enums.Milestone, error) {
	count, err := s.repo.CountByAction(ctx, userID, actionComment)
	if err != nil {
		return "", fmt.Errorf("count comments: %w", err)
	}

	milestone, ok := enums.CommentMilestoneForCount(count)
	if !ok {
		return "", nil
	}

	inserted, err := s.repo.InsertMilestone(ctx, userID, milestone)
	if err != nil {
		return "", fmt.Errorf("insert milestone: %w", err)
	}
	if !inserted {
		return "", nil
	}

	s.announceMilestone(ctx, userID, milestone)
	return milestone, nil
}

func (s *service) announceMilestone(ctx context.Context, userID uuid.UUID, milestone enums.Milestone) {
	if s.notify == nil || !s.notify.Enabled() {
		return
	}
	content := fmt.Sprintf("user %s reached milestone %s", userID, milestone)
	if err := s.notify.Send(ctx, content); err != nil && s.logg != nil {
		s.logg.Error(ctx, "milestone.notify_failed", err)
	}
}

func (s *service) Aggregate(ctx context.Context, userID uuid.UUID, period string) (*AggregateResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var since time.Time
	now := time.Now().UTC()
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", "week":
		period = "week"
		since = now.AddDate(0, 0, -7)
	case "day":
		since = now.AddDate(0, 0, -1)
	case "month":
		since = now.AddDate(0, -1, 0)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period must be day, week, or month")
	}

	rows, err := s.repo.ListEventsSince(ctx, userID, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate usage")
	}

	byAction := map[string]int64{}
	order := []string{}
	for _, row := range rows {
		if _, seen := byAction[row.Action]; !seen {
			order = append(order, row.Action)
		}
		byAction[row.Action]++
	}

	result := &AggregateResult{Period: period, Total: int64(len(rows))}
	for _, action := range order {
		result.Buckets = append(result.Buckets, AggregateEntry{Action: action, Count: byAction[action]})
	}
	return result, nil
}

func (s *service) WeeklyComments(ctx context.Context, input WeeklyCommentsInput) (*WeeklyCommentsResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "startDate and endDate are required")
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endDate must be after startDate")
	}

	counts, err := s.repo.CountByActionBetween(ctx, input.UserID, actionComment, input.StartDate, input.EndDate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count weekly comments")
	}

	result := &WeeklyCommentsResult{Days: make([]DayCount, 0, len(counts))}
	for _, entry := range counts {
		result.Days = append(result.Days, DayCount{
			Date:  entry.Day.Format("2006-01-02"),
			Count: entry.Count,
		})
	}
	return result, nil
}

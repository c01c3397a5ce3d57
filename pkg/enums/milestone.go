package enums

import "fmt"

// Milestone is a one-time user-journey event recorded for engagement triggers.
type Milestone string

const (
	MilestoneFirstComment  Milestone = "first_comment"
	MilestoneFifthComment  Milestone = "fifth_comment"
	MilestoneTenthComment  Milestone = "tenth_comment"
	MilestoneFirstGoal     Milestone = "first_goal"
	MilestoneFirstActivate Milestone = "first_activation"
)

var validMilestones = []Milestone{
	MilestoneFirstComment,
	MilestoneFifthComment,
	MilestoneTenthComment,
	MilestoneFirstGoal,
	MilestoneFirstActivate,
}

// String implements fmt.Stringer.
func (m Milestone) String() string {
	return string(m)
}

// IsValid reports whether the value matches a known milestone.
func (m Milestone) IsValid() bool {
	for _, candidate := range validMilestones {
		if candidate == m {
			return true
		}
	}
	return false
}

// CommentMilestoneForCount maps a lifetime comment count to the milestone it
// completes, if any. Counts between thresholds yield no milestone.
func CommentMilestoneForCount(count int64) (Milestone, bool) {
	switch count {
	case 1:
		return MilestoneFirstComment, true
	case 5:
		return MilestoneFifthComment, true
	case 10:
		return MilestoneTenthComment, true
	default:
		return "", false
	}
}

// ParseMilestone converts raw input into Milestone.
func ParseMilestone(value string) (Milestone, error) {
	for _, candidate := range validMilestones {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid milestone %q", value)
}

package enums

import "fmt"

// GoalStatus tracks progress of an engagement goal.
type GoalStatus string

const (
	GoalStatusInProgress GoalStatus = "in_progress"
	GoalStatusAchieved   GoalStatus = "achieved"
)

var validGoalStatuses = []GoalStatus{
	GoalStatusInProgress,
	GoalStatusAchieved,
}

// String implements fmt.Stringer.
func (g GoalStatus) String() string {
	return string(g)
}

// IsValid reports whether the value matches the canonical goal status set.
func (g GoalStatus) IsValid() bool {
	for _, candidate := range validGoalStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGoalStatus converts raw input into GoalStatus.
func ParseGoalStatus(value string) (GoalStatus, error) {
	for _, candidate := range validGoalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid goal status %q", value)
}

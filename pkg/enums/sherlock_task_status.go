package enums

import "fmt"

// SherlockTaskStatus tracks the lifecycle of a username search task.
type SherlockTaskStatus string

const (
	SherlockTaskPending   SherlockTaskStatus = "PENDING"
	SherlockTaskCompleted SherlockTaskStatus = "COMPLETED"
	SherlockTaskFailed    SherlockTaskStatus = "FAILED"
)

var validSherlockTaskStatuses = []SherlockTaskStatus{
	SherlockTaskPending,
	SherlockTaskCompleted,
	SherlockTaskFailed,
}

// String implements fmt.Stringer.
func (s SherlockTaskStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical task status set.
func (s SherlockTaskStatus) IsValid() bool {
	for _, candidate := range validSherlockTaskStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a task in this status can never transition again.
func (s SherlockTaskStatus) IsTerminal() bool {
	return s == SherlockTaskCompleted || s == SherlockTaskFailed
}

// ParseSherlockTaskStatus converts raw input into SherlockTaskStatus.
func ParseSherlockTaskStatus(value string) (SherlockTaskStatus, error) {
	for _, candidate := range validSherlockTaskStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sherlock task status %q", value)
}

package enums

import "fmt"

// SubLicenseStatus tracks whether a team member seat is usable.
type SubLicenseStatus string

const (
	SubLicenseStatusActive   SubLicenseStatus = "ACTIVE"
	SubLicenseStatusInactive SubLicenseStatus = "INACTIVE"
)

var validSubLicenseStatuses = []SubLicenseStatus{
	SubLicenseStatusActive,
	SubLicenseStatusInactive,
}

// String implements fmt.Stringer.
func (s SubLicenseStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical sub-license status set.
func (s SubLicenseStatus) IsValid() bool {
	for _, candidate := range validSubLicenseStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubLicenseStatus converts raw input into SubLicenseStatus.
func ParseSubLicenseStatus(value string) (SubLicenseStatus, error) {
	for _, candidate := range validSubLicenseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sub-license status %q", value)
}

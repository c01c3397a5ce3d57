package enums

import (
	"fmt"
	"strings"
)

// Platform names the social network an action or goal is scoped to.
type Platform string

const (
	PlatformLinkedIn  Platform = "LINKEDIN"
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformTwitter   Platform = "TWITTER"
	PlatformFacebook  Platform = "FACEBOOK"
	PlatformYouTube   Platform = "YOUTUBE"
)

var validPlatforms = []Platform{
	PlatformLinkedIn,
	PlatformInstagram,
	PlatformTwitter,
	PlatformFacebook,
	PlatformYouTube,
}

// String implements fmt.Stringer.
func (p Platform) String() string {
	return string(p)
}

// IsValid reports whether the value matches a supported platform.
func (p Platform) IsValid() bool {
	for _, candidate := range validPlatforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlatform converts raw input into Platform. Input is case-insensitive
// because browser extensions report lowercase platform names.
func ParsePlatform(value string) (Platform, error) {
	upper := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPlatforms {
		if string(candidate) == upper {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid platform %q", value)
}

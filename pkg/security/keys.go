package security

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var redeemCodeCharset = []rune("ABCDEFGHJKMNPQRSTUVWXYZ23456789")

// GenerateLicenseKey returns a random key in the OLLY-XXXX-XXXX-XXXX-XXXX
// format used for sub-licenses minted during team conversion reversal.
func GenerateLicenseKey() (string, error) {
	groups := make([]string, 4)
	for i := range groups {
		group, err := randomCode(4)
		if err != nil {
			return "", err
		}
		groups[i] = group
	}
	return "OLLY-" + strings.Join(groups, "-"), nil
}

// GenerateRedeemCode returns a short human-typable code for AppSumo style
// redemption flows.
func GenerateRedeemCode() (string, error) {
	return randomCode(10)
}

// GenerateTempPassword produces a random credential for users created
// implicitly during redemption.
func GenerateTempPassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	return randomCode(length)
}

// NewActivationToken returns an opaque identifier for device activations.
func NewActivationToken() string {
	return uuid.NewString()
}

func randomCode(length int) (string, error) {
	result := make([]rune, length)
	buff := make([]byte, length)
	if _, err := rand.Read(buff); err != nil {
		return "", err
	}
	for i := 0; i < length; i++ {
		result[i] = redeemCodeCharset[int(buff[i])%len(redeemCodeCharset)]
	}
	return string(result), nil
}

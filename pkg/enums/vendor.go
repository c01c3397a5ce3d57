package enums

import "fmt"

// Vendor identifies the licensing platform of record for a key.
type Vendor string

const (
	VendorAppSumo      Vendor = "appsumo"
	VendorLemonSqueezy Vendor = "lemonsqueezy"
	VendorLocal        Vendor = "local"
)

var validVendors = []Vendor{
	VendorAppSumo,
	VendorLemonSqueezy,
	VendorLocal,
}

// String implements fmt.Stringer.
func (v Vendor) String() string {
	return string(v)
}

// IsValid reports whether the value matches a known vendor.
func (v Vendor) IsValid() bool {
	for _, candidate := range validVendors {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVendor converts raw input into Vendor.
func ParseVendor(value string) (Vendor, error) {
	for _, candidate := range validVendors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor %q", value)
}

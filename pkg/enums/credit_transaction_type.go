package enums

import "fmt"

// CreditTransactionType distinguishes ledger entries on a user's credit balance.
type CreditTransactionType string

const (
	CreditTransactionEarned CreditTransactionType = "EARNED"
	CreditTransactionSpent  CreditTransactionType = "SPENT"
)

var validCreditTransactionTypes = []CreditTransactionType{
	CreditTransactionEarned,
	CreditTransactionSpent,
}

// String implements fmt.Stringer.
func (c CreditTransactionType) String() string {
	return string(c)
}

// IsValid reports whether the value matches the canonical transaction type set.
func (c CreditTransactionType) IsValid() bool {
	for _, candidate := range validCreditTransactionTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCreditTransactionType converts raw input into CreditTransactionType.
func ParseCreditTransactionType(value string) (CreditTransactionType, error) {
	for _, candidate := range validCreditTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit transaction type %q", value)
}

package enums

import "fmt"

// TransactionType maps to the credit_transaction_type enum in Postgres.
type TransactionType string

const (
	TransactionCreditPurchase TransactionType = "credit_purchase"
	TransactionLeadPurchase   TransactionType = "lead_purchase"
	TransactionRefund         TransactionType = "refund"
	TransactionAdjustment     TransactionType = "adjustment"
	TransactionBonus          TransactionType = "bonus"
)

var validTransactionTypes = []TransactionType{
	TransactionCreditPurchase,
	TransactionLeadPurchase,
	TransactionRefund,
	TransactionAdjustment,
	TransactionBonus,
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var paisePerRupee = decimal.NewFromInt(100)

// RupeesFromPaise converts an integer paise amount into a decimal rupee value.
func RupeesFromPaise(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(paisePerRupee)
}

// PaiseFromRupees converts a rupee amount to whole paise, rounding half up at
// the second decimal place.
func PaiseFromRupees(rupees decimal.Decimal) int64 {
	return rupees.Mul(paisePerRupee).Round(0).IntPart()
}

// FormatPaise renders paise as a rupee string like "₹6,000.00" for API payloads
// and audit notes.
func FormatPaise(paise int64) string {
	amount := RupeesFromPaise(paise).StringFixed(2)
	return "₹" + groupIndian(amount)
}

// groupIndian inserts Indian-style digit grouping (1,23,45,678) into the
// integer part of a fixed-point amount.
func groupIndian(amount string) string {
	sign := ""
	if len(amount) > 0 && amount[0] == '-' {
		sign = "-"
		amount = amount[1:]
	}

	intPart := amount
	fracPart := ""
	for i := 0; i < len(amount); i++ {
		if amount[i] == '.' {
			intPart = amount[:i]
			fracPart = amount[i:]
			break
		}
	}

	if len(intPart) <= 3 {
		return sign + intPart + fracPart
	}

	head := intPart[:len(intPart)-3]
	tail := intPart[len(intPart)-3:]
	grouped := ""
	for len(head) > 2 {
		grouped = "," + head[len(head)-2:] + grouped
		head = head[:len(head)-2]
	}
	return fmt.Sprintf("%s%s%s,%s%s", sign, head, grouped, tail, fracPart)
}

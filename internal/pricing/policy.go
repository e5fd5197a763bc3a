package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Policy computes the credit cost of a lead as a percentage of the quoted
// price. The percentage may be fractional, so the arithmetic stays decimal
// until the final rounding to whole paise.
type Policy struct {
	percent decimal.Decimal
}

// NewPolicy parses and validates the configured lead cost percentage.
func NewPolicy(percent string) (*Policy, error) {
	value, err := decimal.NewFromString(percent)
	if err != nil {
		return nil, fmt.Errorf("parsing lead cost percent %q: %w", percent, err)
	}
	if value.IsNegative() || value.GreaterThan(hundred) {
		return nil, fmt.Errorf("lead cost percent %s out of range [0, 100]", value)
	}
	return &Policy{percent: value}, nil
}

// Percent returns the configured percentage.
func (p *Policy) Percent() decimal.Decimal {
	return p.percent
}

// LeadCost returns the cost in paise of purchasing a lead quoted at
// quotedPaise.
func (p *Policy) LeadCost(quotedPaise int64) (int64, error) {
	return LeadCost(quotedPaise, p.percent)
}

// LeadCost computes round(quoted * percent / 100) in whole paise.
func LeadCost(quotedPaise int64, percent decimal.Decimal) (int64, error) {
	if quotedPaise < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quoted price must not be negative")
	}
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "lead cost percent out of range")
	}
	cost := decimal.NewFromInt(quotedPaise).Mul(percent).Div(hundred).Round(0)
	return cost.IntPart(), nil
}

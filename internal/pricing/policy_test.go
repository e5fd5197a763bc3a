package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLeadCostDefaultPercent(t *testing.T) {
	t.Parallel()

	policy, err := NewPolicy("15")
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}

	// 15% of a ₹40,000 quote is ₹6,000.
	cost, err := policy.LeadCost(4000000)
	if err != nil {
		t.Fatalf("lead cost: %v", err)
	}
	if cost != 600000 {
		t.Fatalf("expected 600000 paise, got %d", cost)
	}
}

func TestLeadCostFractionalPercent(t *testing.T) {
	t.Parallel()

	cost, err := LeadCost(999900, decimal.RequireFromString("12.5"))
	if err != nil {
		t.Fatalf("lead cost: %v", err)
	}
	// 12.5% of 999900 = 124987.5, rounds to 124988.
	if cost != 124988 {
		t.Fatalf("expected 124988 paise, got %d", cost)
	}
}

func TestLeadCostRejectsNegativeQuote(t *testing.T) {
	t.Parallel()

	if _, err := LeadCost(-1, decimal.NewFromInt(15)); err == nil {
		t.Fatalf("expected error for negative quote")
	}
}

func TestNewPolicyValidatesRange(t *testing.T) {
	t.Parallel()

	if _, err := NewPolicy("-1"); err == nil {
		t.Fatalf("expected error for negative percent")
	}
	if _, err := NewPolicy("101"); err == nil {
		t.Fatalf("expected error for percent over 100")
	}
	if _, err := NewPolicy("abc"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := NewPolicy("0"); err != nil {
		t.Fatalf("zero percent should be allowed: %v", err)
	}
}

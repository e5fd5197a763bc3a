package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	t.Parallel()

	status, err := ParseOrderStatus("lead_locked")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if status != OrderStatusLeadLocked {
		t.Fatalf("expected lead_locked, got %s", status)
	}

	if _, err := ParseOrderStatus("locked"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	t.Parallel()

	terminal := []OrderStatus{
		OrderStatusPaymentProcessed,
		OrderStatusPickupCompletedDeclined,
		OrderStatusCancelled,
	}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}

	for _, s := range []OrderStatus{
		OrderStatusLeadCreated,
		OrderStatusAvailableForPartners,
		OrderStatusLeadLocked,
		OrderStatusLeadPurchased,
		OrderStatusPickupCompleted,
	} {
		if s.IsTerminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}

func TestActorTypeIsValid(t *testing.T) {
	t.Parallel()

	if !ActorSystem.IsValid() {
		t.Fatalf("system actor must be valid")
	}
	if ActorType("robot").IsValid() {
		t.Fatalf("unknown actor must be invalid")
	}
}

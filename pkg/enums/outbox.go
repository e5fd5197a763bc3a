package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder             OutboxAggregateType = "order"
	AggregatePartner           OutboxAggregateType = "partner"
	AggregateCreditTransaction OutboxAggregateType = "credit_transaction"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePartner,
	AggregateCreditTransaction,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventLeadCreated      OutboxEventType = "lead_created"
	EventLeadAvailable    OutboxEventType = "lead_available"
	EventLeadLockExpired  OutboxEventType = "lead_lock_expired"
	EventLeadPurchased    OutboxEventType = "lead_purchased"
	EventOrderAssigned    OutboxEventType = "order_assigned"
	EventPickupCompleted  OutboxEventType = "pickup_completed"
	EventPaymentProcessed OutboxEventType = "payment_processed"
	EventOrderCancelled   OutboxEventType = "order_cancelled"
	EventCreditsPurchased OutboxEventType = "credits_purchased"
)

var validOutboxEventTypes = []OutboxEventType{
	EventLeadCreated,
	EventLeadAvailable,
	EventLeadLockExpired,
	EventLeadPurchased,
	EventOrderAssigned,
	EventPickupCompleted,
	EventPaymentProcessed,
	EventOrderCancelled,
	EventCreditsPurchased,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

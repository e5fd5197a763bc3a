package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusLeadCreated             OrderStatus = "lead_created"
	OrderStatusAvailableForPartners    OrderStatus = "available_for_partners"
	OrderStatusLeadLocked              OrderStatus = "lead_locked"
	OrderStatusLeadPurchased           OrderStatus = "lead_purchased"
	OrderStatusAssignedToAgent         OrderStatus = "assigned_to_agent"
	OrderStatusAcceptedByAgent         OrderStatus = "accepted_by_agent"
	OrderStatusPickupScheduled         OrderStatus = "pickup_scheduled"
	OrderStatusPickupCompleted         OrderStatus = "pickup_completed"
	OrderStatusPickupCompletedDeclined OrderStatus = "pickup_completed_declined"
	OrderStatusPaymentProcessed        OrderStatus = "payment_processed"
	OrderStatusCancelled               OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusLeadCreated,
	OrderStatusAvailableForPartners,
	OrderStatusLeadLocked,
	OrderStatusLeadPurchased,
	OrderStatusAssignedToAgent,
	OrderStatusAcceptedByAgent,
	OrderStatusPickupScheduled,
	OrderStatusPickupCompleted,
	OrderStatusPickupCompletedDeclined,
	OrderStatusPaymentProcessed,
	OrderStatusCancelled,
}

// IsValid reports whether the value matches the canonical order_status enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusPaymentProcessed, OrderStatusPickupCompletedDeclined, OrderStatusCancelled:
		return true
	}
	return false
}

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

package lifecycle

import "github.com/rahulbagri/phonelot-backend/pkg/enums"

type edge struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

// transitionActors enumerates every legal status edge and the actor types
// allowed to drive it. Reassignment is the one self edge: a partner may move
// an assigned or accepted order back to assigned_to_agent with a new agent.
var transitionActors = map[edge][]enums.ActorType{
	{enums.OrderStatusLeadCreated, enums.OrderStatusAvailableForPartners}: {enums.ActorSystem, enums.ActorAdmin},
	{enums.OrderStatusAvailableForPartners, enums.OrderStatusLeadLocked}:  {enums.ActorPartner},
	{enums.OrderStatusLeadLocked, enums.OrderStatusAvailableForPartners}:  {enums.ActorPartner, enums.ActorSystem, enums.ActorAdmin},
	{enums.OrderStatusLeadLocked, enums.OrderStatusLeadPurchased}:         {enums.ActorPartner},
	{enums.OrderStatusLeadPurchased, enums.OrderStatusAssignedToAgent}:    {enums.ActorPartner, enums.ActorAdmin},
	{enums.OrderStatusAssignedToAgent, enums.OrderStatusAssignedToAgent}:  {enums.ActorPartner, enums.ActorAdmin},
	{enums.OrderStatusAcceptedByAgent, enums.OrderStatusAssignedToAgent}:  {enums.ActorPartner, enums.ActorAdmin},
	{enums.OrderStatusAssignedToAgent, enums.OrderStatusAcceptedByAgent}:  {enums.ActorAgent},
	{enums.OrderStatusAcceptedByAgent, enums.OrderStatusPickupScheduled}:  {enums.ActorAgent},

	{enums.OrderStatusAcceptedByAgent, enums.OrderStatusPickupCompleted}:         {enums.ActorAgent},
	{enums.OrderStatusAcceptedByAgent, enums.OrderStatusPickupCompletedDeclined}: {enums.ActorAgent},
	{enums.OrderStatusPickupScheduled, enums.OrderStatusPickupCompleted}:         {enums.ActorAgent},
	{enums.OrderStatusPickupScheduled, enums.OrderStatusPickupCompletedDeclined}: {enums.ActorAgent},
	{enums.OrderStatusPickupCompleted, enums.OrderStatusPaymentProcessed}:        {enums.ActorAgent, enums.ActorAdmin},

	{enums.OrderStatusLeadCreated, enums.OrderStatusCancelled}:          {enums.ActorCustomer, enums.ActorAdmin},
	{enums.OrderStatusAvailableForPartners, enums.OrderStatusCancelled}: {enums.ActorCustomer, enums.ActorAdmin},
	{enums.OrderStatusLeadLocked, enums.OrderStatusCancelled}:           {enums.ActorCustomer, enums.ActorAdmin},
	{enums.OrderStatusAssignedToAgent, enums.OrderStatusCancelled}:      {enums.ActorAgent, enums.ActorPartner, enums.ActorAdmin},
	{enums.OrderStatusAcceptedByAgent, enums.OrderStatusCancelled}:      {enums.ActorAgent, enums.ActorPartner, enums.ActorAdmin},
}

// EdgeAllowed reports whether the status graph permits the transition at all.
func EdgeAllowed(from, to enums.OrderStatus) bool {
	_, ok := transitionActors[edge{from, to}]
	return ok
}

// ActorAllowed reports whether the actor type may drive the transition.
func ActorAllowed(from, to enums.OrderStatus, actor enums.ActorType) bool {
	actors, ok := transitionActors[edge{from, to}]
	if !ok {
		return false
	}
	for _, candidate := range actors {
		if candidate == actor {
			return true
		}
	}
	return false
}

func defaultNote(from, to enums.OrderStatus) string {
	switch to {
	case enums.OrderStatusAvailableForPartners:
		if from == enums.OrderStatusLeadLocked {
			return "Lock released, lead returned to marketplace"
		}
		return "Lead published to marketplace"
	case enums.OrderStatusLeadLocked:
		return "Lead locked for review"
	case enums.OrderStatusLeadPurchased:
		return "Lead purchased"
	case enums.OrderStatusAssignedToAgent:
		if from == enums.OrderStatusAssignedToAgent || from == enums.OrderStatusAcceptedByAgent {
			return "Order reassigned to agent"
		}
		return "Order assigned to agent"
	case enums.OrderStatusAcceptedByAgent:
		return "Agent accepted the assignment"
	case enums.OrderStatusPickupScheduled:
		return "Pickup scheduled"
	case enums.OrderStatusPickupCompleted:
		return "Pickup completed, customer accepted the offer"
	case enums.OrderStatusPickupCompletedDeclined:
		return "Pickup completed, customer declined the offer"
	case enums.OrderStatusPaymentProcessed:
		return "Payment processed"
	case enums.OrderStatusCancelled:
		return "Order cancelled"
	}
	return ""
}

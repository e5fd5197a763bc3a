package marketplace

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	"github.com/rahulbagri/phonelot-backend/pkg/money"
)

// CreateOrderInput captures a customer's phone submission.
type CreateOrderInput struct {
	CustomerID        uuid.UUID
	PhoneName         string
	Brand             *string
	Model             *string
	RAMGB             *int
	StorageGB         *int
	Variant           *string
	ConditionAnswers  json.RawMessage
	QuotedPricePaise  int64
	CustomerName      string
	CustomerPhone     string
	CustomerEmail     *string
	PickupAddressLine string
	PickupCity        string
	PickupState       string
	PickupPincode     string
}

// CreateOrderResult reports the created order and whether any partner
// services its pincode.
type CreateOrderResult struct {
	Order             *models.Order `json:"order"`
	Serviceable       bool          `json:"serviceable"`
	ServicingPartners int64         `json:"servicing_partners"`
}

// LeadSummary is the masked lead view shown in the marketplace list. Contact
// and address details stay hidden until the lead is locked or purchased.
type LeadSummary struct {
	ID                 uuid.UUID         `json:"id"`
	PhoneName          string            `json:"phone_name"`
	Brand              *string           `json:"brand,omitempty"`
	Model              *string           `json:"model,omitempty"`
	RAMGB              *int              `json:"ram_gb,omitempty"`
	StorageGB          *int              `json:"storage_gb,omitempty"`
	Variant            *string           `json:"variant,omitempty"`
	QuotedPricePaise   int64             `json:"quoted_price_paise"`
	QuotedPriceDisplay string            `json:"quoted_price_display"`
	LeadCostPaise      int64             `json:"lead_cost_paise"`
	LeadCostDisplay    string            `json:"lead_cost_display"`
	PickupCity         string            `json:"pickup_city"`
	PickupState        string            `json:"pickup_state"`
	PickupPincode      string            `json:"pickup_pincode"`
	Status             enums.OrderStatus `json:"status"`
	CreatedAt          time.Time         `json:"created_at"`
}

// LeadList wraps the paginated marketplace leads plus the next page cursor.
type LeadList struct {
	Leads      []LeadSummary `json:"leads"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// LeadDetail is the partner-facing lead view. Contact fields are populated
// only for the live lock holder or the purchasing partner.
type LeadDetail struct {
	LeadSummary
	ConditionAnswers  json.RawMessage `json:"condition_answers,omitempty"`
	CustomerName      *string         `json:"customer_name,omitempty"`
	CustomerPhone     *string         `json:"customer_phone,omitempty"`
	CustomerEmail     *string         `json:"customer_email,omitempty"`
	PickupAddressLine *string         `json:"pickup_address_line,omitempty"`
	LockedUntil       *time.Time      `json:"locked_until,omitempty"`
	ContactVisible    bool            `json:"contact_visible"`
}

// LockResult reports a granted or renewed lock.
type LockResult struct {
	Order       *models.Order    `json:"order"`
	Lock        *models.LeadLock `json:"lock"`
	LockedUntil time.Time        `json:"locked_until"`
	Renewed     bool             `json:"renewed"`
}

// PurchaseResult reports the purchased order, the ledger debit and the
// partner's remaining balance.
type PurchaseResult struct {
	Order               *models.Order             `json:"order"`
	Transaction         *models.CreditTransaction `json:"transaction,omitempty"`
	BalanceAfterPaise   int64                     `json:"balance_after_paise"`
	BalanceAfterDisplay string                    `json:"balance_after_display"`
	LeadCostPaise       int64                     `json:"lead_cost_paise"`
	LeadCostDisplay     string                    `json:"lead_cost_display"`
}

// SchedulePickupInput carries the agent's chosen pickup window.
type SchedulePickupInput struct {
	PickupDate     time.Time
	PickupTimeSlot string
}

// CompletePickupInput records the on-site inspection outcome.
type CompletePickupInput struct {
	ActualCondition       string
	FinalOfferPaise       int64
	CustomerAcceptedOffer bool
	PickupNotes           *string
}

// ProcessPaymentInput records the payout made to the customer.
type ProcessPaymentInput struct {
	AmountPaise int64
	Method      string
	Reference   *string
	Notes       *string
}

// OrderList wraps paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func (s *service) leadSummary(order models.Order) LeadSummary {
	cost, err := s.policy.LeadCost(order.QuotedPricePaise)
	if err != nil {
		cost = 0
	}
	return LeadSummary{
		ID:                 order.ID,
		PhoneName:          order.PhoneName,
		Brand:              order.Brand,
		Model:              order.Model,
		RAMGB:              order.RAMGB,
		StorageGB:          order.StorageGB,
		Variant:            order.Variant,
		QuotedPricePaise:   order.QuotedPricePaise,
		QuotedPriceDisplay: money.FormatPaise(order.QuotedPricePaise),
		LeadCostPaise:      cost,
		LeadCostDisplay:    money.FormatPaise(cost),
		PickupCity:         order.PickupCity,
		PickupState:        order.PickupState,
		PickupPincode:      order.PickupPincode,
		Status:             order.Status,
		CreatedAt:          order.CreatedAt,
	}
}

func (s *service) leadDetail(order models.Order, contactVisible bool, lockedUntil *time.Time) *LeadDetail {
	detail := &LeadDetail{
		LeadSummary:    s.leadSummary(order),
		LockedUntil:    lockedUntil,
		ContactVisible: contactVisible,
	}
	if contactVisible {
		name := order.CustomerName
		phone := order.CustomerPhone
		address := order.PickupAddressLine
		detail.ConditionAnswers = order.ConditionAnswers
		detail.CustomerName = &name
		detail.CustomerPhone = &phone
		detail.CustomerEmail = order.CustomerEmail
		detail.PickupAddressLine = &address
	}
	return detail
}

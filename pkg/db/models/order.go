package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rahulbagri/phonelot-backend/pkg/enums"
)

// Order is a phone sale submitted by a customer. Once serviceable it doubles
// as the marketplace lead partners lock and purchase.
type Order struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;index"`
	PartnerID  *uuid.UUID `gorm:"column:partner_id;type:uuid;index"`
	AgentID    *uuid.UUID `gorm:"column:agent_id;type:uuid;index"`

	PhoneName        string          `gorm:"column:phone_name;not null"`
	Brand            *string         `gorm:"column:brand"`
	Model            *string         `gorm:"column:model"`
	RAMGB            *int            `gorm:"column:ram_gb"`
	StorageGB        *int            `gorm:"column:storage_gb"`
	Variant          *string         `gorm:"column:variant"`
	ConditionAnswers json.RawMessage `gorm:"column:condition_answers;type:jsonb;serializer:json"`
	QuotedPricePaise int64           `gorm:"column:quoted_price_paise;not null"`

	CustomerName  string  `gorm:"column:customer_name;not null"`
	CustomerPhone string  `gorm:"column:customer_phone;not null"`
	CustomerEmail *string `gorm:"column:customer_email"`

	PickupAddressLine string     `gorm:"column:pickup_address_line;not null"`
	PickupCity        string     `gorm:"column:pickup_city;not null"`
	PickupState       string     `gorm:"column:pickup_state;not null"`
	PickupPincode     string     `gorm:"column:pickup_pincode;not null;index"`
	PickupDate        *time.Time `gorm:"column:pickup_date"`
	PickupTimeSlot    *string    `gorm:"column:pickup_time_slot"`

	Status             enums.OrderStatus `gorm:"column:status;type:text;not null;default:'lead_created';index"`
	CancellationReason *string           `gorm:"column:cancellation_reason"`

	ActualCondition       *string `gorm:"column:actual_condition"`
	FinalOfferPaise       *int64  `gorm:"column:final_offer_paise"`
	CustomerAcceptedOffer *bool   `gorm:"column:customer_accepted_offer"`
	PickupNotes           *string `gorm:"column:pickup_notes"`

	PaymentAmountPaise *int64  `gorm:"column:payment_amount_paise"`
	PaymentMethod      *string `gorm:"column:payment_method"`
	PaymentReference   *string `gorm:"column:payment_reference"`
	PaymentNotes       *string `gorm:"column:payment_notes"`

	LockedAt           *time.Time `gorm:"column:locked_at"`
	LockExpiresAt      *time.Time `gorm:"column:lock_expires_at"`
	PurchasedAt        *time.Time `gorm:"column:purchased_at"`
	AssignedAt         *time.Time `gorm:"column:assigned_at"`
	AcceptedAt         *time.Time `gorm:"column:accepted_at"`
	PickupScheduledAt  *time.Time `gorm:"column:pickup_scheduled_at"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
	PaymentProcessedAt *time.Time `gorm:"column:payment_processed_at"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

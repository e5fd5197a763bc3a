package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadLock is a time-boxed exclusive claim a partner holds on a lead.
// At most one row per order may have is_active = true; the partial unique
// index ux_lead_locks_active enforces that at the database level.
type LeadLock struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	PartnerID uuid.UUID `gorm:"column:partner_id;type:uuid;not null;index"`
	GrantedAt time.Time `gorm:"column:granted_at;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

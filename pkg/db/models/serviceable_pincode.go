package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceablePincode marks a pincode a partner picks up from.
type ServiceablePincode struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID uuid.UUID `gorm:"column:partner_id;type:uuid;not null;index"`
	Pincode   string    `gorm:"column:pincode;not null;index"`
	City      *string   `gorm:"column:city"`
	State     *string   `gorm:"column:state"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

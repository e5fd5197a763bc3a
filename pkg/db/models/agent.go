package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent is a pickup employee of a partner.
type Agent struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID  uuid.UUID `gorm:"column:partner_id;type:uuid;not null;index"`
	Email      string    `gorm:"column:email;not null;uniqueIndex"`
	FullName   string    `gorm:"column:full_name;not null"`
	Phone      string    `gorm:"column:phone;not null"`
	EmployeeID *string   `gorm:"column:employee_id"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

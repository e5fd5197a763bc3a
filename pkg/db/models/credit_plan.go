package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditPlan is an admin-seeded top-up package.
type CreditPlan struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PlanName          string    `gorm:"column:plan_name;not null"`
	CreditAmountPaise int64     `gorm:"column:credit_amount_paise;not null"`
	PricePaise        int64     `gorm:"column:price_paise;not null"`
	BonusPercent      int       `gorm:"column:bonus_percent;not null;default:0"`
	IsActive          bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rahulbagri/phonelot-backend/pkg/enums"
)

// Partner is a buyer organization holding a prepaid credit balance.
// CreditBalancePaise is only ever mutated by the ledger's conditional update.
type Partner struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email              string                   `gorm:"column:email;not null;uniqueIndex"`
	FullName           string                   `gorm:"column:full_name;not null"`
	Phone              string                   `gorm:"column:phone;not null"`
	CompanyName        *string                  `gorm:"column:company_name"`
	VerificationStatus enums.VerificationStatus `gorm:"column:verification_status;type:text;not null;default:'pending'"`
	CreditBalancePaise int64                    `gorm:"column:credit_balance_paise;not null;default:0"`
	IsActive           bool                     `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rahulbagri/phonelot-backend/pkg/enums"
)

// CreditTransaction is an immutable ledger row. AmountPaise is signed:
// positive for credits, negative for debits. BalanceAfterPaise always equals
// BalanceBeforePaise + AmountPaise.
type CreditTransaction struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID          uuid.UUID             `gorm:"column:partner_id;type:uuid;not null;index"`
	Type               enums.TransactionType `gorm:"column:type;type:text;not null"`
	AmountPaise        int64                 `gorm:"column:amount_paise;not null"`
	BalanceBeforePaise int64                 `gorm:"column:balance_before_paise;not null"`
	BalanceAfterPaise  int64                 `gorm:"column:balance_after_paise;not null"`
	ReferenceID        *uuid.UUID            `gorm:"column:reference_id;type:uuid;index"`
	ReferenceType      *string               `gorm:"column:reference_type"`
	ActorType          enums.ActorType       `gorm:"column:actor_type;type:text;not null"`
	ActorID            *uuid.UUID            `gorm:"column:actor_id;type:uuid"`
	Notes              *string               `gorm:"column:notes"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
}

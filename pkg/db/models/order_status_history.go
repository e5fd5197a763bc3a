package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rahulbagri/phonelot-backend/pkg/enums"
)

// OrderStatusHistory is an append-only audit row, one per successful
// transition. FromStatus is nil for the creation entry.
type OrderStatusHistory struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus *enums.OrderStatus `gorm:"column:from_status;type:text"`
	ToStatus   enums.OrderStatus  `gorm:"column:to_status;type:text;not null"`
	ActorType  enums.ActorType    `gorm:"column:actor_type;type:text;not null"`
	ActorID    *uuid.UUID         `gorm:"column:actor_id;type:uuid"`
	Notes      *string            `gorm:"column:notes"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the singular audit table name rather than gorm's
// pluralized default.
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

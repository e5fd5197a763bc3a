package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
)

// Entry captures one status change for the audit trail.
type Entry struct {
	OrderID    uuid.UUID
	FromStatus *enums.OrderStatus
	ToStatus   enums.OrderStatus
	ActorType  enums.ActorType
	ActorID    *uuid.UUID
	Notes      string
}

// Recorder appends and reads order status history.
type Recorder interface {
	AppendTx(ctx context.Context, tx *gorm.DB, entry Entry) error
	Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
}

type recorder struct {
	db *gorm.DB
}

// NewRecorder returns a Recorder bound to the provided database.
func NewRecorder(db *gorm.DB) Recorder {
	return &recorder{db: db}
}

func (r *recorder) AppendTx(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if entry.OrderID == uuid.Nil {
		return fmt.Errorf("order id is required")
	}
	if !entry.ToStatus.IsValid() {
		return fmt.Errorf("invalid to status %q", entry.ToStatus)
	}
	if !entry.ActorType.IsValid() {
		return fmt.Errorf("invalid actor type %q", entry.ActorType)
	}

	row := models.OrderStatusHistory{
		OrderID:    entry.OrderID,
		FromStatus: entry.FromStatus,
		ToStatus:   entry.ToStatus,
		ActorType:  entry.ActorType,
		ActorID:    entry.ActorID,
	}
	if entry.Notes != "" {
		notes := entry.Notes
		row.Notes = &notes
	}
	return tx.WithContext(ctx).Create(&row).Error
}

func (r *recorder) Timeline(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

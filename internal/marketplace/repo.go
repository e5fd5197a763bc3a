package marketplace

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	"github.com/rahulbagri/phonelot-backend/pkg/pagination"
)

// Repository covers order reads the marketplace serves directly: lead
// listings for partners and order listings per role. Status transitions go
// through the state machine, never through this repository.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// UpdateLockExpiry extends the denormalized lock expiry on a locked order
	// during an idempotent lock renewal.
	UpdateLockExpiry(ctx context.Context, orderID uuid.UUID, expiresAt time.Time) (int64, error)
	ListAvailable(ctx context.Context, pincodes []string, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	ListByPartner(ctx context.Context, partnerID uuid.UUID, status *enums.OrderStatus, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, status *enums.OrderStatus, limit int, cursor *pagination.Cursor) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a marketplace repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateLockExpiry(ctx context.Context, orderID uuid.UUID, expiresAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE orders SET lock_expires_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		expiresAt, orderID, enums.OrderStatusLeadLocked,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) ListAvailable(ctx context.Context, pincodes []string, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	if len(pincodes) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusAvailableForPartners).
		Where("pickup_pincode IN ?", pincodes).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	query = applyCursor(query, cursor)

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	query = applyCursor(query, cursor)

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByPartner(ctx context.Context, partnerID uuid.UUID, status *enums.OrderStatus, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	query = applyCursor(query, cursor)

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByAgent(ctx context.Context, agentID uuid.UUID, status *enums.OrderStatus, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	query = applyCursor(query, cursor)

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func applyCursor(query *gorm.DB, cursor *pagination.Cursor) *gorm.DB {
	if cursor == nil {
		return query
	}
	return query.Where(
		"(created_at < ?) OR (created_at = ? AND id < ?)",
		cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
	)
}

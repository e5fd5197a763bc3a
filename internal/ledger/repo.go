package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/pagination"
)

// Repository manages persistence for partner balances and ledger rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// AdjustBalance applies a signed delta to the partner balance row. For
	// debits the update predicate refuses to drive the balance negative; the
	// caller distinguishes insufficient funds from a missing partner by the
	// returned row count.
	AdjustBalance(ctx context.Context, partnerID uuid.UUID, amountPaise int64) (int64, error)
	FindPartner(ctx context.Context, partnerID uuid.UUID) (*models.Partner, error)
	CreateTransaction(ctx context.Context, row *models.CreditTransaction) error
	ListByPartner(ctx context.Context, partnerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CreditTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) AdjustBalance(ctx context.Context, partnerID uuid.UUID, amountPaise int64) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE partners
		 SET credit_balance_paise = credit_balance_paise + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND credit_balance_paise + ? >= 0`,
		amountPaise, partnerID, amountPaise,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) FindPartner(ctx context.Context, partnerID uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	err := r.db.WithContext(ctx).First(&partner, "id = ?", partnerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *repository) CreateTransaction(ctx context.Context, row *models.CreditTransaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListByPartner(ctx context.Context, partnerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CreditTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var rows []models.CreditTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

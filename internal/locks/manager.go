package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/rahulbagri/phonelot-backend/pkg/db"
	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
)

const activeLockIndex = "ux_lead_locks_active"

// AcquireResult reports the lock granted to the caller and whether it was an
// idempotent renewal of a lock the partner already held.
type AcquireResult struct {
	Lock    *models.LeadLock
	Renewed bool
}

// Manager owns lead_locks rows. It only moves lock state; order status
// transitions that accompany lock changes are driven by the state machine,
// which calls these methods inside its own transaction.
type Manager interface {
	// AcquireTx grants the partner an exclusive lock, renewing an existing
	// live self-lock instead of failing. A live lock held by another partner
	// maps to Conflict carrying the holder's expiry.
	AcquireTx(ctx context.Context, tx *gorm.DB, orderID, partnerID uuid.UUID) (*AcquireResult, error)
	// ReleaseTx deactivates the partner's own live lock. Releasing a lock
	// held by someone else is Forbidden; no live lock is LockExpired.
	ReleaseTx(ctx context.Context, tx *gorm.DB, orderID, partnerID uuid.UUID) (*models.LeadLock, error)
	// ConsumeTx deactivates the partner's live lock on purchase.
	ConsumeTx(ctx context.Context, tx *gorm.DB, orderID, partnerID uuid.UUID) (*models.LeadLock, error)
	// ExpireTx deactivates any active-but-expired rows for the order and
	// reports whether one existed.
	ExpireTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)
	// DeactivateAllTx clears every active lock on the order regardless of
	// holder or expiry, for cancellations.
	DeactivateAllTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	// LiveTx returns the active unexpired lock for the order, or nil.
	LiveTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.LeadLock, error)
	Live(ctx context.Context, orderID uuid.UUID) (*models.LeadLock, error)
	// ExpiredOrderIDs lists orders holding an active lock whose TTL has
	// lapsed, for the sweeper.
	ExpiredOrderIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
	TTL() time.Duration
}

type manager struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewManager builds a lock manager with the configured TTL.
func NewManager(db *gorm.DB, ttl time.Duration) (Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive")
	}
	return &manager{db: db, ttl: ttl}, nil
}

func (m *manager) TTL() time.Duration {
	return m.ttl
}

func (m *manager) AcquireTx(ctx context.Context, tx *gorm.DB, orderID, partnerID uuid.UUID) (*AcquireResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(m.ttl)

	// Self-acquire renews instead of conflicting.
	renewed := tx.WithContext(ctx).Exec(
		`UPDATE lead_locks SET expires_at = ?
		 WHERE order_id = ? AND partner_id = ? AND is_active AND expires_at > ?`,
		expiresAt, orderID, partnerID, now,
	)
	if renewed.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, renewed.Error, "renew lock")
	}
	if renewed.RowsAffected > 0 {
		lock, err := m.liveTx(ctx, tx, orderID, now)
		if err != nil {
			return nil, err
		}
		if lock == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "renewed lock disappeared")
		}
		return &AcquireResult{Lock: lock, Renewed: true}, nil
	}

	// Clear stale rows so the partial unique index admits the new lock.
	if err := m.deactivateExpired(ctx, tx, orderID, now); err != nil {
		return nil, err
	}

	lock := &models.LeadLock{
		ID:        uuid.New(),
		OrderID:   orderID,
		PartnerID: partnerID,
		GrantedAt: now,
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
	if err := tx.WithContext(ctx).Create(lock).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, activeLockIndex) {
			holder, liveErr := m.liveTx(ctx, tx, orderID, now)
			conflict := pkgerrors.Wrap(pkgerrors.CodeConflict, err, "lead is locked by another partner")
			if liveErr == nil && holder != nil {
				conflict = conflict.WithDetails(map[string]any{
					"locked_until": holder.ExpiresAt.UTC(),
				})
			}
			return nil, conflict
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert lock")
	}
	return &AcquireResult{Lock: lock}, nil
}

func (m *manager) ReleaseTx(ctx context.Context, tx *gorm.DB, orderID, partnerID uuid.UUID) (*models.LeadLock, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	now := time.Now().UTC()
	lock, err := m.liveTx(ctx, tx, orderID, now)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeLockExpired, "no live lock to release")
	}
	if lock.PartnerID != partnerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "lock held by another partner")
	}
	if err := m.deactivate(ctx, tx, lock.ID); err != nil {
		return nil, err
	}
	lock.IsActive = false
	return lock, nil
}

func (m *manager) ConsumeTx(ctx context.Context, tx *gorm.DB, orderID, partnerID uuid.UUID) (*models.LeadLock, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	now := time.Now().UTC()
	lock, err := m.liveTx(ctx, tx, orderID, now)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeLockExpired, "lock expired before purchase")
	}
	if lock.PartnerID != partnerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "lock held by another partner")
	}
	if err := m.deactivate(ctx, tx, lock.ID); err != nil {
		return nil, err
	}
	lock.IsActive = false
	return lock, nil
}

func (m *manager) ExpireTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	now := time.Now().UTC()
	res := tx.WithContext(ctx).Exec(
		`UPDATE lead_locks SET is_active = ?
		 WHERE order_id = ? AND is_active AND expires_at <= ?`,
		false, orderID, now,
	)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "expire lock")
	}
	return res.RowsAffected > 0, nil
}

func (m *manager) DeactivateAllTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	err := tx.WithContext(ctx).Exec(
		`UPDATE lead_locks SET is_active = ? WHERE order_id = ? AND is_active`,
		false, orderID,
	).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate locks")
	}
	return nil
}

func (m *manager) LiveTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.LeadLock, error) {
	if tx == nil {
		tx = m.db
	}
	return m.liveTx(ctx, tx, orderID, time.Now().UTC())
}

func (m *manager) Live(ctx context.Context, orderID uuid.UUID) (*models.LeadLock, error) {
	return m.liveTx(ctx, m.db, orderID, time.Now().UTC())
}

func (m *manager) ExpiredOrderIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := m.db.WithContext(ctx).
		Model(&models.LeadLock{}).
		Where("is_active AND expires_at <= ?", time.Now().UTC()).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("order_id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired locks")
	}
	return ids, nil
}

func (m *manager) liveTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, now time.Time) (*models.LeadLock, error) {
	var lock models.LeadLock
	err := tx.WithContext(ctx).
		Where("order_id = ? AND is_active AND expires_at > ?", orderID, now).
		First(&lock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load live lock")
	}
	return &lock, nil
}

func (m *manager) deactivateExpired(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, now time.Time) error {
	err := tx.WithContext(ctx).Exec(
		`UPDATE lead_locks SET is_active = ?
		 WHERE order_id = ? AND is_active AND expires_at <= ?`,
		false, orderID, now,
	).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate stale locks")
	}
	return nil
}

func (m *manager) deactivate(ctx context.Context, tx *gorm.DB, lockID uuid.UUID) error {
	err := tx.WithContext(ctx).Exec(
		`UPDATE lead_locks SET is_active = ? WHERE id = ?`, false, lockID,
	).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate lock")
	}
	return nil
}

package locks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/pkg/db/dbtest"
	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
)

func newTestManager(t *testing.T, ttl time.Duration) (Manager, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	mgr, err := NewManager(conn, ttl)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return mgr, conn
}

func inTx(t *testing.T, conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	t.Helper()
	return conn.Transaction(fn)
}

func backdateLock(t *testing.T, conn *gorm.DB, lockID uuid.UUID, by time.Duration) {
	t.Helper()
	expired := time.Now().UTC().Add(-by)
	if err := conn.Model(&models.LeadLock{}).Where("id = ?", lockID).
		Update("expires_at", expired).Error; err != nil {
		t.Fatalf("backdate lock: %v", err)
	}
}

func TestAcquireGrantsExclusiveLock(t *testing.T) {
	t.Parallel()

	mgr, conn := newTestManager(t, 10*time.Minute)
	ctx := context.Background()
	orderID := uuid.New()
	partnerA := uuid.New()
	partnerB := uuid.New()

	var granted *models.LeadLock
	err := inTx(t, conn, func(tx *gorm.DB) error {
		res, err := mgr.AcquireTx(ctx, tx, orderID, partnerA)
		if err != nil {
			return err
		}
		granted = res.Lock
		return nil
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if granted.PartnerID != partnerA || !granted.IsActive {
		t.Fatalf("unexpected lock %+v", granted)
	}
	remaining := time.Until(granted.ExpiresAt)
	if remaining < 9*time.Minute || remaining > 10*time.Minute {
		t.Fatalf("unexpected TTL, expires in %s", remaining)
	}

	err = inTx(t, conn, func(tx *gorm.DB) error {
		_, err := mgr.AcquireTx(ctx, tx, orderID, partnerB)
		return err
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT for second partner, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected locked_until details, got %T", typed.Details())
	}
	lockedUntil, ok := details["locked_until"].(time.Time)
	if !ok {
		t.Fatalf("expected locked_until time, got %v", details["locked_until"])
	}
	if !lockedUntil.Equal(granted.ExpiresAt.UTC()) {
		t.Fatalf("locked_until %s does not match holder expiry %s", lockedUntil, granted.ExpiresAt)
	}
}

func TestAcquireSelfLockRenews(t *testing.T) {
	t.Parallel()

	mgr, conn := newTestManager(t, 10*time.Minute)
	ctx := context.Background()
	orderID := uuid.New()
	partnerID := uuid.New()

	var first *models.LeadLock
	if err := inTx(t, conn, func(tx *gorm.DB) error {
		res, err := mgr.AcquireTx(ctx, tx, orderID, partnerID)
		first = res.Lock
		return err
	}); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	var second *AcquireResult
	if err := inTx(t, conn, func(tx *gorm.DB) error {
		res, err := mgr.AcquireTx(ctx, tx, orderID, partnerID)
		second = res
		return err
	}); err != nil {
		t.Fatalf("renew acquire: %v", err)
	}
	if !second.Renewed {
		t.Fatalf("expected idempotent renewal")
	}
	if second.Lock.ID != first.ID {
		t.Fatalf("renewal must reuse the same lock row")
	}
	if !second.Lock.ExpiresAt.After(first.ExpiresAt) {
		t.Fatalf("expected expiry extension: %s -> %s", first.ExpiresAt, second.Lock.ExpiresAt)
	}

	var active int64
	if err := conn.Model(&models.LeadLock{}).
		Where("order_id = ? AND is_active", orderID).Count(&active).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected exactly one active lock, got %d", active)
	}
}

func TestAcquireAfterExpiryReplacesStaleLock(t *testing.T) {
	t.Parallel()

	mgr, conn := newTestManager(t, 10*time.Minute)
	ctx := context.Background()
	orderID := uuid.New()
	partnerA := uuid.New()
	partnerB := uuid.New()

	var stale *models.LeadLock
	if err := inTx(t, conn, func(tx *gorm.DB) error {
		res, err := mgr.AcquireTx(ctx, tx, orderID, partnerA)
		stale = res.Lock
		return err
	}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	backdateLock(t, conn, stale.ID, time.Minute)

	var fresh *models.LeadLock
	if err := inTx(t, conn, func(tx *gorm.DB) error {
		res, err := mgr.AcquireTx(ctx, tx, orderID, partnerB)
		if err != nil {
			return err
		}
		fresh = res.Lock
		return nil
	}); err != nil {
		t.Fatalf("acquire over stale lock: %v", err)
	}
	if fresh.PartnerID != partnerB {
		t.Fatalf("expected partner B to win the stale lead")
	}

	var reloaded models.LeadLock
	if err := conn.First(&reloaded, "id = ?", stale.ID).Error; err != nil {
		t.Fatalf("reload stale: %v", err)
	}
	if reloaded.IsActive {
		t.Fatalf("stale lock must be deactivated")
	}
}

func TestReleaseEnforcesHolder(t *testing.T) {
	t.Parallel()

	mgr, conn := newTestManager(t, 10*time.Minute)
	ctx := context.Background()
	orderID := uuid.New()
	holder := uuid.New()
	intruder := uuid.New()

	if err := inTx(t, conn, func(tx *gorm.DB) error {
		_, err := mgr.AcquireTx(ctx, tx, orderID, holder)
		return err
	}); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	err := inTx(t, conn, func(tx *gorm.DB) error {
		_, err := mgr.ReleaseTx(ctx, tx, orderID, intruder)
		return err
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN for non-holder, got %v", err)
	}

	if err := inTx(t, conn, func(tx *gorm.DB) error {
		_, err := mgr.ReleaseTx(ctx, tx, orderID, holder)
		return err
	}); err != nil {
		t.Fatalf("holder release: %v", err)
	}

	live, err := mgr.Live(ctx, orderID)
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if live != nil {
		t.Fatalf("expected no live lock after release")
	}
}

func TestReleaseExpiredLock(t *testing.T) {
	t.Parallel()

	mgr, conn := newTestManager(t, 10*time.Minute)
	ctx := context.Background()
	orderID := uuid.New()
	holder := uuid.New()

	var lock *models.LeadLock
	if err := inTx(t, conn, func(tx *gorm.DB) error {
		res, err := mgr.AcquireTx(ctx, tx, orderID, holder)
		lock = res.Lock
		return err
	}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	backdateLock(t, conn, lock.ID, time.Minute)

	err := inTx(t, conn, func(tx *gorm.DB) error {
		_, err := mgr.ReleaseTx(ctx, tx, orderID, holder)
		return err
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeLockExpired {
		t.Fatalf("expected LOCK_EXPIRED, got %v", err)
	}
}

func TestExpireTxAndSweepListing(t *testing.T) {
	t.Parallel()

	mgr, conn := newTestManager(t, 10*time.Minute)
	ctx := context.Background()
	orderID := uuid.New()
	holder := uuid.New()

	var lock *models.LeadLock
	if err := inTx(t, conn, func(tx *gorm.DB) error {
		res, err := mgr.AcquireTx(ctx, tx, orderID, holder)
		lock = res.Lock
		return err
	}); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Nothing to expire while the lock is live.
	if err := inTx(t, conn, func(tx *gorm.DB) error {
		expired, err := mgr.ExpireTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if expired {
			t.Fatalf("live lock must not be expired")
		}
		return nil
	}); err != nil {
		t.Fatalf("expire live: %v", err)
	}

	backdateLock(t, conn, lock.ID, time.Minute)

	ids, err := mgr.ExpiredOrderIDs(ctx, 10)
	if err != nil {
		t.Fatalf("expired ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != orderID {
		t.Fatalf("expected the backdated order listed, got %v", ids)
	}

	if err := inTx(t, conn, func(tx *gorm.DB) error {
		expired, err := mgr.ExpireTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !expired {
			t.Fatalf("expected expiry to deactivate the lock")
		}
		return nil
	}); err != nil {
		t.Fatalf("expire: %v", err)
	}

	ids, err = mgr.ExpiredOrderIDs(ctx, 10)
	if err != nil {
		t.Fatalf("expired ids after sweep: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no expired locks left, got %v", ids)
	}
}

func TestConsumeRequiresLiveLock(t *testing.T) {
	t.Parallel()

	mgr, conn := newTestManager(t, 10*time.Minute)
	ctx := context.Background()
	orderID := uuid.New()
	holder := uuid.New()

	err := inTx(t, conn, func(tx *gorm.DB) error {
		_, err := mgr.ConsumeTx(ctx, tx, orderID, holder)
		return err
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeLockExpired {
		t.Fatalf("expected LOCK_EXPIRED without a lock, got %v", err)
	}

	if err := inTx(t, conn, func(tx *gorm.DB) error {
		_, err := mgr.AcquireTx(ctx, tx, orderID, holder)
		return err
	}); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := inTx(t, conn, func(tx *gorm.DB) error {
		lock, err := mgr.ConsumeTx(ctx, tx, orderID, holder)
		if err != nil {
			return err
		}
		if lock.IsActive {
			t.Fatalf("consumed lock must be inactive")
		}
		return nil
	}); err != nil {
		t.Fatalf("consume: %v", err)
	}
}

package credits

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/internal/ledger"
	"github.com/rahulbagri/phonelot-backend/internal/partners"
	"github.com/rahulbagri/phonelot-backend/pkg/db/dbtest"
	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
	"github.com/rahulbagri/phonelot-backend/pkg/outbox"
	"github.com/rahulbagri/phonelot-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	runner := gormTxRunner{db: conn}

	credit, err := ledger.NewService(ledger.NewRepository(conn), runner)
	if err != nil {
		t.Fatalf("new ledger service: %v", err)
	}
	svc, err := NewService(
		partners.NewRepository(conn), credit,
		outbox.NewService(outbox.NewRepository(conn), nil),
		runner, nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedPartner(t *testing.T, conn *gorm.DB, status enums.VerificationStatus) uuid.UUID {
	t.Helper()
	partner := models.Partner{
		ID:                 uuid.New(),
		Email:              fmt.Sprintf("%s@partners.test", uuid.NewString()),
		FullName:           "Test Partner",
		Phone:              "9999999999",
		VerificationStatus: status,
		IsActive:           true,
	}
	if err := conn.Create(&partner).Error; err != nil {
		t.Fatalf("seed partner: %v", err)
	}
	return partner.ID
}

func seedPlan(t *testing.T, conn *gorm.DB, creditPaise, pricePaise int64, bonusPercent int, active bool) uuid.UUID {
	t.Helper()
	plan := models.CreditPlan{
		ID:                uuid.New(),
		PlanName:          fmt.Sprintf("Plan %d", creditPaise),
		CreditAmountPaise: creditPaise,
		PricePaise:        pricePaise,
		BonusPercent:      bonusPercent,
		IsActive:          active,
	}
	if err := conn.Create(&plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan.ID
}

func TestPurchaseCreditsWithBonus(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	partnerID := seedPartner(t, conn, enums.VerificationApproved)
	planID := seedPlan(t, conn, 5000000, 5000000, 10, true)

	res, err := svc.PurchaseCredits(ctx, partnerID, planID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.CreditedPaise != 5000000 || res.BonusPaise != 500000 {
		t.Fatalf("unexpected amounts %+v", res)
	}
	if res.BalanceAfterPaise != 5500000 {
		t.Fatalf("expected balance 5500000, got %d", res.BalanceAfterPaise)
	}
	if res.BalanceAfterDisplay != "₹55,000.00" {
		t.Fatalf("unexpected display %q", res.BalanceAfterDisplay)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("expected two ledger rows, got %d", len(res.Transactions))
	}
	if res.Transactions[0].Type != enums.TransactionCreditPurchase || res.Transactions[1].Type != enums.TransactionBonus {
		t.Fatalf("unexpected transaction types %+v", res.Transactions)
	}

	var partner models.Partner
	if err := conn.First(&partner, "id = ?", partnerID).Error; err != nil {
		t.Fatalf("reload partner: %v", err)
	}
	if partner.CreditBalancePaise != 5500000 {
		t.Fatalf("expected persisted balance 5500000, got %d", partner.CreditBalancePaise)
	}

	var eventCount int64
	if err := conn.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", partnerID, enums.EventCreditsPurchased).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected one credits_purchased event, got %d", eventCount)
	}
}

func TestPurchaseCreditsGuards(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	pending := seedPartner(t, conn, enums.VerificationPending)
	approved := seedPartner(t, conn, enums.VerificationApproved)
	planID := seedPlan(t, conn, 5000000, 5000000, 0, true)
	retired := seedPlan(t, conn, 1000000, 1000000, 0, false)

	_, err := svc.PurchaseCredits(ctx, pending, planID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN for unverified partner, got %v", err)
	}

	_, err = svc.PurchaseCredits(ctx, approved, retired)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for retired plan, got %v", err)
	}

	_, err = svc.PurchaseCredits(ctx, approved, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for unknown plan, got %v", err)
	}
}

func TestBalanceAndTransactions(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()
	partnerID := seedPartner(t, conn, enums.VerificationApproved)
	planID := seedPlan(t, conn, 2000000, 2000000, 0, true)

	if _, err := svc.PurchaseCredits(ctx, partnerID, planID); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	balance, err := svc.Balance(ctx, partnerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.BalancePaise != 2000000 || balance.BalanceDisplay != "₹20,000.00" {
		t.Fatalf("unexpected balance %+v", balance)
	}

	list, err := svc.ListTransactions(ctx, partnerID, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(list.Transactions) != 1 || list.Transactions[0].Type != enums.TransactionCreditPurchase {
		t.Fatalf("unexpected transactions %+v", list.Transactions)
	}

	plans, err := svc.ListPlans(ctx)
	if err != nil {
		t.Fatalf("plans: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != planID {
		t.Fatalf("retired plans must be hidden, got %+v", plans)
	}
}

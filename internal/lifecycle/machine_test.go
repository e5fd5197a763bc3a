package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/internal/history"
	"github.com/rahulbagri/phonelot-backend/internal/ledger"
	"github.com/rahulbagri/phonelot-backend/internal/locks"
	"github.com/rahulbagri/phonelot-backend/internal/pricing"
	"github.com/rahulbagri/phonelot-backend/pkg/db/dbtest"
	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
	"github.com/rahulbagri/phonelot-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestMachine(t *testing.T) (*Machine, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)

	lockMgr, err := locks.NewManager(conn, 10*time.Minute)
	if err != nil {
		t.Fatalf("new lock manager: %v", err)
	}
	credit, err := ledger.NewService(ledger.NewRepository(conn), gormTxRunner{db: conn})
	if err != nil {
		t.Fatalf("new ledger service: %v", err)
	}
	policy, err := pricing.NewPolicy("15")
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	machine, err := NewMachine(
		NewOrdersRepository(conn),
		lockMgr,
		credit,
		history.NewRecorder(conn),
		outbox.NewService(outbox.NewRepository(conn), nil),
		policy,
		gormTxRunner{db: conn},
		nil,
	)
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	return machine, conn
}

func seedPartner(t *testing.T, conn *gorm.DB, balancePaise int64) uuid.UUID {
	t.Helper()
	partner := models.Partner{
		ID:                 uuid.New(),
		Email:              fmt.Sprintf("%s@partners.test", uuid.NewString()),
		FullName:           "Test Partner",
		Phone:              "9999999999",
		VerificationStatus: enums.VerificationApproved,
		CreditBalancePaise: balancePaise,
		IsActive:           true,
	}
	if err := conn.Create(&partner).Error; err != nil {
		t.Fatalf("seed partner: %v", err)
	}
	return partner.ID
}

func seedOrder(t *testing.T, conn *gorm.DB, status enums.OrderStatus, quotedPaise int64) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:                uuid.New(),
		CustomerID:        uuid.New(),
		PhoneName:         "iPhone 13 128GB",
		QuotedPricePaise:  quotedPaise,
		CustomerName:      "Asha Rao",
		CustomerPhone:     "9876543210",
		PickupAddressLine: "14 MG Road",
		PickupCity:        "Bengaluru",
		PickupState:       "Karnataka",
		PickupPincode:     "560001",
		Status:            status,
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func reloadOrder(t *testing.T, conn *gorm.DB, orderID uuid.UUID) *models.Order {
	t.Helper()
	var order models.Order
	if err := conn.First(&order, "id = ?", orderID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return &order
}

func backdateLocks(t *testing.T, conn *gorm.DB, orderID uuid.UUID) {
	t.Helper()
	expired := time.Now().UTC().Add(-time.Minute)
	if err := conn.Exec(
		`UPDATE lead_locks SET expires_at = ? WHERE order_id = ?`, expired, orderID,
	).Error; err != nil {
		t.Fatalf("backdate locks: %v", err)
	}
}

func historyNotes(t *testing.T, conn *gorm.DB, orderID uuid.UUID) []string {
	t.Helper()
	var rows []models.OrderStatusHistory
	if err := conn.Where("order_id = ?", orderID).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	notes := make([]string, 0, len(rows))
	for _, row := range rows {
		note := ""
		if row.Notes != nil {
			note = *row.Notes
		}
		notes = append(notes, note)
	}
	return notes
}

func outboxEventTypes(t *testing.T, conn *gorm.DB, aggregateID uuid.UUID) []enums.OutboxEventType {
	t.Helper()
	var types []enums.OutboxEventType
	if err := conn.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ?", aggregateID).
		Order("created_at ASC").
		Pluck("event_type", &types).Error; err != nil {
		t.Fatalf("load outbox events: %v", err)
	}
	return types
}

func partnerActor(partnerID uuid.UUID) Actor {
	id := partnerID
	return Actor{Type: enums.ActorPartner, ID: &id}
}

func agentActor(agentID uuid.UUID) Actor {
	id := agentID
	return Actor{Type: enums.ActorAgent, ID: &id}
}

func TestPublishAndLockFlow(t *testing.T) {
	t.Parallel()

	machine, conn := newTestMachine(t)
	ctx := context.Background()
	order := seedOrder(t, conn, enums.OrderStatusLeadCreated, 4000000)
	partnerID := seedPartner(t, conn, 0)

	res, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusLeadCreated,
		To:      enums.OrderStatusAvailableForPartners,
		Actor:   Actor{Type: enums.ActorSystem},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Order.Status != enums.OrderStatusAvailableForPartners {
		t.Fatalf("expected available status, got %s", res.Order.Status)
	}

	res, err = machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadLocked,
		Actor:   partnerActor(partnerID),
	})
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	locked := res.Order
	if locked.Status != enums.OrderStatusLeadLocked {
		t.Fatalf("expected locked status, got %s", locked.Status)
	}
	if locked.PartnerID == nil || *locked.PartnerID != partnerID {
		t.Fatalf("expected partner recorded on order")
	}
	if locked.LockedAt == nil || locked.LockExpiresAt == nil {
		t.Fatalf("expected lock timestamps on order")
	}
	if res.Lock == nil || !res.Lock.IsActive {
		t.Fatalf("expected an active lock in the result")
	}

	types := outboxEventTypes(t, conn, order.ID)
	if len(types) != 1 || types[0] != enums.EventLeadAvailable {
		t.Fatalf("unexpected outbox events %v", types)
	}
	if notes := historyNotes(t, conn, order.ID); len(notes) != 2 {
		t.Fatalf("expected two history rows, got %v", notes)
	}
}

func TestLockConflictBetweenPartners(t *testing.T) {
	t.Parallel()

	machine, conn := newTestMachine(t)
	ctx := context.Background()
	order := seedOrder(t, conn, enums.OrderStatusAvailableForPartners, 4000000)
	partnerA := seedPartner(t, conn, 0)
	partnerB := seedPartner(t, conn, 0)

	if _, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadLocked,
		Actor:   partnerActor(partnerA),
	}); err != nil {
		t.Fatalf("first lock: %v", err)
	}

	_, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusLeadLocked,
		To:      enums.OrderStatusLeadLocked,
		Actor:   partnerActor(partnerB),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT for self edge, got %v", err)
	}

	// The realistic race: B still sees the lead as available.
	_, err = machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadLocked,
		Actor:   partnerActor(partnerB),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT for stale view, got %v", err)
	}

	current := reloadOrder(t, conn, order.ID)
	if current.PartnerID == nil || *current.PartnerID != partnerA {
		t.Fatalf("lock must stay with the first partner")
	}
}

func TestPurchaseDebitsLedger(t *testing.T) {
	t.Parallel()

	machine, conn := newTestMachine(t)
	ctx := context.Background()
	order := seedOrder(t, conn, enums.OrderStatusAvailableForPartners, 4000000)
	partnerID := seedPartner(t, conn, 1000000)

	if _, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadLocked,
		Actor:   partnerActor(partnerID),
	}); err != nil {
		t.Fatalf("lock: %v", err)
	}

	res, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusLeadLocked,
		To:      enums.OrderStatusLeadPurchased,
		Actor:   partnerActor(partnerID),
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.Order.Status != enums.OrderStatusLeadPurchased {
		t.Fatalf("expected purchased status, got %s", res.Order.Status)
	}
	if res.Order.PurchasedAt == nil {
		t.Fatalf("expected purchased_at to be set")
	}
	if res.Transaction == nil {
		t.Fatalf("expected a ledger transaction")
	}
	// 15 percent of 4,000,000 paise.
	if res.Transaction.AmountPaise != -600000 {
		t.Fatalf("expected debit of 600000 paise, got %d", res.Transaction.AmountPaise)
	}
	if res.Transaction.BalanceAfterPaise != 400000 {
		t.Fatalf("expected remaining balance 400000, got %d", res.Transaction.BalanceAfterPaise)
	}

	var partner models.Partner
	if err := conn.First(&partner, "id = ?", partnerID).Error; err != nil {
		t.Fatalf("reload partner: %v", err)
	}
	if partner.CreditBalancePaise != 400000 {
		t.Fatalf("expected balance 400000, got %d", partner.CreditBalancePaise)
	}

	var activeLocks int64
	if err := conn.Model(&models.LeadLock{}).
		Where("order_id = ? AND is_active", order.ID).Count(&activeLocks).Error; err != nil {
		t.Fatalf("count locks: %v", err)
	}
	if activeLocks != 0 {
		t.Fatalf("purchase must consume the lock")
	}

	types := outboxEventTypes(t, conn, order.ID)
	if len(types) != 1 || types[0] != enums.EventLeadPurchased {
		t.Fatalf("unexpected outbox events %v", types)
	}
}

func TestPurchaseInsufficientFundsRollsBack(t *testing.T) {
	t.Parallel()

	machine, conn := newTestMachine(t)
	ctx := context.Background()
	order := seedOrder(t, conn, enums.OrderStatusAvailableForPartners, 4000000)
	partnerID := seedPartner(t, conn, 100)

	if _, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadLocked,
		Actor:   partnerActor(partnerID),
	}); err != nil {
		t.Fatalf("lock: %v", err)
	}

	_, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusLeadLocked,
		To:      enums.OrderStatusLeadPurchased,
		Actor:   partnerActor(partnerID),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("expected INSUFFICIENT_FUNDS, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details, got %T", typed.Details())
	}
	if details["required_paise"] != int64(600000) || details["available_paise"] != int64(100) {
		t.Fatalf("unexpected details %v", details)
	}

	// The rollback keeps the order locked and the lock live.
	current := reloadOrder(t, conn, order.ID)
	if current.Status != enums.OrderStatusLeadLocked {
		t.Fatalf("expected order to stay locked, got %s", current.Status)
	}
	var activeLocks int64
	if err := conn.Model(&models.LeadLock{}).
		Where("order_id = ? AND is_active", order.ID).Count(&activeLocks).Error; err != nil {
		t.Fatalf("count locks: %v", err)
	}
	if activeLocks != 1 {
		t.Fatalf("expected the lock to survive the failed purchase")
	}
	var partner models.Partner
	if err := conn.First(&partner, "id = ?", partnerID).Error; err != nil {
		t.Fatalf("reload partner: %v", err)
	}
	if partner.CreditBalancePaise != 100 {
		t.Fatalf("balance must be untouched, got %d", partner.CreditBalancePaise)
	}
}

func TestExpiredLockReturnsLeadToMarketplace(t *testing.T) {
	t.Parallel()

	machine, conn := newTestMachine(t)
	ctx := context.Background()
	order := seedOrder(t, conn, enums.OrderStatusAvailableForPartners, 4000000)
	partnerID := seedPartner(t, conn, 1000000)
	rival := seedPartner(t, conn, 1000000)

	if _, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadLocked,
		Actor:   partnerActor(partnerID),
	}); err != nil {
		t.Fatalf("lock: %v", err)
	}
	backdateLocks(t, conn, order.ID)

	_, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusLeadLocked,
		To:      enums.OrderStatusLeadPurchased,
		Actor:   partnerActor(partnerID),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeLockExpired {
		t.Fatalf("expected LOCK_EXPIRED for stale holder, got %v", err)
	}

	// The sweeper path persists the return to the marketplace.
	expired, err := machine.ExpireLock(ctx, order.ID)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if !expired {
		t.Fatalf("expected the lock to be expired")
	}

	current := reloadOrder(t, conn, order.ID)
	if current.Status != enums.OrderStatusAvailableForPartners {
		t.Fatalf("expected available status, got %s", current.Status)
	}
	if current.PartnerID != nil || current.LockedAt != nil || current.LockExpiresAt != nil {
		t.Fatalf("expected lock fields cleared, got %+v", current)
	}
	notes := historyNotes(t, conn, order.ID)
	if len(notes) == 0 || notes[len(notes)-1] != "Lock expired, lead returned to marketplace" {
		t.Fatalf("expected expiry note, got %v", notes)
	}
	types := outboxEventTypes(t, conn, order.ID)
	if len(types) == 0 || types[len(types)-1] != enums.EventLeadLockExpired {
		t.Fatalf("expected lead_lock_expired event, got %v", types)
	}

	// The lead is up for grabs again.
	if _, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadLocked,
		Actor:   partnerActor(rival),
	}); err != nil {
		t.Fatalf("rival lock after expiry: %v", err)
	}

	// Re-expiring is a no-op.
	expired, err = machine.ExpireLock(ctx, order.ID)
	if err != nil {
		t.Fatalf("re-expire: %v", err)
	}
	if expired {
		t.Fatalf("live lock must not be expired")
	}
}

func TestReleaseAndCancellation(t *testing.T) {
	t.Parallel()

	machine, conn := newTestMachine(t)
	ctx := context.Background()
	order := seedOrder(t, conn, enums.OrderStatusAvailableForPartners, 4000000)
	partnerID := seedPartner(t, conn, 0)
	intruder := seedPartner(t, conn, 0)

	if _, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadLocked,
		Actor:   partnerActor(partnerID),
	}); err != nil {
		t.Fatalf("lock: %v", err)
	}

	_, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusLeadLocked,
		To:      enums.OrderStatusAvailableForPartners,
		Actor:   partnerActor(intruder),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN for non-holder release, got %v", err)
	}

	res, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusLeadLocked,
		To:      enums.OrderStatusAvailableForPartners,
		Actor:   partnerActor(partnerID),
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if res.Order.Status != enums.OrderStatusAvailableForPartners || res.Order.PartnerID != nil {
		t.Fatalf("expected clean return to marketplace, got %+v", res.Order)
	}

	// Customer cancels a re-locked lead; the lock dies with the order.
	if _, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadLocked,
		Actor:   partnerActor(partnerID),
	}); err != nil {
		t.Fatalf("relock: %v", err)
	}
	customerID := order.CustomerID
	res, err = machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusLeadLocked,
		To:      enums.OrderStatusCancelled,
		Actor:   Actor{Type: enums.ActorCustomer, ID: &customerID},
		Updates: map[string]any{"cancellation_reason": "Sold elsewhere"},
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Order.Status != enums.OrderStatusCancelled || res.Order.CancelledAt == nil {
		t.Fatalf("expected cancelled order, got %+v", res.Order)
	}
	if res.Order.CancellationReason == nil || *res.Order.CancellationReason != "Sold elsewhere" {
		t.Fatalf("expected cancellation reason recorded")
	}
	var activeLocks int64
	if err := conn.Model(&models.LeadLock{}).
		Where("order_id = ? AND is_active", order.ID).Count(&activeLocks).Error; err != nil {
		t.Fatalf("count locks: %v", err)
	}
	if activeLocks != 0 {
		t.Fatalf("cancellation must deactivate the lock")
	}
}

func TestAssignmentThroughPaymentFlow(t *testing.T) {
	t.Parallel()

	machine, conn := newTestMachine(t)
	ctx := context.Background()
	partnerID := seedPartner(t, conn, 0)
	agentID := uuid.New()
	replacement := uuid.New()

	order := seedOrder(t, conn, enums.OrderStatusLeadPurchased, 4000000)
	if err := conn.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("partner_id", partnerID).Error; err != nil {
		t.Fatalf("attach partner: %v", err)
	}

	res, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusLeadPurchased,
		To:      enums.OrderStatusAssignedToAgent,
		Actor:   partnerActor(partnerID),
		Updates: map[string]any{"agent_id": agentID},
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if res.Order.AgentID == nil || *res.Order.AgentID != agentID || res.Order.AssignedAt == nil {
		t.Fatalf("expected agent assignment recorded, got %+v", res.Order)
	}

	// Reassignment replaces the agent and resets acceptance.
	res, err = machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAssignedToAgent,
		To:      enums.OrderStatusAssignedToAgent,
		Actor:   partnerActor(partnerID),
		Updates: map[string]any{"agent_id": replacement},
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if res.Order.AgentID == nil || *res.Order.AgentID != replacement {
		t.Fatalf("expected replacement agent, got %+v", res.Order)
	}
	if res.Order.AcceptedAt != nil {
		t.Fatalf("reassignment must reset acceptance")
	}

	res, err = machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAssignedToAgent,
		To:      enums.OrderStatusAcceptedByAgent,
		Actor:   agentActor(replacement),
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.Order.AcceptedAt == nil {
		t.Fatalf("expected accepted_at set")
	}

	pickupDate := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	res, err = machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAcceptedByAgent,
		To:      enums.OrderStatusPickupScheduled,
		Actor:   agentActor(replacement),
		Updates: map[string]any{
			"pickup_date":      pickupDate,
			"pickup_time_slot": "10:00-12:00",
		},
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if res.Order.PickupScheduledAt == nil || res.Order.PickupDate == nil {
		t.Fatalf("expected pickup schedule recorded, got %+v", res.Order)
	}

	res, err = machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusPickupScheduled,
		To:      enums.OrderStatusPickupCompleted,
		Actor:   agentActor(replacement),
		Updates: map[string]any{
			"actual_condition":        "Minor scratches on frame",
			"final_offer_paise":       int64(3800000),
			"customer_accepted_offer": true,
		},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Order.CompletedAt == nil || res.Order.FinalOfferPaise == nil || *res.Order.FinalOfferPaise != 3800000 {
		t.Fatalf("expected pickup outcome recorded, got %+v", res.Order)
	}

	res, err = machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusPickupCompleted,
		To:      enums.OrderStatusPaymentProcessed,
		Actor:   agentActor(replacement),
		Updates: map[string]any{
			"payment_amount_paise": int64(3800000),
			"payment_method":       "upi",
			"payment_reference":    "UPI-88219034",
		},
	})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if res.Order.Status != enums.OrderStatusPaymentProcessed || res.Order.PaymentProcessedAt == nil {
		t.Fatalf("expected payment processed, got %+v", res.Order)
	}

	types := outboxEventTypes(t, conn, order.ID)
	want := []enums.OutboxEventType{
		enums.EventOrderAssigned,
		enums.EventOrderAssigned,
		enums.EventPickupCompleted,
		enums.EventPaymentProcessed,
	}
	if len(types) != len(want) {
		t.Fatalf("unexpected outbox events %v", types)
	}
	for i, eventType := range want {
		if types[i] != eventType {
			t.Fatalf("unexpected outbox events %v", types)
		}
	}
}

func TestDeclinedOfferBlocksPayment(t *testing.T) {
	t.Parallel()

	machine, conn := newTestMachine(t)
	ctx := context.Background()
	partnerID := seedPartner(t, conn, 0)
	agentID := uuid.New()

	order := seedOrder(t, conn, enums.OrderStatusPickupScheduled, 4000000)
	if err := conn.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]any{"partner_id": partnerID, "agent_id": agentID}).Error; err != nil {
		t.Fatalf("attach partner and agent: %v", err)
	}

	res, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusPickupScheduled,
		To:      enums.OrderStatusPickupCompletedDeclined,
		Actor:   agentActor(agentID),
		Updates: map[string]any{
			"actual_condition":        "Screen cracked, undisclosed",
			"final_offer_paise":       int64(2500000),
			"customer_accepted_offer": false,
		},
	})
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if res.Order.Status != enums.OrderStatusPickupCompletedDeclined {
		t.Fatalf("expected declined status, got %s", res.Order.Status)
	}
	if !res.Order.Status.IsTerminal() {
		t.Fatalf("declined pickup must be terminal")
	}

	_, err = machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusPickupCompletedDeclined,
		To:      enums.OrderStatusPaymentProcessed,
		Actor:   agentActor(agentID),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT after decline, got %v", err)
	}
}

func TestActorAndStatusGuards(t *testing.T) {
	t.Parallel()

	machine, conn := newTestMachine(t)
	ctx := context.Background()
	order := seedOrder(t, conn, enums.OrderStatusAvailableForPartners, 4000000)
	partnerID := seedPartner(t, conn, 0)
	customerID := order.CustomerID

	// Only partners lock leads.
	_, err := machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadLocked,
		Actor:   Actor{Type: enums.ActorCustomer, ID: &customerID},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN for customer lock, got %v", err)
	}

	// Purchasing without a lock is not a legal edge.
	_, err = machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadPurchased,
		Actor:   partnerActor(partnerID),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT for illegal edge, got %v", err)
	}

	// A stale expected status is reported with the current one.
	_, err = machine.Transition(ctx, TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusLeadLocked,
		To:      enums.OrderStatusLeadPurchased,
		Actor:   partnerActor(partnerID),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT for stale view, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["current_status"] != enums.OrderStatusAvailableForPartners {
		t.Fatalf("expected current_status detail, got %v", typed.Details())
	}

	_, err = machine.Transition(ctx, TransitionInput{
		OrderID: uuid.New(),
		From:    enums.OrderStatusAvailableForPartners,
		To:      enums.OrderStatusLeadLocked,
		Actor:   partnerActor(partnerID),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for unknown order, got %v", err)
	}
}

package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/internal/history"
	"github.com/rahulbagri/phonelot-backend/internal/ledger"
	"github.com/rahulbagri/phonelot-backend/internal/locks"
	"github.com/rahulbagri/phonelot-backend/internal/pricing"
	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
	"github.com/rahulbagri/phonelot-backend/pkg/logger"
	"github.com/rahulbagri/phonelot-backend/pkg/outbox"
)

const lockExpiredNote = "Lock expired, lead returned to marketplace"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Actor identifies who drives a transition.
type Actor struct {
	Type enums.ActorType
	ID   *uuid.UUID
}

// TransitionInput describes one requested status change. Updates carries edge
// specific column writes, the pickup payload for instance; the machine adds
// status and timestamp columns on top.
type TransitionInput struct {
	OrderID uuid.UUID
	From    enums.OrderStatus
	To      enums.OrderStatus
	Actor   Actor
	Note    string
	Updates map[string]any
}

// Result reports the transitioned order plus any artifacts the edge produced.
type Result struct {
	Order       *models.Order
	Lock        *models.LeadLock
	Transaction *models.CreditTransaction
}

// Machine owns every order status change. Each transition runs in a single
// transaction: the guarded status write, lock and ledger side effects, the
// history row and the outbox event commit or roll back together.
type Machine struct {
	orders OrdersRepository
	locks  locks.Manager
	credit ledger.Service
	trail  history.Recorder
	events *outbox.Service
	policy *pricing.Policy
	tx     txRunner
	logg   *logger.Logger
}

// NewMachine wires the state machine with its collaborators.
func NewMachine(
	orders OrdersRepository,
	lockMgr locks.Manager,
	credit ledger.Service,
	trail history.Recorder,
	events *outbox.Service,
	policy *pricing.Policy,
	tx txRunner,
	logg *logger.Logger,
) (*Machine, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if lockMgr == nil {
		return nil, fmt.Errorf("lock manager required")
	}
	if credit == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if trail == nil {
		return nil, fmt.Errorf("history recorder required")
	}
	if policy == nil {
		return nil, fmt.Errorf("pricing policy required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Machine{
		orders: orders,
		locks:  lockMgr,
		credit: credit,
		trail:  trail,
		events: events,
		policy: policy,
		tx:     tx,
		logg:   logg,
	}, nil
}

// Transition runs TransitionTx inside its own transaction.
func (m *Machine) Transition(ctx context.Context, input TransitionInput) (*Result, error) {
	var res *Result
	err := m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r, err := m.TransitionTx(ctx, tx, input)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// TransitionTx performs one status change inside the caller's transaction.
// Expired locks are healed before the requested edge is evaluated, so a stale
// holder observes LOCK_EXPIRED instead of acting on a lead it no longer owns.
func (m *Machine) TransitionTx(ctx context.Context, tx *gorm.DB, input TransitionInput) (*Result, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.From.IsValid() || !input.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if !input.Actor.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid actor type")
	}

	repo := m.orders.WithTx(tx)
	order, err := repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	if order.Status == enums.OrderStatusLeadLocked {
		expired, err := m.expireLockedTx(ctx, tx, order)
		if err != nil {
			return nil, err
		}
		if expired {
			if input.From == enums.OrderStatusLeadLocked && input.Actor.Type != enums.ActorSystem {
				return nil, pkgerrors.New(pkgerrors.CodeLockExpired, "lock expired, lead returned to marketplace")
			}
			order, err = repo.FindByID(ctx, input.OrderID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			if order == nil {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
		}
	}

	if order.Status != input.From {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in the expected status").
			WithDetails(map[string]any{
				"current_status":  order.Status,
				"expected_status": input.From,
			})
	}
	if !EdgeAllowed(input.From, input.To) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", input.From, input.To)).
			WithDetails(map[string]any{"current_status": order.Status})
	}
	if !ActorAllowed(input.From, input.To, input.Actor.Type) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			fmt.Sprintf("%s may not move order from %s to %s", input.Actor.Type, input.From, input.To))
	}

	now := time.Now().UTC()
	updates := make(map[string]any, len(input.Updates)+4)
	for column, value := range input.Updates {
		updates[column] = value
	}
	updates["status"] = input.To

	res := &Result{}
	if err := m.applyEdgeEffects(ctx, tx, order, input, updates, res, now); err != nil {
		return nil, err
	}

	affected, err := repo.UpdateGuarded(ctx, input.OrderID, input.From, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if affected == 0 {
		current, reloadErr := repo.FindByID(ctx, input.OrderID)
		if reloadErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, reloadErr, "reload order")
		}
		if current == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently").
			WithDetails(map[string]any{"current_status": current.Status})
	}

	note := input.Note
	if note == "" {
		note = defaultNote(input.From, input.To)
	}
	from := input.From
	if err := m.trail.AppendTx(ctx, tx, history.Entry{
		OrderID:    order.ID,
		FromStatus: &from,
		ToStatus:   input.To,
		ActorType:  input.Actor.Type,
		ActorID:    input.Actor.ID,
		Notes:      note,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}

	if err := m.emitEdgeEvent(ctx, tx, order, input, res, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue outbox event")
	}

	updated, err := repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	res.Order = updated

	if m.logg != nil {
		logCtx := m.logg.WithOrderID(ctx, order.ID.String())
		m.logg.Info(logCtx, fmt.Sprintf("order moved from %s to %s by %s", input.From, input.To, input.Actor.Type))
	}
	return res, nil
}

// ExpireLock heals one order whose lock TTL lapsed, returning it to the
// marketplace. The sweeper calls this per order; API reads hit the same path
// lazily through TransitionTx.
func (m *Machine) ExpireLock(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var expired bool
	err := m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := m.orders.WithTx(tx).FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil || order.Status != enums.OrderStatusLeadLocked {
			return nil
		}
		done, err := m.expireLockedTx(ctx, tx, order)
		if err != nil {
			return err
		}
		expired = done
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

func (m *Machine) expireLockedTx(ctx context.Context, tx *gorm.DB, order *models.Order) (bool, error) {
	expired, err := m.locks.ExpireTx(ctx, tx, order.ID)
	if err != nil {
		return false, err
	}
	if !expired {
		return false, nil
	}

	repo := m.orders.WithTx(tx)
	affected, err := repo.UpdateGuarded(ctx, order.ID, enums.OrderStatusLeadLocked, map[string]any{
		"status":          enums.OrderStatusAvailableForPartners,
		"partner_id":      nil,
		"locked_at":       nil,
		"lock_expires_at": nil,
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return lead to marketplace")
	}
	if affected == 0 {
		return false, nil
	}

	from := enums.OrderStatusLeadLocked
	if err := m.trail.AppendTx(ctx, tx, history.Entry{
		OrderID:    order.ID,
		FromStatus: &from,
		ToStatus:   enums.OrderStatusAvailableForPartners,
		ActorType:  enums.ActorSystem,
		Notes:      lockExpiredNote,
	}); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}

	if m.events != nil {
		data := map[string]any{"order_id": order.ID}
		if order.PartnerID != nil {
			data["partner_id"] = *order.PartnerID
		}
		err := m.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLeadLockExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{Role: string(enums.ActorSystem)},
			Data:          data,
			Version:       1,
		})
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue outbox event")
		}
	}

	if m.logg != nil {
		logCtx := m.logg.WithOrderID(ctx, order.ID.String())
		m.logg.Info(logCtx, "expired lock released, lead returned to marketplace")
	}
	return true, nil
}

func (m *Machine) applyEdgeEffects(ctx context.Context, tx *gorm.DB, order *models.Order, input TransitionInput, updates map[string]any, res *Result, now time.Time) error {
	from, to := input.From, input.To
	switch {
	case from == enums.OrderStatusAvailableForPartners && to == enums.OrderStatusLeadLocked:
		if input.Actor.ID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "partner id is required to lock a lead")
		}
		acquired, err := m.locks.AcquireTx(ctx, tx, order.ID, *input.Actor.ID)
		if err != nil {
			return err
		}
		res.Lock = acquired.Lock
		updates["partner_id"] = *input.Actor.ID
		updates["locked_at"] = acquired.Lock.GrantedAt
		updates["lock_expires_at"] = acquired.Lock.ExpiresAt

	case from == enums.OrderStatusLeadLocked && to == enums.OrderStatusAvailableForPartners:
		if input.Actor.Type == enums.ActorPartner {
			if input.Actor.ID == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "partner id is required to release a lock")
			}
			released, err := m.locks.ReleaseTx(ctx, tx, order.ID, *input.Actor.ID)
			if err != nil {
				return err
			}
			res.Lock = released
		} else if err := m.locks.DeactivateAllTx(ctx, tx, order.ID); err != nil {
			return err
		}
		updates["partner_id"] = nil
		updates["locked_at"] = nil
		updates["lock_expires_at"] = nil

	case from == enums.OrderStatusLeadLocked && to == enums.OrderStatusLeadPurchased:
		if input.Actor.ID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "partner id is required to purchase a lead")
		}
		consumed, err := m.locks.ConsumeTx(ctx, tx, order.ID, *input.Actor.ID)
		if err != nil {
			return err
		}
		res.Lock = consumed
		cost, err := m.policy.LeadCost(order.QuotedPricePaise)
		if err != nil {
			return err
		}
		if cost > 0 {
			referenceType := "order"
			txn, err := m.credit.ApplyTx(ctx, tx, ledger.ApplyInput{
				PartnerID:     *input.Actor.ID,
				AmountPaise:   -cost,
				Type:          enums.TransactionLeadPurchase,
				ReferenceID:   &order.ID,
				ReferenceType: &referenceType,
				ActorType:     input.Actor.Type,
				ActorID:       input.Actor.ID,
				Notes:         fmt.Sprintf("Lead purchase for order %s", order.ID),
			})
			if err != nil {
				return err
			}
			res.Transaction = txn
		}
		updates["partner_id"] = *input.Actor.ID
		updates["purchased_at"] = now
		updates["lock_expires_at"] = nil

	case to == enums.OrderStatusAssignedToAgent:
		if agentID, ok := updates["agent_id"]; !ok || agentID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "agent id is required for assignment")
		}
		updates["assigned_at"] = now
		updates["accepted_at"] = nil

	case from == enums.OrderStatusAssignedToAgent && to == enums.OrderStatusAcceptedByAgent:
		updates["accepted_at"] = now

	case from == enums.OrderStatusAcceptedByAgent && to == enums.OrderStatusPickupScheduled:
		updates["pickup_scheduled_at"] = now

	case to == enums.OrderStatusPickupCompleted || to == enums.OrderStatusPickupCompletedDeclined:
		updates["completed_at"] = now

	case to == enums.OrderStatusPaymentProcessed:
		if order.CustomerAcceptedOffer == nil || !*order.CustomerAcceptedOffer {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "customer did not accept the final offer")
		}
		updates["payment_processed_at"] = now

	case to == enums.OrderStatusCancelled:
		if order.Status == enums.OrderStatusLeadLocked {
			if err := m.locks.DeactivateAllTx(ctx, tx, order.ID); err != nil {
				return err
			}
		}
		updates["cancelled_at"] = now
	}
	return nil
}

func (m *Machine) emitEdgeEvent(ctx context.Context, tx *gorm.DB, order *models.Order, input TransitionInput, res *Result, now time.Time) error {
	if m.events == nil {
		return nil
	}

	var eventType enums.OutboxEventType
	data := map[string]any{
		"order_id": order.ID,
		"status":   input.To,
	}
	switch {
	case input.From == enums.OrderStatusLeadCreated && input.To == enums.OrderStatusAvailableForPartners:
		eventType = enums.EventLeadAvailable
		data["pickup_pincode"] = order.PickupPincode
	case input.To == enums.OrderStatusLeadPurchased:
		eventType = enums.EventLeadPurchased
		if input.Actor.ID != nil {
			data["partner_id"] = *input.Actor.ID
		}
		if res.Transaction != nil {
			data["lead_cost_paise"] = -res.Transaction.AmountPaise
		}
	case input.To == enums.OrderStatusAssignedToAgent:
		eventType = enums.EventOrderAssigned
		if agentID, ok := input.Updates["agent_id"]; ok {
			data["agent_id"] = agentID
		}
	case input.To == enums.OrderStatusPickupCompleted || input.To == enums.OrderStatusPickupCompletedDeclined:
		eventType = enums.EventPickupCompleted
		data["customer_accepted_offer"] = input.To == enums.OrderStatusPickupCompleted
	case input.To == enums.OrderStatusPaymentProcessed:
		eventType = enums.EventPaymentProcessed
	case input.To == enums.OrderStatusCancelled:
		eventType = enums.EventOrderCancelled
	default:
		return nil
	}

	return m.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{ActorID: input.Actor.ID, Role: string(input.Actor.Type)},
		Data:          data,
		Version:       1,
		OccurredAt:    now,
	})
}

package marketplace

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/internal/history"
	"github.com/rahulbagri/phonelot-backend/internal/lifecycle"
	"github.com/rahulbagri/phonelot-backend/internal/locks"
	"github.com/rahulbagri/phonelot-backend/internal/partners"
	"github.com/rahulbagri/phonelot-backend/internal/pricing"
	"github.com/rahulbagri/phonelot-backend/internal/serviceability"
	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
	"github.com/rahulbagri/phonelot-backend/pkg/logger"
	"github.com/rahulbagri/phonelot-backend/pkg/money"
	"github.com/rahulbagri/phonelot-backend/pkg/outbox"
	"github.com/rahulbagri/phonelot-backend/pkg/pagination"
)

// expiredSweepBatch caps how many lapsed locks a marketplace read heals
// inline before deferring the rest to the background sweeper.
const expiredSweepBatch = 25

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the marketplace facade: customer submissions, the partner lead
// flow from browsing through purchase, agent pickup execution and the shared
// audit timeline.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	GetOrder(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) (*models.Order, error)
	Timeline(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) ([]models.OrderStatusHistory, error)
	CancelOrder(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, reason string) (*models.Order, error)

	ListAvailableLeads(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*LeadList, error)
	GetLeadForPartner(ctx context.Context, partnerID, orderID uuid.UUID) (*LeadDetail, error)
	AcquireLock(ctx context.Context, partnerID, orderID uuid.UUID) (*LockResult, error)
	ReleaseLock(ctx context.Context, partnerID, orderID uuid.UUID) (*models.Order, error)
	PurchaseLead(ctx context.Context, partnerID, orderID uuid.UUID) (*PurchaseResult, error)
	AssignAgent(ctx context.Context, partnerID, orderID, agentID uuid.UUID) (*models.Order, error)
	ReassignAgent(ctx context.Context, partnerID, orderID, agentID uuid.UUID) (*models.Order, error)

	AcceptAssignment(ctx context.Context, agentID, orderID uuid.UUID) (*models.Order, error)
	SchedulePickup(ctx context.Context, agentID, orderID uuid.UUID, input SchedulePickupInput) (*models.Order, error)
	CompletePickup(ctx context.Context, agentID, orderID uuid.UUID, input CompletePickupInput) (*models.Order, error)
	ProcessPayment(ctx context.Context, agentID, orderID uuid.UUID, input ProcessPaymentInput) (*models.Order, error)

	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListPartnerOrders(ctx context.Context, partnerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) (*OrderList, error)
	ListAgentOrders(ctx context.Context, agentID uuid.UUID, status *enums.OrderStatus, params pagination.Params) (*OrderList, error)
}

type service struct {
	repo     Repository
	partners partners.Repository
	machine  *lifecycle.Machine
	locks    locks.Manager
	coverage serviceability.Index
	trail    history.Recorder
	events   *outbox.Service
	policy   *pricing.Policy
	tx       txRunner
	logg     *logger.Logger
}

// NewService wires the marketplace facade with its collaborators.
func NewService(
	repo Repository,
	partnerRepo partners.Repository,
	machine *lifecycle.Machine,
	lockMgr locks.Manager,
	coverage serviceability.Index,
	trail history.Recorder,
	events *outbox.Service,
	policy *pricing.Policy,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("marketplace repository required")
	}
	if partnerRepo == nil {
		return nil, fmt.Errorf("partners repository required")
	}
	if machine == nil {
		return nil, fmt.Errorf("state machine required")
	}
	if lockMgr == nil {
		return nil, fmt.Errorf("lock manager required")
	}
	if coverage == nil {
		return nil, fmt.Errorf("serviceability index required")
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
	return &service{
		repo:     repo,
		partners: partnerRepo,
		machine:  machine,
		locks:    lockMgr,
		coverage: coverage,
		trail:    trail,
		events:   events,
		policy:   policy,
		tx:       tx,
		logg:     logg,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if err := validateCreateOrder(input); err != nil {
		return nil, err
	}

	servicing, err := s.coverage.ServicingPartnerCount(ctx, input.PickupPincode)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:                uuid.New(),
		CustomerID:        input.CustomerID,
		PhoneName:         input.PhoneName,
		Brand:             input.Brand,
		Model:             input.Model,
		RAMGB:             input.RAMGB,
		StorageGB:         input.StorageGB,
		Variant:           input.Variant,
		ConditionAnswers:  input.ConditionAnswers,
		QuotedPricePaise:  input.QuotedPricePaise,
		CustomerName:      input.CustomerName,
		CustomerPhone:     input.CustomerPhone,
		CustomerEmail:     input.CustomerEmail,
		PickupAddressLine: input.PickupAddressLine,
		PickupCity:        input.PickupCity,
		PickupState:       input.PickupState,
		PickupPincode:     input.PickupPincode,
		Status:            enums.OrderStatusLeadCreated,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		customerID := input.CustomerID
		if err := s.trail.AppendTx(ctx, tx, history.Entry{
			OrderID:   order.ID,
			ToStatus:  enums.OrderStatusLeadCreated,
			ActorType: enums.ActorCustomer,
			ActorID:   &customerID,
			Notes:     "Order created",
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}
		if s.events != nil {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventLeadCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{ActorID: &customerID, Role: string(enums.ActorCustomer)},
				Data: map[string]any{
					"order_id":           order.ID,
					"pickup_pincode":     order.PickupPincode,
					"quoted_price_paise": order.QuotedPricePaise,
				},
				Version: 1,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue outbox event")
			}
		}
		if servicing == 0 {
			// No partner covers this pincode yet. The order stays in
			// lead_created until coverage appears or the customer cancels.
			return nil
		}
		res, err := s.machine.TransitionTx(ctx, tx, lifecycle.TransitionInput{
			OrderID: order.ID,
			From:    enums.OrderStatusLeadCreated,
			To:      enums.OrderStatusAvailableForPartners,
			Actor:   lifecycle.Actor{Type: enums.ActorSystem},
		})
		if err != nil {
			return err
		}
		order = res.Order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateOrderResult{
		Order:             order,
		Serviceable:       servicing > 0,
		ServicingPartners: servicing,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrderAccess(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Timeline(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrderAccess(order, actor); err != nil {
		return nil, err
	}
	rows, err := s.trail.Timeline(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load timeline")
	}
	return rows, nil
}

func (s *service) CancelOrder(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrderAccess(order, actor); err != nil {
		return nil, err
	}
	res, err := s.machine.Transition(ctx, lifecycle.TransitionInput{
		OrderID: orderID,
		From:    order.Status,
		To:      enums.OrderStatusCancelled,
		Actor:   actor,
		Updates: map[string]any{"cancellation_reason": reason},
	})
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

func (s *service) ListAvailableLeads(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*LeadList, error) {
	if _, err := partners.RequireApproved(ctx, s.partners, partnerID); err != nil {
		return nil, err
	}
	pincodes, err := s.coverage.PartnerPincodes(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if len(pincodes) == 0 {
		return &LeadList{Leads: []LeadSummary{}}, nil
	}

	s.sweepExpiredLocks(ctx)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListAvailable(ctx, pincodes, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available leads")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	leads := make([]LeadSummary, 0, len(rows))
	for _, row := range rows {
		leads = append(leads, s.leadSummary(row))
	}
	return &LeadList{Leads: leads, NextCursor: next}, nil
}

func (s *service) GetLeadForPartner(ctx context.Context, partnerID, orderID uuid.UUID) (*LeadDetail, error) {
	if _, err := partners.RequireApproved(ctx, s.partners, partnerID); err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case enums.OrderStatusAvailableForPartners:
		return s.leadDetail(*order, false, nil), nil
	case enums.OrderStatusLeadLocked:
		live, err := s.locks.Live(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if live == nil {
			// The lock lapsed; heal the order before serving it.
			if _, err := s.machine.ExpireLock(ctx, orderID); err != nil {
				return nil, err
			}
			healed, err := s.loadOrder(ctx, orderID)
			if err != nil {
				return nil, err
			}
			return s.leadDetail(*healed, false, nil), nil
		}
		until := live.ExpiresAt
		if live.PartnerID == partnerID {
			return s.leadDetail(*order, true, &until), nil
		}
		return s.leadDetail(*order, false, &until), nil
	default:
		if order.PartnerID != nil && *order.PartnerID == partnerID {
			return s.leadDetail(*order, true, nil), nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
}

func (s *service) AcquireLock(ctx context.Context, partnerID, orderID uuid.UUID) (*LockResult, error) {
	if _, err := partners.RequireApproved(ctx, s.partners, partnerID); err != nil {
		return nil, err
	}

	result := &LockResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
		}
		services, err := s.coverage.PartnerServices(ctx, partnerID, order.PickupPincode)
		if err != nil {
			return err
		}
		if !services {
			return pkgerrors.New(pkgerrors.CodeForbidden, "lead is outside the partner's service area")
		}

		if order.Status == enums.OrderStatusLeadLocked {
			live, err := s.locks.LiveTx(ctx, tx, orderID)
			if err != nil {
				return err
			}
			if live != nil && live.PartnerID == partnerID {
				// Idempotent re-lock extends the window.
				acquired, err := s.locks.AcquireTx(ctx, tx, orderID, partnerID)
				if err != nil {
					return err
				}
				if _, err := repo.UpdateLockExpiry(ctx, orderID, acquired.Lock.ExpiresAt); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend order lock expiry")
				}
				renewed, err := repo.FindOrder(ctx, orderID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
				}
				result.Order = renewed
				result.Lock = acquired.Lock
				result.LockedUntil = acquired.Lock.ExpiresAt
				result.Renewed = true
				return nil
			}
			if live != nil {
				return pkgerrors.New(pkgerrors.CodeConflict, "lead is locked by another partner").
					WithDetails(map[string]any{"locked_until": live.ExpiresAt.UTC()})
			}
			// Lapsed lock: the machine heals it on entry and the acquisition
			// below proceeds against the available state.
		}

		res, err := s.machine.TransitionTx(ctx, tx, lifecycle.TransitionInput{
			OrderID: orderID,
			From:    enums.OrderStatusAvailableForPartners,
			To:      enums.OrderStatusLeadLocked,
			Actor:   lifecycle.Actor{Type: enums.ActorPartner, ID: &partnerID},
		})
		if err != nil {
			return err
		}
		result.Order = res.Order
		result.Lock = res.Lock
		result.LockedUntil = res.Lock.ExpiresAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ReleaseLock(ctx context.Context, partnerID, orderID uuid.UUID) (*models.Order, error) {
	res, err := s.machine.Transition(ctx, lifecycle.TransitionInput{
		OrderID: orderID,
		From:    enums.OrderStatusLeadLocked,
		To:      enums.OrderStatusAvailableForPartners,
		Actor:   lifecycle.Actor{Type: enums.ActorPartner, ID: &partnerID},
	})
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

func (s *service) PurchaseLead(ctx context.Context, partnerID, orderID uuid.UUID) (*PurchaseResult, error) {
	if _, err := partners.RequireApproved(ctx, s.partners, partnerID); err != nil {
		return nil, err
	}
	res, err := s.machine.Transition(ctx, lifecycle.TransitionInput{
		OrderID: orderID,
		From:    enums.OrderStatusLeadLocked,
		To:      enums.OrderStatusLeadPurchased,
		Actor:   lifecycle.Actor{Type: enums.ActorPartner, ID: &partnerID},
	})
	if err != nil {
		return nil, err
	}

	purchase := &PurchaseResult{Order: res.Order, Transaction: res.Transaction}
	if res.Transaction != nil {
		purchase.BalanceAfterPaise = res.Transaction.BalanceAfterPaise
		purchase.LeadCostPaise = -res.Transaction.AmountPaise
	} else {
		partner, err := s.partners.FindByID(ctx, partnerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
		}
		if partner != nil {
			purchase.BalanceAfterPaise = partner.CreditBalancePaise
		}
	}
	purchase.BalanceAfterDisplay = money.FormatPaise(purchase.BalanceAfterPaise)
	purchase.LeadCostDisplay = money.FormatPaise(purchase.LeadCostPaise)
	return purchase, nil
}

func (s *service) AssignAgent(ctx context.Context, partnerID, orderID, agentID uuid.UUID) (*models.Order, error) {
	agent, err := s.partnerAgent(ctx, partnerID, agentID)
	if err != nil {
		return nil, err
	}
	order, err := s.partnerOrder(ctx, partnerID, orderID)
	if err != nil {
		return nil, err
	}
	res, err := s.machine.Transition(ctx, lifecycle.TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusLeadPurchased,
		To:      enums.OrderStatusAssignedToAgent,
		Actor:   lifecycle.Actor{Type: enums.ActorPartner, ID: &partnerID},
		Updates: map[string]any{"agent_id": agent.ID},
	})
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

func (s *service) ReassignAgent(ctx context.Context, partnerID, orderID, agentID uuid.UUID) (*models.Order, error) {
	agent, err := s.partnerAgent(ctx, partnerID, agentID)
	if err != nil {
		return nil, err
	}
	order, err := s.partnerOrder(ctx, partnerID, orderID)
	if err != nil {
		return nil, err
	}
	res, err := s.machine.Transition(ctx, lifecycle.TransitionInput{
		OrderID: order.ID,
		From:    order.Status,
		To:      enums.OrderStatusAssignedToAgent,
		Actor:   lifecycle.Actor{Type: enums.ActorPartner, ID: &partnerID},
		Updates: map[string]any{"agent_id": agent.ID},
	})
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

func (s *service) AcceptAssignment(ctx context.Context, agentID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.agentOrder(ctx, agentID, orderID)
	if err != nil {
		return nil, err
	}
	res, err := s.machine.Transition(ctx, lifecycle.TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusAssignedToAgent,
		To:      enums.OrderStatusAcceptedByAgent,
		Actor:   lifecycle.Actor{Type: enums.ActorAgent, ID: &agentID},
	})
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

func (s *service) SchedulePickup(ctx context.Context, agentID, orderID uuid.UUID, input SchedulePickupInput) (*models.Order, error) {
	if input.PickupDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup date is required")
	}
	if strings.TrimSpace(input.PickupTimeSlot) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup time slot is required")
	}
	order, err := s.agentOrder(ctx, agentID, orderID)
	if err != nil {
		return nil, err
	}

	var scheduled *models.Order
	actor := lifecycle.Actor{Type: enums.ActorAgent, ID: &agentID}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// Scheduling straight from assignment accepts it implicitly.
		if order.Status == enums.OrderStatusAssignedToAgent {
			if _, err := s.machine.TransitionTx(ctx, tx, lifecycle.TransitionInput{
				OrderID: order.ID,
				From:    enums.OrderStatusAssignedToAgent,
				To:      enums.OrderStatusAcceptedByAgent,
				Actor:   actor,
			}); err != nil {
				return err
			}
		}
		res, err := s.machine.TransitionTx(ctx, tx, lifecycle.TransitionInput{
			OrderID: order.ID,
			From:    enums.OrderStatusAcceptedByAgent,
			To:      enums.OrderStatusPickupScheduled,
			Actor:   actor,
			Updates: map[string]any{
				"pickup_date":      input.PickupDate,
				"pickup_time_slot": input.PickupTimeSlot,
			},
		})
		if err != nil {
			return err
		}
		scheduled = res.Order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scheduled, nil
}

func (s *service) CompletePickup(ctx context.Context, agentID, orderID uuid.UUID, input CompletePickupInput) (*models.Order, error) {
	if strings.TrimSpace(input.ActualCondition) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actual condition is required")
	}
	if input.FinalOfferPaise < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "final offer must not be negative")
	}
	order, err := s.agentOrder(ctx, agentID, orderID)
	if err != nil {
		return nil, err
	}

	to := enums.OrderStatusPickupCompletedDeclined
	if input.CustomerAcceptedOffer {
		to = enums.OrderStatusPickupCompleted
	}
	res, err := s.machine.Transition(ctx, lifecycle.TransitionInput{
		OrderID: order.ID,
		From:    order.Status,
		To:      to,
		Actor:   lifecycle.Actor{Type: enums.ActorAgent, ID: &agentID},
		Updates: map[string]any{
			"actual_condition":        input.ActualCondition,
			"final_offer_paise":       input.FinalOfferPaise,
			"customer_accepted_offer": input.CustomerAcceptedOffer,
			"pickup_notes":            input.PickupNotes,
		},
	})
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

func (s *service) ProcessPayment(ctx context.Context, agentID, orderID uuid.UUID, input ProcessPaymentInput) (*models.Order, error) {
	if input.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(input.Method) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	order, err := s.agentOrder(ctx, agentID, orderID)
	if err != nil {
		return nil, err
	}
	res, err := s.machine.Transition(ctx, lifecycle.TransitionInput{
		OrderID: order.ID,
		From:    enums.OrderStatusPickupCompleted,
		To:      enums.OrderStatusPaymentProcessed,
		Actor:   lifecycle.Actor{Type: enums.ActorAgent, ID: &agentID},
		Updates: map[string]any{
			"payment_amount_paise": input.AmountPaise,
			"payment_method":       input.Method,
			"payment_reference":    input.Reference,
			"payment_notes":        input.Notes,
		},
	})
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

func (s *service) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return s.listOrders(ctx, params, func(limit int, cursor *pagination.Cursor) ([]models.Order, error) {
		return s.repo.ListByCustomer(ctx, customerID, limit, cursor)
	})
}

func (s *service) ListPartnerOrders(ctx context.Context, partnerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner id is required")
	}
	return s.listOrders(ctx, params, func(limit int, cursor *pagination.Cursor) ([]models.Order, error) {
		return s.repo.ListByPartner(ctx, partnerID, status, limit, cursor)
	})
}

func (s *service) ListAgentOrders(ctx context.Context, agentID uuid.UUID, status *enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id is required")
	}
	return s.listOrders(ctx, params, func(limit int, cursor *pagination.Cursor) ([]models.Order, error) {
		return s.repo.ListByAgent(ctx, agentID, status, limit, cursor)
	})
}

func (s *service) listOrders(ctx context.Context, params pagination.Params, query func(limit int, cursor *pagination.Cursor) ([]models.Order, error)) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := query(limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &OrderList{Orders: rows, NextCursor: next}, nil
}

// sweepExpiredLocks heals a bounded batch of lapsed locks so marketplace
// listings never show a lead as locked longer than its TTL. Failures are
// logged and left for the background sweeper.
func (s *service) sweepExpiredLocks(ctx context.Context) {
	ids, err := s.locks.ExpiredOrderIDs(ctx, expiredSweepBatch)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("listing expired locks failed: %v", err))
		}
		return
	}
	for _, id := range ids {
		if _, err := s.machine.ExpireLock(ctx, id); err != nil && s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, id.String())
			s.logg.Warn(logCtx, fmt.Sprintf("expiring lock failed: %v", err))
		}
	}
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) partnerOrder(ctx context.Context, partnerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PartnerID == nil || *order.PartnerID != partnerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to the partner")
	}
	return order, nil
}

func (s *service) agentOrder(ctx context.Context, agentID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.AgentID == nil || *order.AgentID != agentID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to the agent")
	}
	return order, nil
}

func (s *service) partnerAgent(ctx context.Context, partnerID, agentID uuid.UUID) (*models.Agent, error) {
	agent, err := s.partners.FindAgentForPartner(ctx, partnerID, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if agent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
	}
	if !agent.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "agent account is inactive")
	}
	return agent, nil
}

func authorizeOrderAccess(order *models.Order, actor lifecycle.Actor) error {
	switch actor.Type {
	case enums.ActorAdmin, enums.ActorSystem:
		return nil
	case enums.ActorCustomer:
		if actor.ID != nil && order.CustomerID == *actor.ID {
			return nil
		}
	case enums.ActorPartner:
		if actor.ID != nil && order.PartnerID != nil && *order.PartnerID == *actor.ID {
			return nil
		}
	case enums.ActorAgent:
		if actor.ID != nil && order.AgentID != nil && *order.AgentID == *actor.ID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order access denied")
}

func validateCreateOrder(input CreateOrderInput) error {
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if strings.TrimSpace(input.PhoneName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone name is required")
	}
	if input.QuotedPricePaise <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quoted price must be positive")
	}
	if strings.TrimSpace(input.CustomerName) == "" || strings.TrimSpace(input.CustomerPhone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name and phone are required")
	}
	if strings.TrimSpace(input.PickupAddressLine) == "" ||
		strings.TrimSpace(input.PickupCity) == "" ||
		strings.TrimSpace(input.PickupState) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup address is required")
	}
	if !validPincode(input.PickupPincode) {
		return pkgerrors.New(pkgerrors.CodeValidation, "pickup pincode must be six digits")
	}
	return nil
}

func validPincode(pincode string) bool {
	if len(pincode) != 6 {
		return false
	}
	for _, r := range pincode {
		if r < '0' || r > '9' {
			return false
		}
	}
	return pincode[0] != '0'
}

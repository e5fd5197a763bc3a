package credits

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/internal/ledger"
	"github.com/rahulbagri/phonelot-backend/internal/partners"
	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
	"github.com/rahulbagri/phonelot-backend/pkg/logger"
	"github.com/rahulbagri/phonelot-backend/pkg/money"
	"github.com/rahulbagri/phonelot-backend/pkg/outbox"
	"github.com/rahulbagri/phonelot-backend/pkg/pagination"
)

const planReferenceType = "credit_plan"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PurchaseResult reports the applied top-up, its bonus and the new balance.
type PurchaseResult struct {
	Plan                *models.CreditPlan         `json:"plan"`
	Transactions        []models.CreditTransaction `json:"transactions"`
	CreditedPaise       int64                      `json:"credited_paise"`
	BonusPaise          int64                      `json:"bonus_paise"`
	BalanceAfterPaise   int64                      `json:"balance_after_paise"`
	BalanceAfterDisplay string                     `json:"balance_after_display"`
}

// BalanceResult is the partner's current credit balance.
type BalanceResult struct {
	BalancePaise   int64  `json:"balance_paise"`
	BalanceDisplay string `json:"balance_display"`
}

// TransactionList wraps paginated ledger rows plus the next page cursor.
type TransactionList struct {
	Transactions []models.CreditTransaction `json:"transactions"`
	NextCursor   string                     `json:"next_cursor,omitempty"`
}

// Service handles credit plan browsing and prepaid top-ups. Every balance
// change flows through the ledger so the transaction log stays authoritative.
type Service interface {
	ListPlans(ctx context.Context) ([]models.CreditPlan, error)
	PurchaseCredits(ctx context.Context, partnerID, planID uuid.UUID) (*PurchaseResult, error)
	Balance(ctx context.Context, partnerID uuid.UUID) (*BalanceResult, error)
	ListTransactions(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*TransactionList, error)
}

type service struct {
	partners partners.Repository
	credit   ledger.Service
	events   *outbox.Service
	tx       txRunner
	logg     *logger.Logger
}

// NewService wires the credits service with its collaborators.
func NewService(partnerRepo partners.Repository, credit ledger.Service, events *outbox.Service, tx txRunner, logg *logger.Logger) (Service, error) {
	if partnerRepo == nil {
		return nil, fmt.Errorf("partners repository required")
	}
	if credit == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		partners: partnerRepo,
		credit:   credit,
		events:   events,
		tx:       tx,
		logg:     logg,
	}, nil
}

func (s *service) ListPlans(ctx context.Context) ([]models.CreditPlan, error) {
	plans, err := s.partners.ListPlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credit plans")
	}
	return plans, nil
}

func (s *service) PurchaseCredits(ctx context.Context, partnerID, planID uuid.UUID) (*PurchaseResult, error) {
	if _, err := partners.RequireApproved(ctx, s.partners, partnerID); err != nil {
		return nil, err
	}
	plan, err := s.partners.FindPlan(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit plan")
	}
	if plan == nil || !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "credit plan not found")
	}

	bonus := plan.CreditAmountPaise * int64(plan.BonusPercent) / 100
	planRef := plan.ID
	refType := planReferenceType

	result := &PurchaseResult{
		Plan:          plan,
		CreditedPaise: plan.CreditAmountPaise,
		BonusPaise:    bonus,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		credited, err := s.credit.ApplyTx(ctx, tx, ledger.ApplyInput{
			PartnerID:     partnerID,
			AmountPaise:   plan.CreditAmountPaise,
			Type:          enums.TransactionCreditPurchase,
			ReferenceID:   &planRef,
			ReferenceType: &refType,
			ActorType:     enums.ActorPartner,
			ActorID:       &partnerID,
			Notes:         fmt.Sprintf("Purchased plan %s", plan.PlanName),
		})
		if err != nil {
			return err
		}
		result.Transactions = append(result.Transactions, *credited)
		result.BalanceAfterPaise = credited.BalanceAfterPaise

		if bonus > 0 {
			boosted, err := s.credit.ApplyTx(ctx, tx, ledger.ApplyInput{
				PartnerID:     partnerID,
				AmountPaise:   bonus,
				Type:          enums.TransactionBonus,
				ReferenceID:   &planRef,
				ReferenceType: &refType,
				ActorType:     enums.ActorSystem,
				Notes:         fmt.Sprintf("%d%% bonus on plan %s", plan.BonusPercent, plan.PlanName),
			})
			if err != nil {
				return err
			}
			result.Transactions = append(result.Transactions, *boosted)
			result.BalanceAfterPaise = boosted.BalanceAfterPaise
		}

		if s.events != nil {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCreditsPurchased,
				AggregateType: enums.AggregatePartner,
				AggregateID:   partnerID,
				Actor:         &outbox.ActorRef{ActorID: &partnerID, Role: string(enums.ActorPartner)},
				Data: map[string]any{
					"plan_id":             plan.ID,
					"credited_paise":      plan.CreditAmountPaise,
					"bonus_paise":         bonus,
					"balance_after_paise": result.BalanceAfterPaise,
				},
				Version: 1,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue outbox event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.BalanceAfterDisplay = money.FormatPaise(result.BalanceAfterPaise)
	if s.logg != nil {
		logCtx := s.logg.WithPartnerID(ctx, partnerID.String())
		s.logg.Info(logCtx, fmt.Sprintf("credited %d paise via plan %s", result.CreditedPaise+result.BonusPaise, plan.PlanName))
	}
	return result, nil
}

func (s *service) Balance(ctx context.Context, partnerID uuid.UUID) (*BalanceResult, error) {
	balance, err := s.credit.Balance(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{
		BalancePaise:   balance,
		BalanceDisplay: money.FormatPaise(balance),
	}, nil
}

func (s *service) ListTransactions(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	rows, next, err := s.credit.ListTransactions(ctx, partnerID, params)
	if err != nil {
		return nil, err
	}
	return &TransactionList{Transactions: rows, NextCursor: next}, nil
}

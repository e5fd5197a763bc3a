package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
	"github.com/rahulbagri/phonelot-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ApplyInput captures one balance mutation. AmountPaise is signed: positive
// credits, negative debits.
type ApplyInput struct {
	PartnerID     uuid.UUID
	AmountPaise   int64
	Type          enums.TransactionType
	ReferenceID   *uuid.UUID
	ReferenceType *string
	ActorType     enums.ActorType
	ActorID       *uuid.UUID
	Notes         string
}

// Service owns all credit balance mutations. Balances are only ever changed
// through Apply so the transaction log stays the source of truth.
type Service interface {
	Apply(ctx context.Context, input ApplyInput) (*models.CreditTransaction, error)
	ApplyTx(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.CreditTransaction, error)
	Balance(ctx context.Context, partnerID uuid.UUID) (int64, error)
	ListTransactions(ctx context.Context, partnerID uuid.UUID, params pagination.Params) ([]models.CreditTransaction, string, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires a ledger service with the provided repository and
// transaction runner.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Apply(ctx context.Context, input ApplyInput) (*models.CreditTransaction, error) {
	var row *models.CreditTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.ApplyTx(ctx, tx, input)
		if err != nil {
			return err
		}
		row = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// ApplyTx performs the balance adjustment and writes the ledger row inside the
// caller's transaction. The adjustment is a single conditional UPDATE, so two
// concurrent debits against the same partner serialize on the row write lock
// and the later one re-evaluates the sufficiency predicate.
func (s *service) ApplyTx(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.CreditTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.PartnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	}
	if !input.ActorType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid actor type %q", input.ActorType))
	}
	if input.AmountPaise == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be zero")
	}

	repo := s.repo.WithTx(tx)

	affected, err := repo.AdjustBalance(ctx, input.PartnerID, input.AmountPaise)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust partner balance")
	}
	if affected == 0 {
		partner, findErr := repo.FindPartner(ctx, input.PartnerID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load partner")
		}
		if partner == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient credit balance").
			WithDetails(map[string]any{
				"required_paise":  -input.AmountPaise,
				"available_paise": partner.CreditBalancePaise,
			})
	}

	partner, err := repo.FindPartner(ctx, input.PartnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner after adjust")
	}
	if partner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "partner disappeared mid transaction")
	}

	row := &models.CreditTransaction{
		PartnerID:          input.PartnerID,
		Type:               input.Type,
		AmountPaise:        input.AmountPaise,
		BalanceBeforePaise: partner.CreditBalancePaise - input.AmountPaise,
		BalanceAfterPaise:  partner.CreditBalancePaise,
		ReferenceID:        input.ReferenceID,
		ReferenceType:      input.ReferenceType,
		ActorType:          input.ActorType,
		ActorID:            input.ActorID,
	}
	if input.Notes != "" {
		notes := input.Notes
		row.Notes = &notes
	}

	if err := repo.CreateTransaction(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write ledger row")
	}
	return row, nil
}

func (s *service) Balance(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	if partnerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "partner id is required")
	}
	partner, err := s.repo.FindPartner(ctx, partnerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}
	if partner == nil {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
	}
	return partner.CreditBalancePaise, nil
}

func (s *service) ListTransactions(ctx context.Context, partnerID uuid.UUID, params pagination.Params) ([]models.CreditTransaction, string, error) {
	if partnerID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "partner id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByPartner(ctx, partnerID, limit+1, cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

package partners

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	"github.com/rahulbagri/phonelot-backend/pkg/enums"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
)

// Repository loads partners, their agents and credit plans.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, partnerID uuid.UUID) (*models.Partner, error)
	FindAgent(ctx context.Context, agentID uuid.UUID) (*models.Agent, error)
	FindAgentForPartner(ctx context.Context, partnerID, agentID uuid.UUID) (*models.Agent, error)
	ListAgents(ctx context.Context, partnerID uuid.UUID) ([]models.Agent, error)
	FindPlan(ctx context.Context, planID uuid.UUID) (*models.CreditPlan, error)
	ListPlans(ctx context.Context) ([]models.CreditPlan, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a partner repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, partnerID uuid.UUID) (*models.Partner, error) {
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

func (r *repository) FindAgent(ctx context.Context, agentID uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).First(&agent, "id = ?", agentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) FindAgentForPartner(ctx context.Context, partnerID, agentID uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).
		First(&agent, "id = ? AND partner_id = ?", agentID, partnerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) ListAgents(ctx context.Context, partnerID uuid.UUID) ([]models.Agent, error) {
	var agents []models.Agent
	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("created_at ASC").
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *repository) FindPlan(ctx context.Context, planID uuid.UUID) (*models.CreditPlan, error) {
	var plan models.CreditPlan
	err := r.db.WithContext(ctx).First(&plan, "id = ?", planID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) ListPlans(ctx context.Context) ([]models.CreditPlan, error) {
	var plans []models.CreditPlan
	err := r.db.WithContext(ctx).
		Where("is_active").
		Order("credit_amount_paise ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// RequireApproved loads the partner and enforces the verification gate applied
// to lock and purchase operations.
func RequireApproved(ctx context.Context, repo Repository, partnerID uuid.UUID) (*models.Partner, error) {
	partner, err := repo.FindByID(ctx, partnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner")
	}
	if partner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
	}
	if !partner.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "partner account is inactive")
	}
	if partner.VerificationStatus != enums.VerificationApproved {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "partner is not verified").
			WithDetails(map[string]any{"verification_status": partner.VerificationStatus})
	}
	return partner, nil
}

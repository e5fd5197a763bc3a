package serviceability

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rahulbagri/phonelot-backend/pkg/db/models"
	pkgerrors "github.com/rahulbagri/phonelot-backend/pkg/errors"
)

// Index answers which partners service a pincode. It gates marketplace entry
// at order creation and lock acquisition for partners.
type Index interface {
	// ServicingPartnerCount counts active partners with an active mapping for
	// the pincode.
	ServicingPartnerCount(ctx context.Context, pincode string) (int64, error)
	// PartnerServices reports whether the partner services the pincode.
	PartnerServices(ctx context.Context, partnerID uuid.UUID, pincode string) (bool, error)
	// PartnerPincodes returns the partner's active pincodes.
	PartnerPincodes(ctx context.Context, partnerID uuid.UUID) ([]string, error)
}

type index struct {
	db *gorm.DB
}

// NewIndex returns an Index bound to the provided database.
func NewIndex(db *gorm.DB) (Index, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection required")
	}
	return &index{db: db}, nil
}

func (i *index) ServicingPartnerCount(ctx context.Context, pincode string) (int64, error) {
	if pincode == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "pincode is required")
	}
	var count int64
	err := i.db.WithContext(ctx).
		Model(&models.ServiceablePincode{}).
		Joins("JOIN partners ON partners.id = serviceable_pincodes.partner_id").
		Where("serviceable_pincodes.pincode = ?", pincode).
		Where("serviceable_pincodes.is_active").
		Where("partners.is_active").
		Distinct("serviceable_pincodes.partner_id").
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count servicing partners")
	}
	return count, nil
}

func (i *index) PartnerServices(ctx context.Context, partnerID uuid.UUID, pincode string) (bool, error) {
	if partnerID == uuid.Nil || pincode == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "partner id and pincode are required")
	}
	var count int64
	err := i.db.WithContext(ctx).
		Model(&models.ServiceablePincode{}).
		Where("partner_id = ? AND pincode = ? AND is_active", partnerID, pincode).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check partner serviceability")
	}
	return count > 0, nil
}

func (i *index) PartnerPincodes(ctx context.Context, partnerID uuid.UUID) ([]string, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner id is required")
	}
	var pincodes []string
	err := i.db.WithContext(ctx).
		Model(&models.ServiceablePincode{}).
		Where("partner_id = ? AND is_active", partnerID).
		Order("pincode ASC").
		Pluck("pincode", &pincodes).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list partner pincodes")
	}
	return pincodes, nil
}

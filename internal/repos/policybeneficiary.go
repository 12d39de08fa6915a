package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/types"
)

type PolicyBeneficiaryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, link *types.PolicyBeneficiary) (*types.PolicyBeneficiary, error)
	GetByPolicyAndContact(ctx context.Context, tx *gorm.DB, policyID, contactID uuid.UUID) (*types.PolicyBeneficiary, error)
	SumAllocation(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, beneficiaryType string) (float64, error)
	ListByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) ([]*types.PolicyBeneficiary, error)
}

type policyBeneficiaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolicyBeneficiaryRepo(db *gorm.DB, baseLog *logger.Logger) PolicyBeneficiaryRepo {
	return &policyBeneficiaryRepo{db: db, log: baseLog.With("repo", "PolicyBeneficiaryRepo")}
}

func (br *policyBeneficiaryRepo) Create(ctx context.Context, tx *gorm.DB, link *types.PolicyBeneficiary) (*types.PolicyBeneficiary, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

func (br *policyBeneficiaryRepo) GetByPolicyAndContact(ctx context.Context, tx *gorm.DB, policyID, contactID uuid.UUID) (*types.PolicyBeneficiary, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var result types.PolicyBeneficiary
	err := transaction.WithContext(ctx).
		Where("policy_id = ? AND contact_id = ?", policyID, contactID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (br *policyBeneficiaryRepo) SumAllocation(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, beneficiaryType string) (float64, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var sum *float64
	if err := transaction.WithContext(ctx).
		Model(&types.PolicyBeneficiary{}).
		Select("SUM(allocation_percentage)").
		Where("policy_id = ? AND beneficiary_type = ?", policyID, beneficiaryType).
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (br *policyBeneficiaryRepo) ListByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) ([]*types.PolicyBeneficiary, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var results []*types.PolicyBeneficiary
	if err := transaction.WithContext(ctx).
		Preload("Contact").
		Where("policy_id = ?", policyID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

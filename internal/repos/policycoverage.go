package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/types"
)

type PolicyCoverageRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, coverages []*types.PolicyCoverage) ([]*types.PolicyCoverage, error)
	DeleteByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) error
	ListByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) ([]*types.PolicyCoverage, error)
}

type policyCoverageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolicyCoverageRepo(db *gorm.DB, baseLog *logger.Logger) PolicyCoverageRepo {
	return &policyCoverageRepo{db: db, log: baseLog.With("repo", "PolicyCoverageRepo")}
}

func (cr *policyCoverageRepo) CreateBatch(ctx context.Context, tx *gorm.DB, coverages []*types.PolicyCoverage) ([]*types.PolicyCoverage, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if len(coverages) == 0 {
		return []*types.PolicyCoverage{}, nil
	}
	for _, c := range coverages {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&coverages).Error; err != nil {
		return nil, err
	}
	return coverages, nil
}

func (cr *policyCoverageRepo) DeleteByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Delete(&types.PolicyCoverage{}).Error
}

func (cr *policyCoverageRepo) ListByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) ([]*types.PolicyCoverage, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var results []*types.PolicyCoverage
	if err := transaction.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Order("coverage_type ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

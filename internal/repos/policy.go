package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/types"
)

type PolicyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, policy *types.Policy) (*types.Policy, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Policy, error)
	GetByPolicyNumber(ctx context.Context, tx *gorm.DB, policyNumber string) (*types.Policy, error)
	Update(ctx context.Context, tx *gorm.DB, policy *types.Policy) error
	ListByCustomerID(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]*types.Policy, error)
}

type policyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolicyRepo(db *gorm.DB, baseLog *logger.Logger) PolicyRepo {
	return &policyRepo{db: db, log: baseLog.With("repo", "PolicyRepo")}
}

func (pr *policyRepo) Create(ctx context.Context, tx *gorm.DB, policy *types.Policy) (*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if policy.ID == uuid.Nil {
		policy.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(policy).Error; err != nil {
		return nil, err
	}
	return policy, nil
}

func (pr *policyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var result types.Policy
	err := transaction.WithContext(ctx).
		Preload("Coverages").
		Where("id = ?", id).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *policyRepo) GetByPolicyNumber(ctx context.Context, tx *gorm.DB, policyNumber string) (*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var result types.Policy
	err := transaction.WithContext(ctx).
		Where("policy_number = ?", policyNumber).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *policyRepo) Update(ctx context.Context, tx *gorm.DB, policy *types.Policy) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).Save(policy).Error
}

func (pr *policyRepo) ListByCustomerID(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]*types.Policy, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Policy
	if err := transaction.WithContext(ctx).
		Preload("Coverages").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/types"
)

type PolicyDocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, doc *types.PolicyDocument) (*types.PolicyDocument, error)
	ListByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) ([]*types.PolicyDocument, error)
}

type policyDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolicyDocumentRepo(db *gorm.DB, baseLog *logger.Logger) PolicyDocumentRepo {
	return &policyDocumentRepo{db: db, log: baseLog.With("repo", "PolicyDocumentRepo")}
}

func (dr *policyDocumentRepo) Create(ctx context.Context, tx *gorm.DB, doc *types.PolicyDocument) (*types.PolicyDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (dr *policyDocumentRepo) ListByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) ([]*types.PolicyDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var results []*types.PolicyDocument
	if err := transaction.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

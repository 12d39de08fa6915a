package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/types"
)

type TimelineRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.TimelineEntry) (*types.TimelineEntry, error)
	ListByCustomerID(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, limit int) ([]*types.TimelineEntry, error)
}

type timelineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTimelineRepo(db *gorm.DB, baseLog *logger.Logger) TimelineRepo {
	return &timelineRepo{db: db, log: baseLog.With("repo", "TimelineRepo")}
}

func (tr *timelineRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.TimelineEntry) (*types.TimelineEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (tr *timelineRepo) ListByCustomerID(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, limit int) ([]*types.TimelineEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if limit <= 0 {
		limit = 50
	}
	var results []*types.TimelineEntry
	if err := transaction.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/types"
)

type CustomerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, customer *types.Customer) (*types.Customer, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Customer, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Customer, error)
	GetByNameAndDOB(ctx context.Context, tx *gorm.DB, firstName, lastName string, dob time.Time) (*types.Customer, error)
	Update(ctx context.Context, tx *gorm.DB, customer *types.Customer) error
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type customerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomerRepo(db *gorm.DB, baseLog *logger.Logger) CustomerRepo {
	return &customerRepo{db: db, log: baseLog.With("repo", "CustomerRepo")}
}

func (cr *customerRepo) Create(ctx context.Context, tx *gorm.DB, customer *types.Customer) (*types.Customer, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func (cr *customerRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Customer, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var result types.Customer
	err := transaction.WithContext(ctx).
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

func (cr *customerRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Customer, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if email == "" {
		return nil, nil
	}
	var result types.Customer
	err := transaction.WithContext(ctx).
		Where("email = ?", email).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *customerRepo) GetByNameAndDOB(ctx context.Context, tx *gorm.DB, firstName, lastName string, dob time.Time) (*types.Customer, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var result types.Customer
	err := transaction.WithContext(ctx).
		Where("first_name = ? AND last_name = ? AND date_of_birth = ?", firstName, lastName, dob).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *customerRepo) Update(ctx context.Context, tx *gorm.DB, customer *types.Customer) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).Save(customer).Error
}

func (cr *customerRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).Model(&types.Customer{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/repos"
	"github.com/coverbridge/coverbridge-backend/internal/types"
)

// PolicyView is a policy with its beneficiary links resolved, for read
// endpoints.
type PolicyView struct {
	*types.Policy
	Beneficiaries []*types.PolicyBeneficiary `json:"beneficiaries"`
}

type CustomerService interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*types.Customer, error)
	ListPolicies(ctx context.Context, customerID uuid.UUID) ([]*types.Policy, error)
	GetPolicy(ctx context.Context, id uuid.UUID) (*PolicyView, error)
	ListTimeline(ctx context.Context, customerID uuid.UUID, limit int) ([]*types.TimelineEntry, error)
}

type customerService struct {
	db              *gorm.DB
	log             *logger.Logger
	customerRepo    repos.CustomerRepo
	policyRepo      repos.PolicyRepo
	beneficiaryRepo repos.PolicyBeneficiaryRepo
	timelineRepo    repos.TimelineRepo
}

func NewCustomerService(
	db *gorm.DB,
	log *logger.Logger,
	customerRepo repos.CustomerRepo,
	policyRepo repos.PolicyRepo,
	beneficiaryRepo repos.PolicyBeneficiaryRepo,
	timelineRepo repos.TimelineRepo,
) CustomerService {
	return &customerService{
		db:              db,
		log:             log.With("service", "CustomerService"),
		customerRepo:    customerRepo,
		policyRepo:      policyRepo,
		beneficiaryRepo: beneficiaryRepo,
		timelineRepo:    timelineRepo,
	}
}

func (cs *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*types.Customer, error) {
	customer, err := cs.customerRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("error retrieving customer: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("customer not found")
	}
	return customer, nil
}

func (cs *customerService) ListPolicies(ctx context.Context, customerID uuid.UUID) ([]*types.Policy, error) {
	return cs.policyRepo.ListByCustomerID(ctx, nil, customerID)
}

func (cs *customerService) GetPolicy(ctx context.Context, id uuid.UUID) (*PolicyView, error) {
	policy, err := cs.policyRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("error retrieving policy: %w", err)
	}
	if policy == nil {
		return nil, fmt.Errorf("policy not found")
	}
	links, err := cs.beneficiaryRepo.ListByPolicyID(ctx, nil, policy.ID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving beneficiaries: %w", err)
	}
	return &PolicyView{Policy: policy, Beneficiaries: links}, nil
}

func (cs *customerService) ListTimeline(ctx context.Context, customerID uuid.UUID, limit int) ([]*types.TimelineEntry, error) {
	return cs.timelineRepo.ListByCustomerID(ctx, nil, customerID, limit)
}

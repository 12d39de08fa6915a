package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/extraction"
	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/repos"
	"github.com/coverbridge/coverbridge-backend/internal/requestdata"
	"github.com/coverbridge/coverbridge-backend/internal/types"
)

// DocumentDescriptor carries the stored-upload reference persisted for
// provenance alongside the synced policy.
type DocumentDescriptor struct {
	OriginalName string `json:"original_name"`
	StorageKey   string `json:"storage_key"`
	FileURL      string `json:"file_url"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
}

type SyncOptions struct {
	Document *DocumentDescriptor
}

// BeneficiaryError reports one beneficiary the sync could not link. The
// rest of the sync still commits.
type BeneficiaryError struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Message   string `json:"message"`
}

type SyncResult struct {
	CustomerID        uuid.UUID          `json:"customer_id"`
	PolicyID          uuid.UUID          `json:"policy_id"`
	Policy            *types.Policy      `json:"policy"`
	PolicyCreated     bool               `json:"policy_created"`
	CustomerCreated   bool               `json:"customer_created"`
	BeneficiaryErrors []BeneficiaryError `json:"beneficiary_errors"`
}

// PolicySyncService upserts one canonical document into the CRM inside a
// single read-committed transaction: customer, policy, coverages,
// beneficiary links and the provenance document row.
type PolicySyncService interface {
	Sync(ctx context.Context, doc *extraction.CanonicalPolicyDocument, opts SyncOptions) (*SyncResult, error)
}

type policySyncService struct {
	db              *gorm.DB
	log             *logger.Logger
	customerRepo    repos.CustomerRepo
	policyRepo      repos.PolicyRepo
	coverageRepo    repos.PolicyCoverageRepo
	contactRepo     repos.ContactRepo
	beneficiaryRepo repos.PolicyBeneficiaryRepo
	documentRepo    repos.PolicyDocumentRepo
	timelineRepo    repos.TimelineRepo
}

func NewPolicySyncService(
	db *gorm.DB,
	log *logger.Logger,
	customerRepo repos.CustomerRepo,
	policyRepo repos.PolicyRepo,
	coverageRepo repos.PolicyCoverageRepo,
	contactRepo repos.ContactRepo,
	beneficiaryRepo repos.PolicyBeneficiaryRepo,
	documentRepo repos.PolicyDocumentRepo,
	timelineRepo repos.TimelineRepo,
) PolicySyncService {
	return &policySyncService{
		db:              db,
		log:             log.With("service", "PolicySyncService"),
		customerRepo:    customerRepo,
		policyRepo:      policyRepo,
		coverageRepo:    coverageRepo,
		contactRepo:     contactRepo,
		beneficiaryRepo: beneficiaryRepo,
		documentRepo:    documentRepo,
		timelineRepo:    timelineRepo,
	}
}

func (s *policySyncService) Sync(ctx context.Context, doc *extraction.CanonicalPolicyDocument, opts SyncOptions) (*SyncResult, error) {
	if doc == nil {
		return nil, missingField("document", "No extracted document was provided")
	}
	if strings.TrimSpace(doc.PolicyHolder.LastName) == "" {
		return nil, missingField("policyHolder.lastName", "Policy holder information is incomplete")
	}
	if strings.TrimSpace(doc.Policy.PolicyNumber) == "" {
		return nil, missingField("policy.policyNumber", "Policy number is missing from the extracted document")
	}

	result, err := s.syncOnce(ctx, doc, opts)
	if isDuplicateKey(err) {
		// A concurrent sync won the find-then-insert race on a natural key.
		// The unique index turned our insert into a conflict; the row exists
		// now, so one retry resolves it through the lookup path.
		s.log.Warn("Natural-key conflict during sync, retrying once", "policy_number", doc.Policy.PolicyNumber, "error", err)
		result, err = s.syncOnce(ctx, doc, opts)
	}
	return result, err
}

func (s *policySyncService) syncOnce(ctx context.Context, doc *extraction.CanonicalPolicyDocument, opts SyncOptions) (*SyncResult, error) {
	result := &SyncResult{BeneficiaryErrors: []BeneficiaryError{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, customerCreated, err := s.resolveCustomer(ctx, tx, &doc.PolicyHolder)
		if err != nil {
			return err
		}
		result.CustomerID = customer.ID
		result.CustomerCreated = customerCreated

		policy, policyCreated, err := s.resolvePolicy(ctx, tx, doc, customer)
		if err != nil {
			return err
		}
		result.PolicyID = policy.ID
		result.PolicyCreated = policyCreated

		if err := s.replaceCoverages(ctx, tx, policy, doc.Coverages); err != nil {
			return err
		}

		benErrs, err := s.linkBeneficiaries(ctx, tx, customer, policy, doc.Beneficiaries)
		if err != nil {
			return err
		}
		result.BeneficiaryErrors = benErrs

		if err := s.persistDocumentRef(ctx, tx, customer, policy, doc, opts.Document); err != nil {
			return err
		}

		reloaded, err := s.policyRepo.GetByID(ctx, tx, policy.ID)
		if err != nil {
			return err
		}
		result.Policy = reloaded
		return nil
	}, s.txOptions())
	if err != nil {
		return nil, err
	}
	return result, nil
}

// txOptions pins the sync transaction to read committed: the allocation
// check is a read-then-write and must not run weaker. The sqlite dialect
// (tests) only supports its default isolation.
func (s *policySyncService) txOptions() *sql.TxOptions {
	if s.db.Dialector.Name() == "postgres" {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return &sql.TxOptions{}
}

// resolveCustomer finds by email, then (firstName, lastName, dateOfBirth).
// Existing customers are updated with new-wins-unless-empty coalescing; a
// field the extraction did not produce never blanks a stored value.
func (s *policySyncService) resolveCustomer(ctx context.Context, tx *gorm.DB, holder *extraction.PolicyHolder) (*types.Customer, bool, error) {
	customer, err := s.customerRepo.GetByEmail(ctx, tx, holder.Email)
	if err != nil {
		return nil, false, err
	}
	dob := parseISODate(holder.DateOfBirth)
	if customer == nil && dob != nil {
		customer, err = s.customerRepo.GetByNameAndDOB(ctx, tx, holder.FirstName, holder.LastName, *dob)
		if err != nil {
			return nil, false, err
		}
	}

	if customer != nil {
		coalesce(&customer.FirstName, holder.FirstName)
		coalesce(&customer.MiddleName, holder.MiddleName)
		coalesce(&customer.LastName, holder.LastName)
		coalesce(&customer.Email, holder.Email)
		coalesce(&customer.Phone, holder.Phone)
		coalesce(&customer.SSNLast4, holder.SSNLast4)
		coalesce(&customer.AddressLine1, holder.AddressLine1)
		coalesce(&customer.AddressLine2, holder.AddressLine2)
		coalesce(&customer.City, holder.City)
		coalesce(&customer.State, holder.State)
		coalesce(&customer.ZipCode, holder.ZipCode)
		coalesce(&customer.Occupation, holder.Occupation)
		coalesce(&customer.MaritalStatus, holder.MaritalStatus)
		if dob != nil {
			customer.DateOfBirth = dob
		}
		if err := s.customerRepo.Update(ctx, tx, customer); err != nil {
			return nil, false, err
		}
		return customer, false, nil
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	customer = &types.Customer{
		FirstName:     holder.FirstName,
		MiddleName:    holder.MiddleName,
		LastName:      holder.LastName,
		Email:         holder.Email,
		Phone:         holder.Phone,
		DateOfBirth:   dob,
		SSNLast4:      holder.SSNLast4,
		AddressLine1:  holder.AddressLine1,
		AddressLine2:  holder.AddressLine2,
		City:          holder.City,
		State:         holder.State,
		ZipCode:       holder.ZipCode,
		Occupation:    holder.Occupation,
		MaritalStatus: holder.MaritalStatus,
		Status:        "active",
		CustomerSince: &today,
	}
	if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		agentID := rd.UserID
		customer.AssignedAgentID = &agentID
		if rd.AgencyID != uuid.Nil {
			agencyID := rd.AgencyID
			customer.AgencyID = &agencyID
		}
	}
	if _, err := s.customerRepo.Create(ctx, tx, customer); err != nil {
		return nil, false, err
	}
	return customer, true, nil
}

// resolvePolicy treats the freshly extracted document as authoritative for
// an existing policy: every field is overwritten, no coalescing.
func (s *policySyncService) resolvePolicy(ctx context.Context, tx *gorm.DB, doc *extraction.CanonicalPolicyDocument, customer *types.Customer) (*types.Policy, bool, error) {
	detailJSON, err := extraction.MarshalDetail(doc.Detail())
	if err != nil {
		return nil, false, fmt.Errorf("failed to serialize policy detail: %w", err)
	}
	acordRaw, err := json.Marshal(doc.ACORDData)
	if err != nil {
		return nil, false, fmt.Errorf("failed to serialize ACORD data: %w", err)
	}

	policy, err := s.policyRepo.GetByPolicyNumber(ctx, tx, doc.Policy.PolicyNumber)
	if err != nil {
		return nil, false, err
	}

	if policy != nil {
		policy.CustomerID = customer.ID
		policy.Insurer = doc.Policy.Insurer
		policy.PolicyType = doc.Policy.PolicyType
		policy.Status = doc.Policy.Status
		policy.EffectiveDate = parseISODate(doc.Policy.EffectiveDate)
		policy.ExpirationDate = parseISODate(doc.Policy.ExpirationDate)
		policy.IssueDate = parseISODate(doc.Policy.IssueDate)
		policy.PremiumAmount = doc.Policy.PremiumAmount
		policy.PremiumFrequency = doc.Policy.PremiumFrequency
		policy.Deductible = doc.Policy.Deductible
		policy.CoverageAmount = doc.Policy.CoverageAmount
		policy.Detail = detailJSON
		policy.ACORDData = datatypes.JSON(acordRaw)
		if err := s.policyRepo.Update(ctx, tx, policy); err != nil {
			return nil, false, err
		}
		if err := s.appendTimeline(ctx, tx, customer.ID, policy.ID, "policy_updated", "Policy Updated",
			fmt.Sprintf("Policy %s updated from an extracted document", policy.PolicyNumber)); err != nil {
			return nil, false, err
		}
		return policy, false, nil
	}

	policy = &types.Policy{
		CustomerID:       customer.ID,
		PolicyNumber:     doc.Policy.PolicyNumber,
		Insurer:          doc.Policy.Insurer,
		PolicyType:       doc.Policy.PolicyType,
		Status:           doc.Policy.Status,
		EffectiveDate:    parseISODate(doc.Policy.EffectiveDate),
		ExpirationDate:   parseISODate(doc.Policy.ExpirationDate),
		IssueDate:        parseISODate(doc.Policy.IssueDate),
		PremiumAmount:    doc.Policy.PremiumAmount,
		PremiumFrequency: doc.Policy.PremiumFrequency,
		Deductible:       doc.Policy.Deductible,
		CoverageAmount:   doc.Policy.CoverageAmount,
		Detail:           detailJSON,
		ACORDData:        datatypes.JSON(acordRaw),
	}
	if _, err := s.policyRepo.Create(ctx, tx, policy); err != nil {
		return nil, false, err
	}
	if err := s.appendTimeline(ctx, tx, customer.ID, policy.ID, "policy_added", "New Policy Added",
		fmt.Sprintf("Policy %s added from an extracted document", policy.PolicyNumber)); err != nil {
		return nil, false, err
	}
	return policy, true, nil
}

// replaceCoverages deletes and re-inserts the coverage set. An empty
// incoming list is a no-op: a noisy scan that missed every coverage must
// not wipe a previously synced set.
func (s *policySyncService) replaceCoverages(ctx context.Context, tx *gorm.DB, policy *types.Policy, coverages []extraction.Coverage) error {
	if len(coverages) == 0 {
		return nil
	}
	if err := s.coverageRepo.DeleteByPolicyID(ctx, tx, policy.ID); err != nil {
		return err
	}
	rows := make([]*types.PolicyCoverage, 0, len(coverages))
	for _, c := range coverages {
		rows = append(rows, &types.PolicyCoverage{
			PolicyID:      policy.ID,
			CoverageType:  c.Type,
			CoverageCode:  c.Code,
			CoverageLimit: c.Limit,
			Deductible:    c.Deductible,
			Premium:       c.Premium,
			Description:   c.Description,
		})
	}
	_, err := s.coverageRepo.CreateBatch(ctx, tx, rows)
	return err
}

// linkBeneficiaries finds-or-creates the contact for each beneficiary and
// links it to the policy. An over-allocated beneficiary is skipped and
// reported; existing links are left untouched.
func (s *policySyncService) linkBeneficiaries(ctx context.Context, tx *gorm.DB, customer *types.Customer, policy *types.Policy, beneficiaries []extraction.Beneficiary) ([]BeneficiaryError, error) {
	benErrs := []BeneficiaryError{}
	for _, b := range beneficiaries {
		if strings.TrimSpace(b.LastName) == "" && strings.TrimSpace(b.FirstName) == "" {
			continue
		}
		contact, err := s.contactRepo.GetByDedupKey(ctx, tx, customer.ID, b.FirstName, b.LastName, b.Relationship)
		if err != nil {
			return nil, err
		}
		if contact == nil {
			contact = &types.Contact{
				CustomerID:   customer.ID,
				FirstName:    b.FirstName,
				LastName:     b.LastName,
				Relationship: b.Relationship,
				ContactType:  "beneficiary",
				DateOfBirth:  parseISODate(b.DateOfBirth),
				SSNLast4:     b.SSNLast4,
				AddressLine1: b.AddressLine1,
				City:         b.City,
				State:        b.State,
				ZipCode:      b.ZipCode,
			}
			if _, err := s.contactRepo.Create(ctx, tx, contact); err != nil {
				return nil, err
			}
		}

		existing, err := s.beneficiaryRepo.GetByPolicyAndContact(ctx, tx, policy.ID, contact.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}

		allocated, err := s.beneficiaryRepo.SumAllocation(ctx, tx, policy.ID, b.BeneficiaryType)
		if err != nil {
			return nil, err
		}
		if allocated+b.AllocationPercentage > 100 {
			allocErr := &AllocationError{
				BeneficiaryName: strings.TrimSpace(b.FirstName + " " + b.LastName),
				BeneficiaryType: b.BeneficiaryType,
				Existing:        allocated,
				Requested:       b.AllocationPercentage,
			}
			s.log.Warn("Skipping over-allocated beneficiary",
				"policy_number", policy.PolicyNumber,
				"beneficiary", allocErr.BeneficiaryName,
				"error", allocErr)
			benErrs = append(benErrs, BeneficiaryError{
				FirstName: b.FirstName,
				LastName:  b.LastName,
				Message:   allocErr.Error(),
			})
			continue
		}

		link := &types.PolicyBeneficiary{
			PolicyID:             policy.ID,
			ContactID:            contact.ID,
			BeneficiaryType:      b.BeneficiaryType,
			AllocationPercentage: b.AllocationPercentage,
			IsRevocable:          b.IsRevocable,
		}
		if _, err := s.beneficiaryRepo.Create(ctx, tx, link); err != nil {
			return nil, err
		}
	}
	return benErrs, nil
}

func (s *policySyncService) persistDocumentRef(ctx context.Context, tx *gorm.DB, customer *types.Customer, policy *types.Policy, doc *extraction.CanonicalPolicyDocument, descriptor *DocumentDescriptor) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize extraction payload: %w", err)
	}
	customerID := customer.ID
	row := &types.PolicyDocument{
		PolicyID:       policy.ID,
		CustomerID:     &customerID,
		OriginalName:   doc.Metadata.OriginalFileName,
		MimeType:       doc.Metadata.MimeType,
		SizeBytes:      doc.Metadata.SizeBytes,
		DocumentType:   "policy",
		ExtractionData: datatypes.JSON(payload),
	}
	if descriptor != nil {
		if descriptor.OriginalName != "" {
			row.OriginalName = descriptor.OriginalName
		}
		row.StorageKey = descriptor.StorageKey
		row.FileURL = descriptor.FileURL
		if descriptor.MimeType != "" {
			row.MimeType = descriptor.MimeType
		}
		if descriptor.SizeBytes > 0 {
			row.SizeBytes = descriptor.SizeBytes
		}
	}
	_, err = s.documentRepo.Create(ctx, tx, row)
	return err
}

func (s *policySyncService) appendTimeline(ctx context.Context, tx *gorm.DB, customerID, policyID uuid.UUID, entryType, title, description string) error {
	entry := &types.TimelineEntry{
		CustomerID:  customerID,
		PolicyID:    &policyID,
		EntryType:   entryType,
		Title:       title,
		Description: description,
	}
	if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		actorID := rd.UserID
		entry.ActorID = &actorID
	}
	_, err := s.timelineRepo.Create(ctx, tx, entry)
	return err
}

func coalesce(dst *string, next string) {
	if strings.TrimSpace(next) != "" {
		*dst = next
	}
}

func parseISODate(s string) *time.Time {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "sqlstate 23505")
}

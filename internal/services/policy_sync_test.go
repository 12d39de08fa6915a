package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/coverbridge/coverbridge-backend/internal/extraction"
	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/repos"
	"github.com/coverbridge/coverbridge-backend/internal/types"
)

type syncTestEnv struct {
	db              *gorm.DB
	customerRepo    repos.CustomerRepo
	policyRepo      repos.PolicyRepo
	coverageRepo    repos.PolicyCoverageRepo
	contactRepo     repos.ContactRepo
	beneficiaryRepo repos.PolicyBeneficiaryRepo
	documentRepo    repos.PolicyDocumentRepo
	timelineRepo    repos.TimelineRepo
	svc             PolicySyncService
}

func newSyncTestEnv(t *testing.T) *syncTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&types.Agency{},
		&types.User{},
		&types.Customer{},
		&types.Contact{},
		&types.Policy{},
		&types.PolicyCoverage{},
		&types.PolicyBeneficiary{},
		&types.PolicyDocument{},
		&types.TimelineEntry{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	log := logger.NewNop()
	env := &syncTestEnv{
		db:              db,
		customerRepo:    repos.NewCustomerRepo(db, log),
		policyRepo:      repos.NewPolicyRepo(db, log),
		coverageRepo:    repos.NewPolicyCoverageRepo(db, log),
		contactRepo:     repos.NewContactRepo(db, log),
		beneficiaryRepo: repos.NewPolicyBeneficiaryRepo(db, log),
		documentRepo:    repos.NewPolicyDocumentRepo(db, log),
		timelineRepo:    repos.NewTimelineRepo(db, log),
	}
	env.svc = NewPolicySyncService(
		db, log,
		env.customerRepo, env.policyRepo, env.coverageRepo,
		env.contactRepo, env.beneficiaryRepo, env.documentRepo, env.timelineRepo,
	)
	return env
}

func autoPolicyDoc() *extraction.CanonicalPolicyDocument {
	return &extraction.CanonicalPolicyDocument{
		PolicyHolder: extraction.PolicyHolder{
			FirstName:    "Maria",
			LastName:     "Santos",
			DateOfBirth:  "1984-07-21",
			Email:        "maria.santos@example.com",
			Phone:        "555-0142",
			AddressLine1: "14 Birchwood Ln",
			City:         "Austin",
			State:        "TX",
			ZipCode:      "78701",
		},
		Policy: extraction.PolicyInfo{
			PolicyNumber:     "AP-77-431",
			Insurer:          "Lone Star Mutual",
			PolicyType:       "auto",
			Status:           "active",
			EffectiveDate:    "2026-01-01",
			ExpirationDate:   "2027-01-01",
			PremiumAmount:    1480,
			PremiumFrequency: "semi_annual",
			Deductible:       500,
			CoverageAmount:   300000,
		},
		Coverages: []extraction.Coverage{
			{Type: "bodily_injury", Code: "BI", Limit: 300000, Premium: 640},
			{Type: "collision", Code: "COLL", Limit: 50000, Deductible: 500, Premium: 840},
		},
		Beneficiaries: []extraction.Beneficiary{
			{
				FirstName:            "Diego",
				LastName:             "Santos",
				Relationship:         "spouse",
				BeneficiaryType:      "primary",
				AllocationPercentage: 100,
				IsRevocable:          true,
			},
		},
		Vehicle: &extraction.VehicleDetail{
			Make: "Honda", Model: "Civic", Year: 2021, VIN: "2HGFC2F59MH000001",
		},
		Metadata: extraction.Metadata{
			OriginalFileName: "santos-auto.pdf",
			MimeType:         "application/pdf",
			SizeBytes:        183220,
		},
	}
}

func TestSyncCreatesCustomerPolicyAndLinks(t *testing.T) {
	env := newSyncTestEnv(t)
	ctx := context.Background()

	result, err := env.svc.Sync(ctx, autoPolicyDoc(), SyncOptions{
		Document: &DocumentDescriptor{
			OriginalName: "santos-auto.pdf",
			StorageKey:   "documents/abc/santos-auto.pdf",
			MimeType:     "application/pdf",
			SizeBytes:    183220,
		},
	})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if !result.CustomerCreated || !result.PolicyCreated {
		t.Fatalf("expected fresh customer and policy, got %+v", result)
	}
	if len(result.BeneficiaryErrors) != 0 {
		t.Fatalf("unexpected beneficiary errors: %v", result.BeneficiaryErrors)
	}

	customer, err := env.customerRepo.GetByEmail(ctx, nil, "maria.santos@example.com")
	if err != nil || customer == nil {
		t.Fatalf("customer lookup failed: %v %v", customer, err)
	}
	if customer.Status != "active" || customer.CustomerSince == nil {
		t.Fatalf("new customer defaults not applied: %+v", customer)
	}

	policy, err := env.policyRepo.GetByPolicyNumber(ctx, nil, "AP-77-431")
	if err != nil || policy == nil {
		t.Fatalf("policy lookup failed: %v %v", policy, err)
	}
	if policy.CustomerID != customer.ID {
		t.Fatal("policy not linked to customer")
	}

	detail, err := extraction.UnmarshalDetail(policy.Detail)
	if err != nil {
		t.Fatalf("detail unmarshal: %v", err)
	}
	vehicle, ok := detail.(*extraction.VehicleDetail)
	if !ok || vehicle.Make != "Honda" {
		t.Fatalf("expected Honda vehicle detail, got %#v", detail)
	}

	coverages, err := env.coverageRepo.ListByPolicyID(ctx, nil, policy.ID)
	if err != nil {
		t.Fatalf("coverage list: %v", err)
	}
	if len(coverages) != 2 {
		t.Fatalf("coverages=%d, want 2", len(coverages))
	}

	links, err := env.beneficiaryRepo.ListByPolicyID(ctx, nil, policy.ID)
	if err != nil {
		t.Fatalf("beneficiary list: %v", err)
	}
	if len(links) != 1 || links[0].AllocationPercentage != 100 {
		t.Fatalf("unexpected beneficiary links: %+v", links)
	}
	if links[0].Contact == nil || links[0].Contact.FirstName != "Diego" {
		t.Fatalf("beneficiary contact not preloaded or wrong: %+v", links[0].Contact)
	}

	docs, err := env.documentRepo.ListByPolicyID(ctx, nil, policy.ID)
	if err != nil {
		t.Fatalf("document list: %v", err)
	}
	if len(docs) != 1 || docs[0].StorageKey != "documents/abc/santos-auto.pdf" {
		t.Fatalf("provenance document row missing or wrong: %+v", docs)
	}

	entries, err := env.timelineRepo.ListByCustomerID(ctx, nil, customer.ID, 10)
	if err != nil || len(entries) == 0 {
		t.Fatalf("timeline entries missing: %v %v", entries, err)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	env := newSyncTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Sync(ctx, autoPolicyDoc(), SyncOptions{})
	if err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	second, err := env.svc.Sync(ctx, autoPolicyDoc(), SyncOptions{})
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	if second.CustomerCreated || second.PolicyCreated {
		t.Fatalf("second sync must reuse rows, got %+v", second)
	}
	if second.CustomerID != first.CustomerID || second.PolicyID != first.PolicyID {
		t.Fatal("second sync resolved to different rows")
	}

	count, err := env.customerRepo.Count(ctx, nil)
	if err != nil || count != 1 {
		t.Fatalf("customer count=%d, want 1 (%v)", count, err)
	}
	// Replace strategy mints new rows; compare by content, not id.
	coverages, _ := env.coverageRepo.ListByPolicyID(ctx, nil, first.PolicyID)
	if len(coverages) != 2 {
		t.Fatalf("coverage replace not idempotent: %d rows", len(coverages))
	}
	byType := map[string]float64{}
	for _, cov := range coverages {
		byType[cov.CoverageType] = cov.CoverageLimit
	}
	if byType["bodily_injury"] != 300000 || byType["collision"] != 50000 {
		t.Fatalf("coverage content drifted after re-sync: %v", byType)
	}
	links, _ := env.beneficiaryRepo.ListByPolicyID(ctx, nil, first.PolicyID)
	if len(links) != 1 {
		t.Fatalf("beneficiary link duplicated: %d rows", len(links))
	}
	if len(second.BeneficiaryErrors) != 0 {
		t.Fatalf("re-linking an existing beneficiary should not error: %v", second.BeneficiaryErrors)
	}
}

func TestSyncPolicyOverwrite(t *testing.T) {
	env := newSyncTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Sync(ctx, autoPolicyDoc(), SyncOptions{}); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	doc := autoPolicyDoc()
	doc.Policy.Status = "cancelled"
	doc.Policy.PremiumAmount = 1620
	doc.Beneficiaries = nil
	doc.Coverages = nil
	result, err := env.svc.Sync(ctx, doc, SyncOptions{})
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if result.PolicyCreated {
		t.Fatal("expected existing policy")
	}

	policy, err := env.policyRepo.GetByPolicyNumber(ctx, nil, "AP-77-431")
	if err != nil || policy == nil {
		t.Fatalf("policy lookup failed: %v", err)
	}
	if policy.Status != "cancelled" || policy.PremiumAmount != 1620 {
		t.Fatalf("policy fields not overwritten: status=%q premium=%v", policy.Status, policy.PremiumAmount)
	}

	// An extraction that found no coverages must not wipe the stored set.
	coverages, _ := env.coverageRepo.ListByPolicyID(ctx, nil, policy.ID)
	if len(coverages) != 2 {
		t.Fatalf("empty coverage list wiped stored coverages: %d rows", len(coverages))
	}
}

func TestSyncCoalescesCustomerFields(t *testing.T) {
	env := newSyncTestEnv(t)
	ctx := context.Background()

	doc := autoPolicyDoc()
	doc.PolicyHolder.Email = ""
	doc.PolicyHolder.Phone = "555-0142"
	if _, err := env.svc.Sync(ctx, doc, SyncOptions{}); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	// Same person matched by (name, DOB): the new email fills in, the
	// missing occupation must not blank anything.
	update := autoPolicyDoc()
	update.Policy.PolicyNumber = "HP-90-002"
	update.Policy.PolicyType = "home"
	update.PolicyHolder.Email = "maria.santos@example.com"
	update.PolicyHolder.Phone = ""
	result, err := env.svc.Sync(ctx, update, SyncOptions{})
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if result.CustomerCreated {
		t.Fatal("expected name+DOB match, got a new customer")
	}

	customer, err := env.customerRepo.GetByID(ctx, nil, result.CustomerID)
	if err != nil || customer == nil {
		t.Fatalf("customer lookup failed: %v", err)
	}
	if customer.Email != "maria.santos@example.com" {
		t.Fatalf("email not coalesced in: %q", customer.Email)
	}
	if customer.Phone != "555-0142" {
		t.Fatalf("empty incoming phone blanked stored value: %q", customer.Phone)
	}

	policies, err := env.policyRepo.ListByCustomerID(ctx, nil, customer.ID)
	if err != nil || len(policies) != 2 {
		t.Fatalf("expected 2 policies on one customer, got %d (%v)", len(policies), err)
	}
}

func TestSyncAllocationCap(t *testing.T) {
	env := newSyncTestEnv(t)
	ctx := context.Background()

	doc := autoPolicyDoc()
	doc.Beneficiaries = []extraction.Beneficiary{
		{FirstName: "Diego", LastName: "Santos", Relationship: "spouse", BeneficiaryType: "primary", AllocationPercentage: 60, IsRevocable: true},
	}
	if _, err := env.svc.Sync(ctx, doc, SyncOptions{}); err != nil {
		t.Fatalf("seed sync failed: %v", err)
	}

	over := autoPolicyDoc()
	over.Beneficiaries = []extraction.Beneficiary{
		{FirstName: "Lucia", LastName: "Santos", Relationship: "child", BeneficiaryType: "primary", AllocationPercentage: 45, IsRevocable: true},
	}
	result, err := env.svc.Sync(ctx, over, SyncOptions{})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(result.BeneficiaryErrors) != 1 {
		t.Fatalf("expected one allocation error, got %v", result.BeneficiaryErrors)
	}
	if result.BeneficiaryErrors[0].FirstName != "Lucia" {
		t.Fatalf("wrong beneficiary reported: %+v", result.BeneficiaryErrors[0])
	}

	links, _ := env.beneficiaryRepo.ListByPolicyID(ctx, nil, result.PolicyID)
	if len(links) != 1 {
		t.Fatalf("over-allocated beneficiary was linked anyway: %d rows", len(links))
	}

	// Exactly filling to 100 is allowed.
	fits := autoPolicyDoc()
	fits.Beneficiaries = []extraction.Beneficiary{
		{FirstName: "Lucia", LastName: "Santos", Relationship: "child", BeneficiaryType: "primary", AllocationPercentage: 40, IsRevocable: true},
	}
	result, err = env.svc.Sync(ctx, fits, SyncOptions{})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(result.BeneficiaryErrors) != 0 {
		t.Fatalf("allocation to exactly 100 rejected: %v", result.BeneficiaryErrors)
	}
	links, _ = env.beneficiaryRepo.ListByPolicyID(ctx, nil, result.PolicyID)
	if len(links) != 2 {
		t.Fatalf("expected 2 links after fitting allocation, got %d", len(links))
	}

	// The two Lucia syncs reused one contact row.
	contacts, err := env.contactRepo.ListByCustomerID(ctx, nil, result.CustomerID)
	if err != nil {
		t.Fatalf("contact list: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("contact dedup failed: %d rows, want 2", len(contacts))
	}
}

func TestSyncContingentAllocationIsSeparate(t *testing.T) {
	env := newSyncTestEnv(t)
	ctx := context.Background()

	doc := autoPolicyDoc()
	doc.Beneficiaries = []extraction.Beneficiary{
		{FirstName: "Diego", LastName: "Santos", Relationship: "spouse", BeneficiaryType: "primary", AllocationPercentage: 100, IsRevocable: true},
		{FirstName: "Lucia", LastName: "Santos", Relationship: "child", BeneficiaryType: "contingent", AllocationPercentage: 100, IsRevocable: true},
	}
	result, err := env.svc.Sync(ctx, doc, SyncOptions{})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(result.BeneficiaryErrors) != 0 {
		t.Fatalf("contingent pool must not share the primary cap: %v", result.BeneficiaryErrors)
	}
}

// racingPolicyRepo misses the policy-number lookup a set number of times,
// simulating a concurrent sync committing the row between our lookup and
// insert. The insert then hits the real unique index.
type racingPolicyRepo struct {
	repos.PolicyRepo
	misses int
}

func (r *racingPolicyRepo) GetByPolicyNumber(ctx context.Context, tx *gorm.DB, policyNumber string) (*types.Policy, error) {
	if r.misses > 0 {
		r.misses--
		return nil, nil
	}
	return r.PolicyRepo.GetByPolicyNumber(ctx, tx, policyNumber)
}

func TestSyncRetriesPolicyNumberConflict(t *testing.T) {
	env := newSyncTestEnv(t)
	ctx := context.Background()

	// The row the concurrent winner would have committed.
	first, err := env.svc.Sync(ctx, autoPolicyDoc(), SyncOptions{})
	if err != nil {
		t.Fatalf("seed sync failed: %v", err)
	}

	stub := &racingPolicyRepo{PolicyRepo: env.policyRepo, misses: 1}
	svc := NewPolicySyncService(
		env.db, logger.NewNop(),
		env.customerRepo, stub, env.coverageRepo,
		env.contactRepo, env.beneficiaryRepo, env.documentRepo, env.timelineRepo,
	)

	result, err := svc.Sync(ctx, autoPolicyDoc(), SyncOptions{})
	if err != nil {
		t.Fatalf("sync did not recover from the unique-index conflict: %v", err)
	}
	if result.PolicyCreated {
		t.Fatal("retry must resolve through the lookup, not a second insert")
	}
	if result.PolicyID != first.PolicyID {
		t.Fatalf("retry resolved to a different policy: %s vs %s", result.PolicyID, first.PolicyID)
	}
	policies, err := env.policyRepo.ListByCustomerID(ctx, nil, result.CustomerID)
	if err != nil || len(policies) != 1 {
		t.Fatalf("expected exactly one policy row after retry, got %d (%v)", len(policies), err)
	}
}

// conflictingCustomerRepo fails the first insert with a postgres-phrased
// duplicate-key error, as the partial unique email index would.
type conflictingCustomerRepo struct {
	repos.CustomerRepo
	conflicts int
}

func (r *conflictingCustomerRepo) Create(ctx context.Context, tx *gorm.DB, customer *types.Customer) (*types.Customer, error) {
	if r.conflicts > 0 {
		r.conflicts--
		return nil, errors.New(`ERROR: duplicate key value violates unique constraint "uq_customer_email" (SQLSTATE 23505)`)
	}
	return r.CustomerRepo.Create(ctx, tx, customer)
}

func TestSyncRetriesCustomerEmailConflict(t *testing.T) {
	env := newSyncTestEnv(t)
	ctx := context.Background()

	stub := &conflictingCustomerRepo{CustomerRepo: env.customerRepo, conflicts: 1}
	svc := NewPolicySyncService(
		env.db, logger.NewNop(),
		stub, env.policyRepo, env.coverageRepo,
		env.contactRepo, env.beneficiaryRepo, env.documentRepo, env.timelineRepo,
	)

	result, err := svc.Sync(ctx, autoPolicyDoc(), SyncOptions{})
	if err != nil {
		t.Fatalf("sync did not recover from the duplicate-key conflict: %v", err)
	}
	count, err := env.customerRepo.Count(ctx, nil)
	if err != nil || count != 1 {
		t.Fatalf("customer count=%d after retry, want 1 (%v)", count, err)
	}
	if result.CustomerID == uuid.Nil {
		t.Fatal("retry did not resolve a customer")
	}
}

func TestIsDuplicateKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "postgres", err: errors.New(`ERROR: duplicate key value violates unique constraint "policy_policy_number_key" (SQLSTATE 23505)`), want: true},
		{name: "postgres sqlstate only", err: errors.New("pq: error (SQLSTATE 23505)"), want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: policy.policy_number"), want: true},
		{name: "unrelated", err: errors.New("connection refused"), want: false},
		{name: "not null violation", err: errors.New("ERROR: null value in column (SQLSTATE 23502)"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isDuplicateKey(tc.err); got != tc.want {
				t.Fatalf("isDuplicateKey(%v)=%v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestSyncValidation(t *testing.T) {
	env := newSyncTestEnv(t)
	ctx := context.Background()

	t.Run("missing last name", func(t *testing.T) {
		doc := autoPolicyDoc()
		doc.PolicyHolder.LastName = "  "
		_, err := env.svc.Sync(ctx, doc, SyncOptions{})
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("want *ValidationError, got %v", err)
		}
		if ve.Field != "policyHolder.lastName" {
			t.Fatalf("wrong field: %q", ve.Field)
		}
	})

	t.Run("missing policy number", func(t *testing.T) {
		doc := autoPolicyDoc()
		doc.Policy.PolicyNumber = ""
		_, err := env.svc.Sync(ctx, doc, SyncOptions{})
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("want *ValidationError, got %v", err)
		}
	})

	t.Run("nil document", func(t *testing.T) {
		var ve *ValidationError
		if _, err := env.svc.Sync(ctx, nil, SyncOptions{}); !errors.As(err, &ve) {
			t.Fatalf("want *ValidationError, got nil-doc error %v", ve)
		}
	})

	// Rejected documents must leave the database untouched.
	count, err := env.customerRepo.Count(ctx, nil)
	if err != nil || count != 0 {
		t.Fatalf("validation failure wrote rows: count=%d (%v)", count, err)
	}
}
